package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tl-its-umich-edu/m-voice/internal/compose"
	"github.com/tl-its-umich-edu/m-voice/internal/filter"
	"github.com/tl-its-umich-edu/m-voice/internal/matcher"
	"github.com/tl-its-umich-edu/m-voice/internal/menu"
	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/telemetry"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

const (
	// UnavailableText is the reply when the menu service cannot be reached.
	UnavailableText = "Sorry, the dining menu service is unavailable right now. Please try again later."
	// FallbackText answers a turn that failed for any reason other than the menu service.
	FallbackText = "Sorry, I couldn't look that up. Please try asking another way."
	// RepeatText answers a queryHelper turn that carries no packaged reply.
	RepeatText = "Sorry, could you say that again?"

	dateLayout = "2006-01-02"
)

// ErrUnknownIntent: returned for an intent this webhook does not serve.
var ErrUnknownIntent = errors.New("unknown intent")

// Resolver: validates a slot value against the vocabulary.
type Resolver interface {
	Resolve(term string, category vocabulary.Category) (matcher.Result, error)
}

// Reply: the outcome of one turn.
type Reply struct {
	State    State
	Response Response
	// Degraded is set when the menu service failed and a fallback text was sent.
	Degraded bool
}

// Orchestrator: runs the slot-filling conversation for each webhook turn.
type Orchestrator struct {
	resolver Resolver
	menus    menu.Fetcher
	composer *compose.Composer
	metrics  *metrics.Store
	logger   *slog.Logger
	now      func() time.Time
}

// Option: customises an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics: counts turns by intent and outcome.
func WithMetrics(m *metrics.Store) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger: sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock: sets the clock used to default the date to today.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator: creates an Orchestrator.
func NewOrchestrator(resolver Resolver, menus menu.Fetcher, composer *compose.Composer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		menus:    menus,
		composer: composer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn: the merged view of this turn's parameters over the carried context.
type turn struct {
	slots      Slots
	requisites filter.Requisites
	date       compose.DateRef
	context    string
}

// Handle: answers one webhook request.
func (o *Orchestrator) Handle(ctx context.Context, req WebhookRequest) (_ Reply, err error) {
	intent := req.QueryResult.Intent.DisplayName
	ctx, span := telemetry.StartSpan(ctx, "webhook.turn", attribute.String("dialog.intent", intent))
	defer func() { telemetry.EndSpan(span, err) }()

	current, err := DecodeTurn(req.QueryResult.Parameters)
	if err != nil {
		return Reply{}, err
	}
	carried, err := DecodeCarried(req.QueryResult.OutputContexts)
	if err != nil {
		return Reply{}, err
	}

	t := merge(current, carried)
	t.context = contextName(req)

	var reply Reply
	switch intent {
	case IntentFindLocationAndMeal:
		reply, err = o.run(ctx, t, []Slot{SlotLocation, SlotMeal}, o.dispatchMeal)
	case IntentFindItem:
		reply, err = o.run(ctx, t, []Slot{SlotLocation, SlotItem}, o.dispatchItem)
	case IntentQueryHelper:
		reply = o.queryHelper(current, carried)
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}
	if err != nil {
		o.metrics.RecordWebhook(intent, "error")
		return Reply{}, err
	}

	outcome := reply.State.String()
	if reply.Degraded {
		outcome = "upstream_unavailable"
	}
	o.metrics.RecordWebhook(intent, outcome)
	span.SetAttributes(attribute.String("dialog.outcome", outcome))
	o.logger.Debug("webhook_turn", "intent", intent, "outcome", outcome)
	return reply, nil
}

func merge(current, carried Slots) turn {
	slots := Slots{
		Location:     firstNonEmpty(current.Location, carried.Location),
		Meal:         firstNonEmpty(current.Meal, carried.Meal),
		Item:         firstNonEmpty(current.Item, carried.Item),
		Date:         firstNonEmpty(current.Date, carried.Date),
		DateOriginal: firstNonEmpty(current.DateOriginal, carried.DateOriginal),
	}
	requisites := filter.Merge(current.Requisites(), carried.Requisites())
	slots.Traits = requisites.Traits
	slots.Allergens = requisites.Allergens

	date := slots.Date
	if len(date) > len(dateLayout) {
		date = date[:len(dateLayout)]
	}
	return turn{
		slots:      slots,
		requisites: requisites,
		date:       compose.DateRef{Date: date, Original: slots.DateOriginal},
	}
}

type dispatchFunc func(ctx context.Context, t turn) (string, error)

// run: asks for the first unfilled slot, or suggests a full name for the first ambiguous one,
// and dispatches once every required slot is filled and valid.
func (o *Orchestrator) run(ctx context.Context, t turn, required []Slot, dispatch dispatchFunc) (Reply, error) {
	var (
		prompt string
		state  = StateAllSlotsValid
	)

	for _, slot := range required {
		info := slotTable[slot]
		value := t.slots.Value(slot)
		if value == "" {
			if prompt == "" {
				prompt, state = info.question, info.state
			}
			continue
		}
		if info.category == "" {
			continue
		}

		result, err := o.resolver.Resolve(value, info.category)
		if err != nil {
			return Reply{}, fmt.Errorf("validate %s: %w", slot, err)
		}
		if result.Found {
			continue
		}
		t.slots = t.slots.without(slot)
		if prompt == "" {
			prompt, state = result.Suggestion, StateSlotInvalidSuggestion
		}
	}

	if prompt != "" {
		return Reply{State: state, Response: followup(prompt, t.slots)}, nil
	}

	text, err := dispatch(ctx, t)
	if err != nil {
		var fetchErr *menu.FetchError
		if !errors.As(err, &fetchErr) {
			return Reply{}, err
		}
		o.logger.Error("menu_fetch_failed", "op", fetchErr.Op, "status", fetchErr.Status, "err", err)
		return Reply{State: StateDispatched, Response: answer(UnavailableText, t), Degraded: true}, nil
	}
	return Reply{State: StateDispatched, Response: answer(text, t)}, nil
}

func (o *Orchestrator) query(t turn, meal string) menu.Query {
	date := t.date.Date
	if date == "" {
		date = o.now().Format(dateLayout)
	}
	return menu.Query{Location: t.slots.Location, Date: date, Meal: meal}
}

func (o *Orchestrator) dispatchMeal(ctx context.Context, t turn) (string, error) {
	tree, err := o.menus.Fetch(ctx, o.query(t, t.slots.Meal))
	if err != nil {
		return "", err
	}

	items := ""
	if menu.MealAvailable(tree, t.slots.Meal) {
		meal, _ := tree.FindMeal(t.slots.Meal)
		items = filter.ListItems(meal, t.requisites, filter.Inline)
	}
	return o.composer.MealSentence(items, t.slots.Location, t.slots.Meal, t.date, t.requisites)
}

func (o *Orchestrator) dispatchItem(ctx context.Context, t turn) (string, error) {
	tree, err := o.menus.Fetch(ctx, o.query(t, ""))
	if err != nil {
		return "", err
	}

	matches := filter.FindMatches(tree, t.slots.Item, t.slots.Meal, t.requisites)
	return o.composer.ItemSentence(matches, t.slots.Item, t.slots.Location, t.slots.Meal, t.date, t.requisites)
}

// queryHelper: repeats the reply packaged into the follow-up event by the previous turn.
func (o *Orchestrator) queryHelper(current, carried Slots) Reply {
	text := firstNonEmpty(current.Response, carried.Response)
	if text == "" {
		text = RepeatText
	}
	return Reply{State: StateDispatched, Response: Response{FulfillmentText: text}}
}

// followup: packages text and every resolved slot so the platform stores them in context.
func followup(text string, slots Slots) Response {
	params := slotParams(slots)
	params[ParamResponse] = text
	return Response{FollowupEventInput: &EventInput{Name: FollowupEvent, Parameters: params}}
}

// answer: a final reply that still writes the turn's slots back into context.
func answer(text string, t turn) Response {
	resp := Response{FulfillmentText: text}
	if t.context != "" {
		resp.OutputContexts = []OutputContext{{
			Name:          t.context,
			LifespanCount: carryLifespan,
			Parameters:    slotParams(t.slots),
		}}
	}
	return resp
}

func slotParams(slots Slots) map[string]any {
	return map[string]any{
		ParamLocation:     slots.Location,
		ParamMeal:         slots.Meal,
		ParamItem:         slots.Item,
		ParamDate:         slots.Date,
		ParamDateOriginal: slots.DateOriginal,
		ParamTraits:       nonNil(slots.Traits),
		ParamAllergens:    nonNil(slots.Allergens),
	}
}

// contextName: reuses the context the request carried, or derives one from the session.
// Without either there is nowhere to write and the reply carries no context.
func contextName(req WebhookRequest) string {
	if contexts := req.QueryResult.OutputContexts; len(contexts) > 0 && contexts[0].Name != "" {
		return contexts[0].Name
	}
	if req.Session != "" {
		return req.Session + "/contexts/" + CarryContext
	}
	return ""
}

// without: clears an invalid slot so it is not carried into the next turn.
func (s Slots) without(slot Slot) Slots {
	switch slot {
	case SlotLocation:
		s.Location = ""
	case SlotMeal:
		s.Meal = ""
	case SlotItem:
		s.Item = ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
