package dialog

// WebhookRequest: the subset of the Dialogflow v2 webhook request the service reads.
type WebhookRequest struct {
	ResponseID  string      `json:"responseId"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult" binding:"required"`
}

// QueryResult: carries the matched intent and its parameters.
type QueryResult struct {
	QueryText      string          `json:"queryText"`
	LanguageCode   string          `json:"languageCode"`
	Parameters     map[string]any  `json:"parameters"`
	Intent         Intent          `json:"intent" binding:"required"`
	OutputContexts []OutputContext `json:"outputContexts"`
}

// Intent: identifies the matched intent by display name.
type Intent struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName" binding:"required"`
}

// OutputContext: a context the platform keeps across turns.
type OutputContext struct {
	Name          string         `json:"name"`
	LifespanCount int            `json:"lifespanCount"`
	Parameters    map[string]any `json:"parameters"`
}

// Response: either a final answer or a follow-up event that re-enters the conversation.
// A final answer sets OutputContexts so the slots and requisites it used carry into the
// next turn.
type Response struct {
	FulfillmentText    string          `json:"fulfillmentText,omitempty"`
	FollowupEventInput *EventInput     `json:"followupEventInput,omitempty"`
	OutputContexts     []OutputContext `json:"outputContexts,omitempty"`
}

// EventInput: triggers a follow-up event; its parameters are stored in the conversation context.
type EventInput struct {
	Name         string         `json:"name"`
	Parameters   map[string]any `json:"parameters"`
	LanguageCode string         `json:"languageCode,omitempty"`
}

// Intent display names.
const (
	IntentFindLocationAndMeal = "findLocationAndMeal"
	IntentFindItem            = "findItem"
	IntentQueryHelper         = "queryHelper"

	// FollowupEvent is the event that routes a packaged reply to the queryHelper intent.
	FollowupEvent = "queryHelperEvent"

	// CarryContext is the context id used when the request names none.
	CarryContext = "menu-slots"
	// carryLifespan is how many turns a carried context survives.
	carryLifespan = 5
)
