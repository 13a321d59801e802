package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/telemetry"
)

const (
	endpointName    = "menu"
	maxResponseSize = 8 << 20
)

// Query: selects one menu. Date is YYYY-MM-DD; an empty Meal asks for every meal of the day.
type Query struct {
	Location string
	Date     string
	Meal     string
}

// CacheKey: identifies the query in the response cache.
func (q Query) CacheKey() string {
	return "menu:" + strings.ToLower(q.Location) + ":" + q.Date + ":" + strings.ToLower(q.Meal)
}

// BuildURL: appends the query parameters to base and replaces spaces with '+'.
func BuildURL(base string, q Query) string {
	raw := base + "&location=" + q.Location + "&date=" + q.Date + "&meal=" + q.Meal
	return strings.ReplaceAll(raw, " ", "+")
}

// FetchError: returned for any failed menu request.
type FetchError struct {
	Op     string // request, status, read, decode, limit
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("menu %s %s: status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("menu %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BaseURLResolver: supplies a base URL override, e.g. from the secret store.
type BaseURLResolver interface {
	MenuBaseURL(ctx context.Context) (string, error)
}

// Fetcher: the read side of Client used by the conversation layer.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Tree, error)
}

// Client: fetches menus from the dining API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
	resolver   BaseURLResolver
	cache      Cache
	metrics    *metrics.Store
	logger     *slog.Logger
	group      singleflight.Group
}

// Option: customises a Client.
type Option func(*Client)

// WithHTTPClient: replaces the default HTTP client (e.g. one with an otelhttp transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURLResolver: consults r for the base URL on every fetch.
func WithBaseURLResolver(r BaseURLResolver) Option {
	return func(c *Client) { c.resolver = r }
}

// WithCache: stores decoded responses in cache.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithMetrics: records upstream calls and cache lookups.
func WithMetrics(m *metrics.Store) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger: sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient: creates a menu client.
func NewClient(cfg config.MenuConfig, opts ...Option) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = config.DefaultMenuURL
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    base,
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      noopCache{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch: returns the menu for q. Identical concurrent fetches share one upstream request.
func (c *Client) Fetch(ctx context.Context, q Query) (_ *Tree, err error) {
	ctx, span := telemetry.StartSpan(ctx, "menu.fetch",
		attribute.String("menu.location", q.Location),
		attribute.String("menu.date", q.Date),
		attribute.String("menu.meal", q.Meal),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	key := q.CacheKey()
	if body, ok := c.cached(ctx, key); ok {
		if tree, err := decodeTree(body); err == nil {
			return tree, nil
		}
		c.logger.Warn("menu_cache_entry_invalid", "key", key)
	}

	reqURL := BuildURL(c.resolveBase(ctx), q)
	// The shared fetch must not die with whichever caller started it.
	flight := c.group.DoChan(reqURL, func() (any, error) {
		return c.get(context.WithoutCancel(ctx), reqURL)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, &FetchError{Op: "request", URL: reqURL, Err: ctx.Err()}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	body := res.Val.([]byte)

	tree, err := decodeTree(body)
	if err != nil {
		return nil, &FetchError{Op: "decode", URL: reqURL, Err: err}
	}

	if err := c.cache.Set(ctx, key, body); err != nil {
		c.logger.Warn("menu_cache_set_failed", "key", key, "err", err)
	}
	return tree, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if _, disabled := c.cache.(noopCache); disabled {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("menu_cache_get_failed", "key", key, "err", err)
		return nil, false
	}
	c.metrics.RecordCacheLookup(ok)
	return body, ok
}

func (c *Client) resolveBase(ctx context.Context) string {
	if c.resolver == nil {
		return c.baseURL
	}
	override, err := c.resolver.MenuBaseURL(ctx)
	if err != nil {
		c.logger.Warn("menu_base_url_lookup_failed", "err", err)
		return c.baseURL
	}
	if strings.TrimSpace(override) == "" {
		return c.baseURL
	}
	return override
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Op: "limit", URL: reqURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Op: "request", URL: reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(endpointName, "error", time.Since(started))
		return nil, &FetchError{Op: "request", URL: reqURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.RecordUpstream(endpointName, strconv.Itoa(resp.StatusCode), time.Since(started))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &FetchError{Op: "status", URL: reqURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &FetchError{Op: "read", URL: reqURL, Err: err}
	}

	c.logger.Debug("menu_fetched", "url", reqURL, "bytes", len(body), "elapsed_ms", time.Since(started).Milliseconds())
	return body, nil
}

func decodeTree(body []byte) (*Tree, error) {
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	var tree Tree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal menu: %w", err)
	}
	return &tree, nil
}
