package changes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

const maxVocabularySize = 2 << 20

// FetchError: returned when a live vocabulary cannot be fetched.
type FetchError struct {
	Category vocabulary.Category
	URL      string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s vocabulary %s: status %d", e.Category, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s vocabulary %s: %v", e.Category, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source: provides the live vocabulary of a category.
type Source interface {
	Fetch(ctx context.Context, category vocabulary.Category) ([]string, error)
}

type option struct {
	OptionValue string `json:"optionValue"`
}

// LiveClient: reads vocabularies from the menu generator endpoints. Server errors and transport
// failures are retried with exponential backoff; other statuses fail immediately.
type LiveClient struct {
	httpClient *http.Client
	urls       map[vocabulary.Category]string
	maxElapsed time.Duration
	metrics    *metrics.Store
	logger     *slog.Logger
}

// NewLiveClient: creates a LiveClient. maxElapsed bounds the total retry time per category.
func NewLiveClient(httpClient *http.Client, urls map[vocabulary.Category]string, maxElapsed time.Duration, m *metrics.Store, logger *slog.Logger) *LiveClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxElapsed <= 0 {
		maxElapsed = 10 * time.Second
	}
	return &LiveClient{httpClient: httpClient, urls: urls, maxElapsed: maxElapsed, metrics: m, logger: logger}
}

// Fetch: POSTs to the category endpoint and returns the non-empty option values in order.
func (c *LiveClient) Fetch(ctx context.Context, category vocabulary.Category) ([]string, error) {
	url, ok := c.urls[category]
	if !ok || strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: no live endpoint for %q", vocabulary.ErrUnknownCategory, category)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = c.maxElapsed

	var values []string
	operation := func() error {
		fetched, err := c.post(ctx, category, url)
		if err != nil {
			return err
		}
		values = fetched
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("vocabulary_fetch_retry", "category", category, "err", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *LiveClient) post(ctx context.Context, category vocabulary.Category, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{Category: category, URL: url, Err: err})
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstream("vocabulary", "error", time.Since(started))
		return nil, &FetchError{Category: category, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.RecordUpstream("vocabulary", strconv.Itoa(resp.StatusCode), time.Since(started))

	if resp.StatusCode != http.StatusOK {
		fetchErr := &FetchError{Category: category, URL: url, Status: resp.StatusCode}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fetchErr
		}
		return nil, backoff.Permanent(fetchErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVocabularySize))
	if err != nil {
		return nil, &FetchError{Category: category, URL: url, Err: err}
	}

	var options []option
	if err := json.Unmarshal(body, &options); err != nil {
		return nil, backoff.Permanent(&FetchError{Category: category, URL: url, Err: fmt.Errorf("unmarshal options: %w", err)})
	}

	values := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.OptionValue != "" {
			values = append(values, opt.OptionValue)
		}
	}
	return values, nil
}
