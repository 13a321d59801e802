package changes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

func TestDiffPreservesOrder(t *testing.T) {
	added, removed := Diff([]string{"A", "B", "C"}, []string{"A", "C", "D"})
	if !slices.Equal(added, []string{"D"}) || !slices.Equal(removed, []string{"B"}) {
		t.Fatalf("unexpected diff: added=%q removed=%q", added, removed)
	}

	added, removed = Diff([]string{"A"}, []string{"A"})
	if len(added) != 0 || len(removed) != 0 || added == nil || removed == nil {
		t.Fatalf("expected empty non-nil slices, got %v %v", added, removed)
	}
}

func TestDiffIgnoresCase(t *testing.T) {
	added, removed := Diff(
		[]string{"Markley Dining Hall", "Bursley"},
		[]string{"MARKLEY DINING HALL", "bursley", "South Quad"},
	)
	if !slices.Equal(added, []string{"South Quad"}) {
		t.Fatalf("unexpected added: %q", added)
	}
	if len(removed) != 0 {
		t.Fatalf("unexpected removed: %q", removed)
	}
}

func TestRemoveIgnored(t *testing.T) {
	got := RemoveIgnored([]string{"Markley", "Test Kitchen", "Bursley"}, []string{"test kitchen"})
	if !slices.Equal(got, []string{"Markley", "Bursley"}) {
		t.Fatalf("unexpected list: %q", got)
	}
}

func newVocabularyServer(t *testing.T, body string, failures int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if n <= failures {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestLiveClientRetriesServerErrors(t *testing.T) {
	server, calls := newVocabularyServer(t, `[{"optionValue": ""}, {"optionValue": "Lunch"}, {"optionValue": "Dinner"}]`, 2)

	client := NewLiveClient(server.Client(), map[vocabulary.Category]string{vocabulary.Meal: server.URL}, 5*time.Second, nil, nil)
	values, err := client.Fetch(context.Background(), vocabulary.Meal)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !slices.Equal(values, []string{"Lunch", "Dinner"}) {
		t.Fatalf("unexpected values: %q", values)
	}
	if atomic.LoadInt32(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", atomic.LoadInt32(calls))
	}
}

func TestLiveClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewLiveClient(server.Client(), map[vocabulary.Category]string{vocabulary.Location: server.URL}, 5*time.Second, nil, nil)
	_, err := client.Fetch(context.Background(), vocabulary.Location)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 FetchError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestLiveClientUnknownCategory(t *testing.T) {
	client := NewLiveClient(nil, map[vocabulary.Category]string{}, time.Second, nil, nil)
	if _, err := client.Fetch(context.Background(), vocabulary.Meal); !errors.Is(err, vocabulary.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

type staticSource map[vocabulary.Category][]string

func (s staticSource) Fetch(_ context.Context, category vocabulary.Category) ([]string, error) {
	values, ok := s[category]
	if !ok {
		return nil, errors.New("unavailable")
	}
	return values, nil
}

type recordingNotifier struct {
	reports []Report
}

func (n *recordingNotifier) Notify(_ context.Context, report Report) error {
	n.reports = append(n.reports, report)
	return nil
}

func testReference() *vocabulary.Store {
	return vocabulary.NewStore(map[vocabulary.Category]vocabulary.Lists{
		vocabulary.Location: {Main: []string{"A", "B", "C"}, Ignored: []string{"Test Kitchen"}},
		vocabulary.Meal:     {Main: []string{"Lunch", "Dinner"}},
	})
}

func TestDetectorReportsDrift(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStore(reg)
	notifier := &recordingNotifier{}

	detector := NewDetector(testReference(), staticSource{
		vocabulary.Location: {"A", "C", "D", "Test Kitchen"},
		vocabulary.Meal:     {"Lunch", "Dinner"},
	}, notifier, m, nil)

	report, err := detector.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.HasChanges() || !report.Notified || len(notifier.reports) != 1 {
		t.Fatalf("expected a notified change, got %+v", report)
	}
	location := report.Diffs[0]
	if location.Category != vocabulary.Location || !slices.Equal(location.Added, []string{"D"}) || !slices.Equal(location.Removed, []string{"B"}) {
		t.Fatalf("unexpected location diff: %+v", location)
	}

	attachments := report.Attachments()
	if len(attachments) != 2 || attachments[0].Title != "New Location entries" || attachments[1].Text != "B" {
		t.Fatalf("unexpected attachments: %+v", attachments)
	}
	if n, err := testutil.GatherAndCount(reg, "mvoice_vocabulary_drift_entries"); err != nil || n != 4 {
		t.Fatalf("expected 4 drift series, got %d (%v)", n, err)
	}
}

func TestDetectorUpToDate(t *testing.T) {
	notifier := &recordingNotifier{}
	detector := NewDetector(testReference(), staticSource{
		vocabulary.Location: {"A", "B", "C"},
		vocabulary.Meal:     {"Lunch", "Dinner"},
	}, notifier, nil, nil)

	report, err := detector.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.HasChanges() || report.Notified || len(notifier.reports) != 0 {
		t.Fatalf("expected no changes, got %+v", report)
	}
	if report.Text() != upToDateText || len(report.Attachments()) != 0 {
		t.Fatalf("unexpected summary %q", report.Text())
	}
}

func TestDetectorFetchFailure(t *testing.T) {
	detector := NewDetector(testReference(), staticSource{vocabulary.Meal: {"Lunch"}}, nil, nil, nil)
	if _, err := detector.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWebhookNotifierPostsOnlyNonEmptySections(t *testing.T) {
	var got notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.Client(), server.URL, 0)
	report := Report{Diffs: []CategoryDiff{
		{Category: vocabulary.Location, Added: []string{"D", "E"}, Removed: []string{}},
		{Category: vocabulary.Meal, Added: []string{}, Removed: []string{"Brunch"}},
	}}
	if err := notifier.Notify(context.Background(), report); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Text != changedText || len(got.Attachments) != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Attachments[0].Text != "D\nE" || got.Attachments[1].Title != "Removed Meal entries" {
		t.Fatalf("unexpected attachments: %+v", got.Attachments)
	}

	if NewWebhookNotifier(nil, "", 0) != nil {
		t.Fatalf("empty url must disable the notifier")
	}
}

func TestWebhookNotifierStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.Client(), server.URL, 0)
	if err := notifier.Notify(context.Background(), Report{}); err == nil {
		t.Fatalf("expected status error")
	}
}
