package menu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
)

type staticResolver struct {
	url string
	err error
}

func (r staticResolver) MenuBaseURL(context.Context) (string, error) { return r.url, r.err }

func newFixtureServer(t *testing.T, hits *int32, lastQuery *string) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile("testdata/markley.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if lastQuery != nil {
			*lastQuery = r.URL.RawQuery
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuildURL(t *testing.T) {
	got := BuildURL("http://menu.test/xml2print.php?controller=&view=json",
		Query{Location: "Mosher Jordan", Date: "2019-05-15", Meal: "Late Night"})
	want := "http://menu.test/xml2print.php?controller=&view=json&location=Mosher+Jordan&date=2019-05-15&meal=Late+Night"
	if got != want {
		t.Fatalf("unexpected url:\n got %s\nwant %s", got, want)
	}
}

func TestFetchDecodesTree(t *testing.T) {
	var hits int32
	var lastQuery string
	server := newFixtureServer(t, &hits, &lastQuery)

	reg := prometheus.NewRegistry()
	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/menu?view=json", TimeoutSeconds: 2},
		WithMetrics(metrics.NewStore(reg)))

	tree, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tree.Menu.Meals) != 3 {
		t.Fatalf("expected 3 meals, got %d", len(tree.Menu.Meals))
	}
	if lastQuery != "view=json&location=Markley&date=2019-05-15&meal=" {
		t.Fatalf("unexpected query: %s", lastQuery)
	}
	if n, err := testutil.GatherAndCount(reg, "mvoice_upstream_requests_total"); err != nil || n != 1 {
		t.Fatalf("expected one upstream series, got %d (%v)", n, err)
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/?x=1"})
	_, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Op != "status" || fetchErr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected fetch error: %+v", fetchErr)
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"menu": `))
	}))
	defer server.Close()

	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/?x=1"})
	_, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Op != "decode" {
		t.Fatalf("expected decode FetchError, got %v", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL + "/?x=1"
	server.Close()

	client := NewClient(config.MenuConfig{BaseURL: base, TimeoutSeconds: 1})
	_, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Op != "request" {
		t.Fatalf("expected request FetchError, got %v", err)
	}
}

func TestFetchUsesResolvedBaseURL(t *testing.T) {
	var hits int32
	server := newFixtureServer(t, &hits, nil)

	client := NewClient(config.MenuConfig{BaseURL: "http://127.0.0.1:1/unused?x=1"},
		WithBaseURLResolver(staticResolver{url: server.URL + "/?x=1"}))
	if _, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected override server to be hit")
	}
}

func TestFetchFallsBackWhenResolverFails(t *testing.T) {
	var hits int32
	server := newFixtureServer(t, &hits, nil)

	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/?x=1"},
		WithBaseURLResolver(staticResolver{err: errors.New("store down")}))
	if _, err := client.Fetch(context.Background(), Query{Location: "Markley", Date: "2019-05-15"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestFetchServesFromMemoryCache(t *testing.T) {
	var hits int32
	server := newFixtureServer(t, &hits, nil)

	menuCache, err := NewCache(config.MenuCacheConfig{Backend: "memory", TTLSeconds: 60, MaxEntries: 8})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/?x=1"}, WithCache(menuCache))

	q := Query{Location: "Markley", Date: "2019-05-15", Meal: "lunch"}
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), q); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestFetchSharedFlightSurvivesCancelledCaller(t *testing.T) {
	body, err := os.ReadFile("testdata/markley.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var hits int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.MenuConfig{BaseURL: server.URL + "/menu?view=json", TimeoutSeconds: 2})
	q := Query{Location: "Markley", Date: "2019-05-15"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Fetch(firstCtx, q)
		firstErr <- err
	}()
	<-arrived

	secondErr := make(chan error, 1)
	go func() {
		tree, err := client.Fetch(context.Background(), q)
		if err == nil && len(tree.Menu.Meals) != 3 {
			err = errors.New("unexpected tree")
		}
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first caller to see its cancellation, got %v", err)
	}

	release <- struct{}{}
	if err := <-secondErr; err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one shared upstream request, got %d", got)
	}
}
