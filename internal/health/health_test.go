package health

import (
	"context"
	"errors"
	"testing"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

type stubPinger struct {
	err   error
	calls int
}

func (p *stubPinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

func testVocabulary() *vocabulary.Store {
	return vocabulary.NewStore(map[vocabulary.Category]vocabulary.Lists{
		vocabulary.Location: {Main: []string{"Markley", "Bursley"}},
		vocabulary.Meal:     {Main: []string{"Breakfast", "Lunch", "Dinner"}},
	})
}

func TestCollectShallowSkipsPing(t *testing.T) {
	cache := &stubPinger{err: errors.New("down")}
	cfg := &config.Config{MenuCache: config.MenuCacheConfig{Backend: "valkey"}}

	resp := Collect(context.Background(), cfg, Dependencies{MenuCache: cache, Vocabulary: testVocabulary()}, false)
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %s", resp.Status)
	}
	if cache.calls != 0 {
		t.Fatalf("expected no ping on shallow check, got %d", cache.calls)
	}
	if got := resp.Components["menu_cache"].Detail["backend"]; got != "valkey" {
		t.Fatalf("unexpected backend %v", got)
	}
}

func TestCollectDeepReportsFailures(t *testing.T) {
	cache := &stubPinger{err: errors.New("connection refused")}
	secrets := &stubPinger{}

	resp := Collect(context.Background(), &config.Config{}, Dependencies{
		MenuCache:  cache,
		Secrets:    secrets,
		Vocabulary: testVocabulary(),
	}, true)

	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", resp.Status)
	}
	if resp.Components["menu_cache"].Status != "degraded" {
		t.Fatalf("expected menu_cache degraded")
	}
	if resp.Components["secrets"].Status != "ok" {
		t.Fatalf("expected secrets ok")
	}
	if got := resp.Components["secrets"].Detail["backend"]; got != "env" {
		t.Fatalf("expected default env backend, got %v", got)
	}
	if cache.calls != 1 || secrets.calls != 1 {
		t.Fatalf("expected one ping each, got %d and %d", cache.calls, secrets.calls)
	}
}

func TestCollectEmptyVocabulary(t *testing.T) {
	empty := vocabulary.NewStore(map[vocabulary.Category]vocabulary.Lists{
		vocabulary.Location: {Main: []string{"Markley"}},
	})

	resp := Collect(context.Background(), nil, Dependencies{Vocabulary: empty}, false)
	component := resp.Components["vocabulary"]
	if component.Status != "degraded" {
		t.Fatalf("expected degraded vocabulary, got %s", component.Status)
	}
	if component.Detail["location_entries"] != 1 || component.Detail["meal_entries"] != 0 {
		t.Fatalf("unexpected detail %v", component.Detail)
	}
}
