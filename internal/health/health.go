package health

import (
	"context"
	"strings"
	"time"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

var startTime = time.Now()

const pingTimeout = 2 * time.Second

// Pinger: a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sizer: reports the number of reference entries per category.
type Sizer interface {
	Size() map[vocabulary.Category]int
}

// Dependencies: the components inspected by Collect. Nil fields are reported as absent.
type Dependencies struct {
	MenuCache  Pinger
	Secrets    Pinger
	Vocabulary Sizer
}

// Component: the state of one dependency.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response: the health payload.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Collect: gathers the health state. Pings only run when deepChecks is set so liveness never
// depends on external services.
func Collect(ctx context.Context, cfg *config.Config, deps Dependencies, deepChecks bool) Response {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	components := map[string]Component{
		"app":        buildAppStatus(),
		"vocabulary": buildVocabularyStatus(deps.Vocabulary),
		"menu_cache": buildPingStatus(ctx, deps.MenuCache, deepChecks, map[string]any{
			"backend":     backendName(cfg.MenuCache.Backend, "none"),
			"ttl_seconds": cfg.MenuCache.TTLSeconds,
			"disabled":    cfg.MenuCache.DisableCache,
		}),
		"secrets": buildPingStatus(ctx, deps.Secrets, deepChecks, map[string]any{
			"backend":           backendName(cfg.Secrets.Backend, "env"),
			"cache_ttl_seconds": cfg.Secrets.CacheTTLSeconds,
		}),
	}

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus() Component {
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		},
	}
}

func buildVocabularyStatus(vocab Sizer) Component {
	if vocab == nil {
		return Component{Status: "degraded", Detail: map[string]any{"loaded": false}}
	}

	status := "ok"
	detail := map[string]any{"loaded": true}
	for _, category := range vocabulary.Categories() {
		size := vocab.Size()[category]
		detail[strings.ToLower(string(category))+"_entries"] = size
		if size == 0 {
			status = "degraded"
		}
	}
	return Component{Status: status, Detail: detail}
}

func buildPingStatus(ctx context.Context, dep Pinger, deepChecks bool, detail map[string]any) Component {
	detail["deep_checked"] = deepChecks
	if dep == nil {
		detail["configured"] = false
		return Component{Status: "ok", Detail: detail}
	}
	detail["configured"] = true

	status := "ok"
	if deepChecks {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
		defer cancel()

		if err := dep.Ping(checkCtx); err != nil {
			status = "degraded"
			detail["connected"] = false
			detail["error"] = err.Error()
		} else {
			detail["connected"] = true
		}
	}
	return Component{Status: status, Detail: detail}
}

func backendName(value, def string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	return value
}
