package namesync

import (
	gosync "sync"

	"github.com/pokecompanion/namesync/pkg/sync"
)

// Hook function types for pipeline events
type (
	// ResultHook is called after each dataset pipeline, whatever its status
	ResultHook func(result *sync.Result)

	// PublishedHook is called after an artifact was replaced
	PublishedHook func(result *sync.Result)
)

// hooks manages event callbacks for pipeline outcomes
type hooks struct {
	mu          gosync.RWMutex
	onResult    []ResultHook
	onPublished []PublishedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnResult registers a callback for every pipeline result
func (h *hooks) OnResult(fn ResultHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResult = append(h.onResult, fn)
}

// OnPublished registers a callback for published results
func (h *hooks) OnPublished(fn PublishedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPublished = append(h.onPublished, fn)
}

// trigger invokes the hooks matching each result of a report
func (h *hooks) trigger(report *sync.Report) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, result := range report.Results {
		for _, fn := range h.onResult {
			fn(result)
		}
		if result.Status != sync.StatusPublished {
			continue
		}
		for _, fn := range h.onPublished {
			fn(result)
		}
	}
}
