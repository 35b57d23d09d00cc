package api

import (
	"net/http"
	"time"

	"github.com/okian/seisnear/internal/domain/types"
)

// StatsProvider exposes service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// statsResponse wraps the counters in the common response envelope.
type statsResponse struct {
	Status      string                 `json:"status"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Stats       map[string]interface{} `json:"stats"`
}

// StatsHandler serves a snapshot of worker, queue and report counters.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a stats handler over provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, NewKind("api.stats", ErrUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Status:      types.StatusSuccess,
		GeneratedAt: h.now().UTC(),
		Stats:       h.provider.GetStats(),
	})
}
