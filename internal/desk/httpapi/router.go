package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 4 << 20

type RouterConfig struct {
	Logger  logging.Logger
	Latency LatencyObserver
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Timeout time.Duration
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Loaded    bool      `json:"loaded"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRouter wires the desk endpoints with middleware.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog(cfg.Logger, cfg.Latency))
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Loaded: h.desk.Loaded(), UpdatedAt: h.desk.UpdatedAt()})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	h.Register(r)
	return r
}
