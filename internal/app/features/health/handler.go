package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	metricsstore "github.com/dalemusser/clubhouse/internal/app/store/metrics"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Store   docstore.Store
	Backend string
	Redis   *redis.Client // nil when pair locks are process-local
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. rdb may be nil.
func NewHandler(ds docstore.Store, backend string, rdb *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Store:   ds,
		Backend: backend,
		Redis:   rdb,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string               `json:"status"`
	Database string               `json:"database"`
	Backend  string               `json:"backend,omitempty"`
	Locks    string               `json:"locks"`
	Counts   *metricsstore.Counts `json:"counts,omitempty"`
	Message  string               `json:"message,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "backend":"mongo", "locks":"redis", "counts":{...} }
//
// On store or lock failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Backend:  h.Backend,
		Locks:    "local",
	}

	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Error("health-check: store ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Redis != nil {
		resp.Locks = "redis"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Error("health-check: redis ping failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			resp.Status = "error"
			resp.Locks = "disconnected"
			resp.Message = "Lock service unavailable"
			resp.Error = err.Error()
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
	}

	counts := metricsstore.FetchCounts(ctx, h.Store)
	resp.Counts = &counts

	_ = json.NewEncoder(w).Encode(resp)
}
