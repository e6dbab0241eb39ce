// Package api exposes the webhook trigger and the admin endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"insight_sync/internal/dispatcher"
	"insight_sync/internal/domain"
)

type TaskQueue interface {
	Enqueue(task domain.SyncTask) (string, error)
	Jobs() []dispatcher.JobInfo
	Job(id string) (dispatcher.JobInfo, bool)
	Cancel(id string) bool
	ClearDone()
}

type Syncer interface {
	Sync(ctx context.Context, task domain.SyncTask) (*domain.Insight, error)
	Delete(ctx context.Context, fullName string) error
}

type Resyncer interface {
	ResyncAll(ctx context.Context) (*domain.ResyncStats, error)
}

type Deps struct {
	Queue         TaskQueue
	Syncer        Syncer
	Resyncer      Resyncer
	WebhookSecret string
}

type Handler struct {
	queue    TaskQueue
	syncer   Syncer
	resyncer Resyncer
	secret   []byte
	baseCtx  context.Context
	logger   *slog.Logger

	resyncing atomic.Bool
}

// NewRouter mounts every route. Background work started by a request (bulk
// resync) runs on baseCtx rather than the request context.
func NewRouter(baseCtx context.Context, deps Deps, logger *slog.Logger) http.Handler {
	h := &Handler{
		queue:    deps.Queue,
		syncer:   deps.Syncer,
		resyncer: deps.Resyncer,
		secret:   []byte(deps.WebhookSecret),
		baseCtx:  baseCtx,
		logger:   logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Post("/webhook", h.webhook)
	r.Post("/sync", h.sync)
	r.Delete("/insights/{owner}/{repo}", h.deleteInsight)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/clear_done", h.clearDone)
		r.Get("/{id}", h.getTask)
		r.Delete("/{id}", h.cancelTask)
	})

	r.Post("/admin/resync", h.resync)

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
