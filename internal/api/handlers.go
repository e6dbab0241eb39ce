package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"insight_sync/internal/domain"
	"insight_sync/internal/storage/sqlstore"
)

type errorResponse struct {
	Error string `json:"error"`
}

type skippedResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// sync runs a task in the request and returns the published insight.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	var task domain.SyncTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	task.Refresh = true

	insight, err := h.syncer.Sync(r.Context(), task)
	if err != nil {
		h.writeSyncError(w, task, err)
		return
	}
	if insight == nil {
		writeJSON(w, http.StatusOK, skippedResponse{Status: "skipped", Reason: "manifest not found"})
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

func (h *Handler) writeSyncError(w http.ResponseWriter, task domain.SyncTask, err error) {
	var verr validation.Errors
	switch {
	case errors.As(err, &verr), errors.Is(err, domain.ErrUnknownRepositoryType):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "repository not found"})
		return
	}

	h.logger.Error("sync request failed",
		"repository_type", task.RepositoryType,
		"full_name", task.FullName(),
		"error", err,
	)
	switch {
	case sqlstore.IsUniqueViolation(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "insight conflicts with an existing insight"})
	case sqlstore.IsConstraintViolation(err):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "insight data is invalid"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "sync failed"})
	}
}

func (h *Handler) deleteInsight(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")

	if err := h.syncer.Delete(r.Context(), fullName); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "insight not found"})
			return
		}
		h.logger.Error("delete request failed", "full_name", fullName, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "delete failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": h.queue.Jobs()})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	job, ok := h.queue.Job(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) cancelTask(w http.ResponseWriter, r *http.Request) {
	if !h.queue.Cancel(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found"})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) clearDone(w http.ResponseWriter, r *http.Request) {
	h.queue.ClearDone()
	w.WriteHeader(http.StatusNoContent)
}

// resync starts a bulk resync in the background. Only one runs at a time.
func (h *Handler) resync(w http.ResponseWriter, r *http.Request) {
	if !h.resyncing.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "resync already running"})
		return
	}

	go func() {
		defer h.resyncing.Store(false)
		if _, err := h.resyncer.ResyncAll(h.baseCtx); err != nil {
			h.logger.Error("bulk resync failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
