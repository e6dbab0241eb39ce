package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v62/github"

	"insight_sync/internal/domain"
)

const (
	ackAccepted = "ACK"
	ackSkipped  = "ACK (SKIPPED)"

	maxWebhookBody = 25 << 20
)

// Repository event actions that can change what is published.
var repositoryActions = map[string]bool{
	"edited":     true,
	"renamed":    true,
	"archived":   true,
	"unarchived": true,
	"publicized": true,
	"privatized": true,
}

type localHookRequest struct {
	Path string `json:"path"`
}

// webhook accepts GitHub deliveries (identified by X-GitHub-Event) and the
// local-path hook body {"path": "..."}.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	if event := gh.WebHookType(r); event != "" {
		h.githubWebhook(w, r, event)
		return
	}

	var req localHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}
	h.enqueue(w, domain.FileTaskForPath(req.Path))
}

func (h *Handler) githubWebhook(w http.ResponseWriter, r *http.Request, event string) {
	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		if len(h.secret) > 0 {
			h.logger.Warn("rejected webhook delivery", "event", event, "delivery", gh.DeliveryID(r), "error", err)
			writeText(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}

	var fullName string
	switch event {
	case "push":
		var e gh.PushEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			writeText(w, http.StatusBadRequest, "Bad Request")
			return
		}
		fullName = e.GetRepo().GetFullName()
	case "repository":
		var e gh.RepositoryEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			writeText(w, http.StatusBadRequest, "Bad Request")
			return
		}
		if !repositoryActions[e.GetAction()] {
			writeText(w, http.StatusOK, ackSkipped)
			return
		}
		fullName = e.GetRepo().GetFullName()
	default:
		writeText(w, http.StatusOK, ackSkipped)
		return
	}

	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}
	h.enqueue(w, domain.SyncTask{
		RepositoryType: domain.RepositoryTypeGitHub,
		Owner:          strings.ToLower(owner),
		Repo:           strings.ToLower(repo),
	})
}

func (h *Handler) enqueue(w http.ResponseWriter, task domain.SyncTask) {
	if _, err := h.queue.Enqueue(task); err != nil {
		h.logger.Warn("rejected sync task", "task", task, "error", err)
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}
	writeText(w, http.StatusAccepted, ackAccepted)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
