// Package search keeps the denormalized insight documents that back catalog
// search. Documents are keyed by the relational id and looked up by fullName.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
)

const taskPollInterval = 50 * time.Millisecond

var filterableAttributes = []string{"fullName", "namespace", "tags", "itemType", "isUnlisted"}

type Meilisearch struct {
	client meilisearch.ServiceManager
	uid    string
}

func NewMeilisearch(cfg config.MeilisearchConfig) *Meilisearch {
	client := meilisearch.New(cfg.Host,
		meilisearch.WithAPIKey(cfg.APIKey),
		meilisearch.WithCustomClient(&http.Client{Timeout: cfg.Timeout}),
	)
	return &Meilisearch{client: client, uid: cfg.Index}
}

// EnsureIndex creates the index with "id" as primary key and makes fullName
// filterable. It is safe to call on every start.
func (m *Meilisearch) EnsureIndex(ctx context.Context) error {
	if _, err := m.client.Health(); err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}

	if _, err := m.client.GetIndex(m.uid); err != nil {
		info, err := m.client.CreateIndex(&meilisearch.IndexConfig{Uid: m.uid, PrimaryKey: "id"})
		if err != nil {
			return fmt.Errorf("create index %s: %w", m.uid, err)
		}
		if err := m.wait(ctx, info.TaskUID); err != nil {
			return fmt.Errorf("create index %s: %w", m.uid, err)
		}
	}

	info, err := m.client.Index(m.uid).UpdateFilterableAttributes(&filterableAttributes)
	if err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}
	return m.wait(ctx, info.TaskUID)
}

func (m *Meilisearch) GetByFullName(ctx context.Context, fullName string) (*domain.Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := m.client.Index(m.uid).SearchRaw("", &meilisearch.SearchRequest{
		Filter: fmt.Sprintf("fullName = %s", quoteFilter(fullName)),
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", fullName, err)
	}

	var resp struct {
		Hits []domain.Insight `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(resp.Hits) == 0 {
		return nil, domain.ErrNotFound
	}
	return &resp.Hits[0], nil
}

// Upsert replaces the document. With refresh it waits until the document is
// visible to searches.
func (m *Meilisearch) Upsert(ctx context.Context, insight *domain.Insight, refresh bool) error {
	info, err := m.client.Index(m.uid).AddDocuments([]*domain.Insight{insight})
	if err != nil {
		return fmt.Errorf("index insight %s: %w", insight.FullName, err)
	}
	if !refresh {
		return nil
	}
	return m.wait(ctx, info.TaskUID)
}

func (m *Meilisearch) Delete(ctx context.Context, id string) error {
	info, err := m.client.Index(m.uid).DeleteDocument(id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return m.wait(ctx, info.TaskUID)
}

func (m *Meilisearch) wait(ctx context.Context, taskUID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task, err := m.client.WaitForTask(taskUID, taskPollInterval)
	if err != nil {
		return fmt.Errorf("wait for task %d: %w", taskUID, err)
	}
	if task.Status == meilisearch.TaskStatusFailed {
		return fmt.Errorf("task %d failed: %v", taskUID, task.Error)
	}
	return nil
}

func quoteFilter(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}
