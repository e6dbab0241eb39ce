package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"insight_sync/internal/domain"
)

// CounterStore reads the totals written by the social layer.
type CounterStore struct {
	db *sqlx.DB
}

func NewCounterStore(db *sqlx.DB) *CounterStore {
	return &CounterStore{db: db}
}

func (s *CounterStore) Counts(ctx context.Context, insightID int64) (*domain.Counters, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM comments WHERE insight_id = ? AND deleted_at IS NULL) AS comments,
			(SELECT COUNT(*) FROM insight_likes WHERE insight_id = ?) AS likes,
			(SELECT COUNT(*) FROM insight_views WHERE insight_id = ?) AS views`

	var c domain.Counters
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &c, s.db.Rebind(query), insightID, insightID, insightID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
