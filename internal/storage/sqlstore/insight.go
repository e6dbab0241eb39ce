package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"insight_sync/internal/domain"
)

const insightColumns = `insight_id, external_id, insight_name, item_type, repository_data, created_at, updated_at, deleted_at`

type InsightStore struct {
	db *sqlx.DB
}

func NewInsightStore(db *sqlx.DB) *InsightStore {
	return &InsightStore{db: db}
}

func (s *InsightStore) GetByExternalID(ctx context.Context, externalID string) (*domain.InsightRecord, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE external_id = ? AND deleted_at IS NULL`
	return s.get(ctx, query, externalID)
}

// GetByName returns the most recently updated active row for fullName.
func (s *InsightStore) GetByName(ctx context.Context, fullName string) (*domain.InsightRecord, error) {
	query := `
		SELECT ` + insightColumns + `
		FROM insights
		WHERE insight_name = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC, insight_id DESC
		LIMIT 1`
	return s.get(ctx, query, fullName)
}

func (s *InsightStore) get(ctx context.Context, query string, args ...interface{}) (*domain.InsightRecord, error) {
	var rec domain.InsightRecord
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *InsightStore) Insert(ctx context.Context, rec *domain.InsightRecord) (int64, error) {
	query := `
		INSERT INTO insights (external_id, insight_name, item_type, repository_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING insight_id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, s.db.Rebind(query),
		rec.ExternalID,
		rec.InsightName,
		rec.ItemType,
		rec.RepositoryData,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *InsightStore) Update(ctx context.Context, rec *domain.InsightRecord) error {
	query := `
		UPDATE insights SET
			external_id = ?,
			insight_name = ?,
			item_type = ?,
			repository_data = ?,
			updated_at = ?
		WHERE insight_id = ? AND deleted_at IS NULL`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, s.db.Rebind(query),
		rec.ExternalID,
		rec.InsightName,
		rec.ItemType,
		rec.RepositoryData,
		rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, rec.ID)
}

func (s *InsightStore) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE insights SET deleted_at = ?, updated_at = ? WHERE insight_id = ? AND deleted_at IS NULL`
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, s.db.Rebind(query), at, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

func (s *InsightStore) ListActive(ctx context.Context) ([]domain.InsightRecord, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE deleted_at IS NULL ORDER BY insight_id`
	var recs []domain.InsightRecord
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &recs, query)
	return recs, err
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("insight %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
