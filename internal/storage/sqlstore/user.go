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

const userColumns = `user_id, user_name, email, display_name, github_login, avatar_url`

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(?) AND email <> ''`
	return s.get(ctx, query, email)
}

func (s *UserStore) GetByGitHubLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(github_login) = LOWER(?) AND github_login <> ''`
	return s.get(ctx, query, login)
}

func (s *UserStore) get(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &u, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) ListWithGitHubLogin(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_login <> '' ORDER BY user_id`
	var users []domain.User
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &users, query)
	return users, err
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) (int64, error) {
	query := `
		INSERT INTO users (user_name, email, display_name, github_login, avatar_url)
		VALUES (?, ?, ?, ?, ?)
		RETURNING user_id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, s.db.Rebind(query),
		u.UserName, u.Email, u.DisplayName, u.GitHubLogin, u.AvatarURL,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProfile refreshes the fields sourced from GitHub.
func (s *UserStore) UpdateProfile(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET display_name = ?, avatar_url = ?, updated_at = ? WHERE user_id = ?`
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, s.db.Rebind(query),
		u.DisplayName, u.AvatarURL, time.Now().UTC(), u.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, domain.ErrNotFound)
	}
	return nil
}
