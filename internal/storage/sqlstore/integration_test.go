//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"insight_sync/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(Migrate(s.db))
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM insight_views")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM insight_likes")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM comments")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM insights")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM users")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestInsightStore_RoundTrip() {
	store := NewInsightStore(s.db)
	rec := newRecord("GITHUB:42", "acme/sales")

	id, err := store.Insert(s.ctx, rec)
	s.Require().NoError(err)

	got, err := store.GetByExternalID(s.ctx, "GITHUB:42")
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.JSONEq(rec.RepositoryData, got.RepositoryData)
	s.WithinDuration(rec.CreatedAt, got.CreatedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestInsightStore_UniqueViolation() {
	store := NewInsightStore(s.db)

	_, err := store.Insert(s.ctx, newRecord("GITHUB:7", "acme/a"))
	s.Require().NoError(err)
	_, err = store.Insert(s.ctx, newRecord("GITHUB:7", "acme/b"))
	s.Require().Error(err)
	s.True(IsConstraintViolation(err))
	s.True(IsUniqueViolation(err))
}

func (s *PostgresIntegrationSuite) TestInsightStore_SoftDeleteAllowsReinsert() {
	store := NewInsightStore(s.db)

	id, err := store.Insert(s.ctx, newRecord("FILE:acme/ops", "acme/ops"))
	s.Require().NoError(err)
	s.Require().NoError(store.SoftDelete(s.ctx, id, time.Now().UTC()))

	_, err = store.Insert(s.ctx, newRecord("FILE:acme/ops", "acme/ops"))
	s.NoError(err)
}

func (s *PostgresIntegrationSuite) TestUserStore_UpdateProfile() {
	store := NewUserStore(s.db)

	id, err := store.Create(s.ctx, &domain.User{UserName: "octo", GitHubLogin: "Octocat"})
	s.Require().NoError(err)

	err = store.UpdateProfile(s.ctx, &domain.User{
		ID:          id,
		DisplayName: "The Octocat",
		AvatarURL:   "https://avatars.example.com/octocat",
	})
	s.Require().NoError(err)

	got, err := store.GetByGitHubLogin(s.ctx, "octocat")
	s.Require().NoError(err)
	s.Equal("The Octocat", got.DisplayName)
}

func (s *PostgresIntegrationSuite) TestCounterStore_Counts() {
	insights := NewInsightStore(s.db)
	users := NewUserStore(s.db)
	counters := NewCounterStore(s.db)

	insightID, err := insights.Insert(s.ctx, newRecord("FILE:acme/hr", "acme/hr"))
	s.Require().NoError(err)
	userID, err := users.Create(s.ctx, &domain.User{UserName: "reader"})
	s.Require().NoError(err)

	_, err = s.db.ExecContext(s.ctx, `INSERT INTO comments (insight_id, user_id, body) VALUES ($1, $2, 'x')`, insightID, userID)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx, `INSERT INTO insight_likes (insight_id, user_id) VALUES ($1, $2)`, insightID, userID)
	s.Require().NoError(err)

	c, err := counters.Counts(s.ctx, insightID)
	s.Require().NoError(err)
	s.Equal(domain.Counters{Comments: 1, Likes: 1, Views: 0}, *c)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewInsightStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := store.Insert(ctx, newRecord("FILE:acme/tx", "acme/tx")); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	_, err = store.GetByExternalID(s.ctx, "FILE:acme/tx")
	s.ErrorIs(err, domain.ErrNotFound)
}
