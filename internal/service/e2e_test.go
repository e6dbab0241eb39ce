package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
	"insight_sync/internal/search"
	"insight_sync/internal/service/mocks"
	"insight_sync/internal/source/filesystem"
	"insight_sync/internal/storage/blob"
	"insight_sync/internal/storage/sqlstore"
)

// LocalPipelineTestSuite runs the sync against real local stores: a
// directory source, SQLite, an in-memory bleve index and filesystem blobs.
type LocalPipelineTestSuite struct {
	suite.Suite
	ctx context.Context

	db       *sqlx.DB
	index    *search.Bleve
	blobRoot string
	root     string

	converter *mocks.MockConverter
	service   *SyncService
}

func (s *LocalPipelineTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlstore.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(s.T().TempDir(), "insights.db"),
	})
	s.Require().NoError(err)
	s.Require().NoError(sqlstore.Migrate(db))
	s.db = db

	index, err := search.NewBleve("")
	s.Require().NoError(err)
	s.index = index

	s.blobRoot = s.T().TempDir()
	blobs, err := blob.NewFS(s.blobRoot)
	s.Require().NoError(err)

	s.converter = mocks.NewMockConverter(gomock.NewController(s.T()))

	s.root = s.T().TempDir()
	s.service = NewSyncService(
		[]Backend{filesystem.New(s.root, logger)},
		Deps{
			Index:     s.index,
			Insights:  sqlstore.NewInsightStore(db),
			Users:     sqlstore.NewUserStore(db),
			Counters:  sqlstore.NewCounterStore(db),
			Blobs:     blobs,
			Converter: s.converter,
			TxManager: sqlstore.NewTransactionManager(db),
		},
		logger,
		config.SyncConfig{FileConcurrency: 2},
	)
}

func (s *LocalPipelineTestSuite) TearDownTest() {
	if s.index != nil {
		s.index.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func TestLocalPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(LocalPipelineTestSuite))
}

func (s *LocalPipelineTestSuite) writeRepo(files map[string]string) domain.SyncTask {
	dir := filepath.Join(s.root, "acme", "sales")
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0o755))
		s.Require().NoError(os.WriteFile(p, []byte(content), 0o644))
	}
	return domain.FileTaskForPath(dir)
}

func (s *LocalPipelineTestSuite) TestSync_PublishesAndIsIdempotent() {
	task := s.writeRepo(map[string]string{
		"insight.yml": "name: Sales\ntags: [A, a]\n",
		"README.md":   strings.Repeat("word ", 300),
		"deck.pptx":   "pptx",
	})
	s.converter.EXPECT().RequestConversion(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first, err := s.service.Sync(s.ctx, task)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	stored, err := s.index.GetByFullName(s.ctx, "acme/sales")
	s.Require().NoError(err)
	s.Equal(first.ID, stored.ID)
	s.Equal("Sales", stored.Name)
	s.Equal([]string{"a"}, stored.Tags)
	s.Require().NotNil(stored.Readme)
	s.Equal(float64(2), stored.Readme.ReadingTime.Minutes)
	s.Equal(300, stored.Readme.ReadingTime.Words)
	s.Equal("FILE:acme/sales", stored.ExternalID)
	s.Len(stored.Files, 3)

	data, err := os.ReadFile(filepath.Join(s.blobRoot, "insights", "acme", "sales", "files", "deck.pptx"))
	s.Require().NoError(err)
	s.Equal("pptx", string(data))

	second, err := s.service.Sync(s.ctx, task)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.True(first.UpdatedAt.Equal(second.UpdatedAt))
	s.Equal(filesByPath(first.Files)["deck.pptx"].ID, filesByPath(second.Files)["deck.pptx"].ID)

	active, err := sqlstore.NewInsightStore(s.db).ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	replayed, err := domain.TaskFromCoordinates(active[0].RepositoryData)
	s.Require().NoError(err)
	s.Equal(domain.RepositoryTypeFile, replayed.RepositoryType)
	s.Equal(task.Path, replayed.Path)
}

func (s *LocalPipelineTestSuite) TestDelete_RemovesFromIndex() {
	task := s.writeRepo(map[string]string{"insight.yml": "name: Sales\n"})

	_, err := s.service.Sync(s.ctx, task)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, "acme/sales"))

	_, err = s.index.GetByFullName(s.ctx, "acme/sales")
	s.ErrorIs(err, domain.ErrNotFound)

	active, err := sqlstore.NewInsightStore(s.db).ListActive(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)

	again, err := s.service.Sync(s.ctx, task)
	s.Require().NoError(err)
	s.NotEmpty(again.ID)
}
