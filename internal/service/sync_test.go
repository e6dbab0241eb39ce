package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
	"insight_sync/internal/service/mocks"
	"insight_sync/internal/walker"
	"insight_sync/internal/workspace"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	backend   *mocks.MockBackend
	index     *mocks.MockSearchIndex
	insights  *mocks.MockInsightStore
	users     *mocks.MockUserStore
	counters  *mocks.MockCounterStore
	blobs     *mocks.MockBlobStore
	converter *mocks.MockConverter
	txManager *mocks.MockTransactionManager

	service *SyncService
	logger  *slog.Logger
	task    domain.SyncTask
	dir     string

	mu   sync.Mutex
	puts map[string]string
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.backend = mocks.NewMockBackend(s.ctrl)
	s.index = mocks.NewMockSearchIndex(s.ctrl)
	s.insights = mocks.NewMockInsightStore(s.ctrl)
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.counters = mocks.NewMockCounterStore(s.ctrl)
	s.blobs = mocks.NewMockBlobStore(s.ctrl)
	s.converter = mocks.NewMockConverter(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	s.backend.EXPECT().Type().Return(domain.RepositoryTypeGitHub).AnyTimes()
	s.blobs.EXPECT().URI(gomock.Any()).DoAndReturn(func(key string) string {
		return "mem://" + key
	}).AnyTimes()

	s.service = NewSyncService(
		[]Backend{s.backend},
		Deps{
			Index:     s.index,
			Insights:  s.insights,
			Users:     s.users,
			Counters:  s.counters,
			Blobs:     s.blobs,
			Converter: s.converter,
			TxManager: s.txManager,
		},
		s.logger,
		config.SyncConfig{FileConcurrency: 4},
	)

	s.task = domain.SyncTask{RepositoryType: domain.RepositoryTypeGitHub, Owner: "acme", Repo: "sales", Refresh: true}
	s.dir = s.T().TempDir()
	s.puts = make(map[string]string)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (s *SyncServiceTestSuite) writeFiles(files map[string]string) {
	for name, content := range files {
		path := filepath.Join(s.dir, filepath.FromSlash(name))
		s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
		s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	}
}

func (s *SyncServiceTestSuite) writeDefaultRepo() {
	s.writeFiles(map[string]string{
		"insight.yml": "name: Sales Report\ndescription: Quarterly numbers\ntags: [Tech, tech, NPM]\n",
		"README.md":   "# Sales\n\nNumbers for the quarter.\n",
		"report.docx": "docx-bytes",
		"data/q3.csv": "region,total\nnorth,10\n",
	})
}

func (s *SyncServiceTestSuite) sourceInsight() *domain.Insight {
	return &domain.Insight{
		ExternalID: "GITHUB:42",
		FullName:   "acme/sales",
		Namespace:  "acme",
		Name:       "sales",
		Repository: domain.Repository{
			Type:             domain.RepositoryTypeGitHub,
			ExternalID:       "42",
			ExternalFullName: "acme/sales",
			Owner:            domain.Owner{Login: "acme"},
		},
	}
}

func (s *SyncServiceTestSuite) expectOpen() {
	ws, err := workspace.OpenLocal(s.dir)
	s.Require().NoError(err)
	s.backend.EXPECT().Open(gomock.Any(), s.task).Return(ws, s.sourceInsight(), nil)
}

func (s *SyncServiceTestSuite) expectPuts(times int) {
	s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string, data []byte, _ string) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.puts[key] = string(data)
			return "mem://" + key, nil
		},
	).Times(times)
}

func (s *SyncServiceTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (s *SyncServiceTestSuite) expectPublish(id int64, published **domain.Insight) {
	s.counters.EXPECT().Counts(gomock.Any(), id).Return(&domain.Counters{Comments: 3, Likes: 2, Views: 1}, nil)
	s.index.EXPECT().Upsert(gomock.Any(), gomock.Any(), s.task.Refresh).DoAndReturn(
		func(_ context.Context, insight *domain.Insight, _ bool) error {
			if published != nil {
				*published = insight
			}
			return nil
		},
	)
	s.backend.EXPECT().AfterPublish(gomock.Any(), s.task, gomock.Any()).Return(nil)
}

func filesByPath(files []domain.FileRecord) map[string]domain.FileRecord {
	out := make(map[string]domain.FileRecord, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out
}

func (s *SyncServiceTestSuite) TestSync_NewInsight() {
	ctx := context.Background()
	s.writeDefaultRepo()

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(4)

	var conversion *domain.ConversionRequest
	s.converter.EXPECT().RequestConversion(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.ConversionRequest) error {
			conversion = req
			return nil
		},
	)

	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return([]string{"alice", "bob"}, nil)
	s.users.EXPECT().GetByGitHubLogin(gomock.Any(), "alice").Return(&domain.User{ID: 1, UserName: "alice", GitHubLogin: "alice"}, nil)
	s.users.EXPECT().GetByGitHubLogin(gomock.Any(), "bob").Return(nil, domain.ErrNotFound)

	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(nil, domain.ErrNotFound)
	s.insights.EXPECT().GetByName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.insights.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.InsightRecord) (int64, error) {
			s.Equal("GITHUB:42", rec.ExternalID)
			s.Equal("acme/sales", rec.InsightName)
			s.Equal("insight", rec.ItemType)
			s.JSONEq(`{"repositoryType":"GITHUB","owner":"acme","repo":"sales"}`, rec.RepositoryData)
			return 10, nil
		},
	)

	var published *domain.Insight
	s.expectPublish(10, &published)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Require().NotNil(insight)
	s.Same(insight, published)

	s.Equal("10", insight.ID)
	s.Equal("Sales Report", insight.Name)
	s.Equal("Quarterly numbers", insight.Description)
	s.Equal([]string{"tech", "npm"}, insight.Tags)
	s.Equal("insight", insight.ItemType)
	s.Require().NotNil(insight.Readme)
	s.Equal("README.md", insight.Readme.Path)
	s.Equal(int64(3), insight.CommentCount)
	s.Equal(int64(2), insight.LikeCount)
	s.Equal(int64(1), insight.ViewCount)
	s.False(insight.SyncedAt.IsZero())
	s.Equal(insight.SyncedAt, insight.UpdatedAt)

	s.Require().Len(insight.Contributors, 2)
	s.Equal(int64(1), insight.Contributors[0].ID)
	s.Equal(domain.User{UserName: "bob", DisplayName: "bob", GitHubLogin: "bob"}, insight.Contributors[1])

	s.Len(insight.Files, 4)
	files := filesByPath(insight.Files)
	for _, f := range insight.Files {
		s.NotEmpty(f.ID, f.Path)
		s.Len(f.Hash, 40, f.Path)
	}
	s.Equal("region,total\nnorth,10\n", files["data/q3.csv"].Contents)
	s.Empty(files["report.docx"].Contents)
	s.Equal(docxMime, files["report.docx"].MimeType)
	s.Equal([]domain.Conversion{
		{MimeType: "application/pdf", Path: "insights/acme/sales/conversions/report.docx.pdf"},
	}, files["report.docx"].Conversions)

	s.Equal("docx-bytes", s.puts["insights/acme/sales/files/report.docx"])
	s.Contains(s.puts, "insights/acme/sales/files/insight.yml")

	s.Require().NotNil(conversion)
	s.Equal("mem://insights/acme/sales/files/report.docx", conversion.Source.URI)
	s.Equal(docxMime, conversion.Source.MimeType)
	s.Equal(files["report.docx"].Hash, conversion.Source.Hash)
	s.Equal([]domain.ConversionTarget{
		{URI: "mem://insights/acme/sales/conversions/report.docx.pdf", MimeType: "application/pdf"},
	}, conversion.Targets)
}

func (s *SyncServiceTestSuite) TestSync_OnlyChangedFilesUploaded() {
	ctx := context.Background()
	s.writeDefaultRepo()

	walked, err := walker.Walk(ctx, s.dir, walker.ExcludeVCS, s.logger)
	s.Require().NoError(err)
	for i := range walked {
		walked[i].ID = "file-" + walked[i].Path
	}
	lastUpdate := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	previous := &domain.Insight{ID: "10", FullName: "acme/sales", Files: walked, UpdatedAt: lastUpdate}

	s.writeFiles(map[string]string{
		"report.docx": "docx-bytes-v2",
		"new.md":      "# New\n",
	})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(previous, nil)
	s.expectOpen()
	s.expectPuts(2)
	s.converter.EXPECT().RequestConversion(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)

	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{
		ID:          10,
		ExternalID:  "GITHUB:42",
		InsightName: "acme/sales",
		CreatedAt:   lastUpdate,
	}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(10, nil)

	insight, err := s.service.Sync(ctx, s.task)
	s.Require().NoError(err)

	s.Len(s.puts, 2)
	s.Equal("docx-bytes-v2", s.puts["insights/acme/sales/files/report.docx"])
	s.Contains(s.puts, "insights/acme/sales/files/new.md")

	files := filesByPath(insight.Files)
	s.Len(files, 5)
	s.Equal("file-report.docx", files["report.docx"].ID)
	s.Equal("file-README.md", files["README.md"].ID)
	s.Equal("file-data/q3.csv", files["data/q3.csv"].ID)
	s.NotEmpty(files["new.md"].ID)
	s.NotEqual("file-new.md", files["new.md"].ID)
	s.Equal("# Sales\n\nNumbers for the quarter.\n", files["README.md"].Contents)

	s.Equal(lastUpdate, insight.CreatedAt)
	s.Equal(lastUpdate, insight.UpdatedAt)
	s.Nil(insight.Contributors)
}

func (s *SyncServiceTestSuite) TestSync_UpdatedTaskBumpsUpdatedAt() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n"})
	s.task.Updated = true

	previous := &domain.Insight{ID: "10", FullName: "acme/sales", UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(previous, nil)
	s.expectOpen()
	s.expectPuts(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(10, nil)

	insight, err := s.service.Sync(ctx, s.task)
	s.Require().NoError(err)
	s.Equal(insight.SyncedAt, insight.UpdatedAt)
}

func (s *SyncServiceTestSuite) TestSync_ManifestMissing() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"README.md": "# No manifest\n"})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()

	insight, err := s.service.Sync(ctx, s.task)

	s.NoError(err)
	s.Nil(insight)
}

func (s *SyncServiceTestSuite) TestSync_ArchivedShortCircuit() {
	ctx := context.Background()
	s.writeDefaultRepo()

	src := s.sourceInsight()
	src.Repository.IsArchived = true
	ws, err := workspace.OpenLocal(s.dir)
	s.Require().NoError(err)

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.backend.EXPECT().Open(gomock.Any(), s.task).Return(ws, src, nil)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Require().NotNil(insight)
	s.True(insight.Repository.IsArchived)
	s.Equal([]string{"tech", "npm"}, insight.Tags)
	s.Empty(insight.ID)
	s.Nil(insight.Files)
}

func (s *SyncServiceTestSuite) TestSync_RenameDetected() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n"})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)

	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(nil, domain.ErrNotFound)
	s.insights.EXPECT().GetByName(gomock.Any(), "acme/sales").Return(&domain.InsightRecord{
		ID:          5,
		ExternalID:  "GITHUB:7",
		InsightName: "acme/sales",
	}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.InsightRecord) error {
			s.Equal(int64(5), rec.ID)
			s.Equal("GITHUB:42", rec.ExternalID)
			return nil
		},
	)
	s.expectPublish(5, nil)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Equal("5", insight.ID)
}

func (s *SyncServiceTestSuite) TestSync_RemovesStaleIndexDocument() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n"})

	previous := &domain.Insight{ID: "3", FullName: "acme/sales"}
	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(previous, nil)
	s.expectOpen()
	s.expectPuts(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(nil, domain.ErrNotFound)
	s.insights.EXPECT().GetByName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.insights.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(11), nil)
	s.expectPublish(11, nil)
	s.index.EXPECT().Delete(gomock.Any(), "3").Return(errors.New("index unavailable"))

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Equal("11", insight.ID)
}

func (s *SyncServiceTestSuite) TestSync_AuthorsResolvedByEmail() {
	ctx := context.Background()
	s.writeFiles(map[string]string{
		"insight.yml": "name: Sales\nauthors: [jane@example.com, ghost@example.com, jane@example.com]\n",
	})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(1)
	s.users.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(&domain.User{ID: 7, UserName: "jane"}, nil).Times(2)
	s.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, domain.ErrNotFound)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(10, nil)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Equal([]domain.User{
		{ID: 7, UserName: "jane"},
		{UserName: "ghost@example.com", DisplayName: "ghost@example.com"},
	}, insight.Contributors)
}

func (s *SyncServiceTestSuite) TestSync_ExcludedAuthorsSkipped() {
	ctx := context.Background()
	s.writeFiles(map[string]string{
		"insight.yml": "name: Sales\nexcludedAuthors: [Dependabot]\n",
	})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return([]string{"dependabot", "carol"}, nil)
	s.users.EXPECT().GetByGitHubLogin(gomock.Any(), "carol").Return(nil, domain.ErrNotFound)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(10, nil)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Require().Len(insight.Contributors, 1)
	s.Equal("carol", insight.Contributors[0].GitHubLogin)
}

func (s *SyncServiceTestSuite) TestSync_Thumbnail() {
	ctx := context.Background()
	s.writeFiles(map[string]string{
		"insight.yml":            "name: Sales\n",
		".insight/thumbnail.png": "png",
	})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(2)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(10, nil)

	insight, err := s.service.Sync(ctx, s.task)

	s.Require().NoError(err)
	s.Equal(".insight/thumbnail.png", insight.ThumbnailPath)
	s.Equal("mem://insights/acme/sales/files/.insight/thumbnail.png", insight.ThumbnailURL)
}

func (s *SyncServiceTestSuite) TestSync_UploadFailureFailsTask() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n"})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("bucket unavailable"))

	insight, err := s.service.Sync(ctx, s.task)

	s.Error(err)
	s.Contains(err.Error(), "bucket unavailable")
	s.Nil(insight)
}

func (s *SyncServiceTestSuite) TestSync_ConversionFailureFailsTask() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n", "deck.pptx": "pptx"})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("mem://x", nil).AnyTimes()
	s.converter.EXPECT().RequestConversion(gomock.Any(), gomock.Any()).Return(errors.New("queue closed"))

	_, err := s.service.Sync(ctx, s.task)

	s.Error(err)
	s.Contains(err.Error(), "queue closed")
}

func (s *SyncServiceTestSuite) TestSync_IndexLookupFailure() {
	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, errors.New("timeout"))

	_, err := s.service.Sync(context.Background(), s.task)

	s.Error(err)
}

func (s *SyncServiceTestSuite) TestSync_UnknownRepositoryType() {
	task := domain.SyncTask{RepositoryType: domain.RepositoryTypeFile, Owner: "acme", Repo: "sales"}

	_, err := s.service.Sync(context.Background(), task)

	s.ErrorIs(err, domain.ErrUnknownRepositoryType)
}

func (s *SyncServiceTestSuite) TestSync_InvalidTask() {
	_, err := s.service.Sync(context.Background(), domain.SyncTask{RepositoryType: domain.RepositoryTypeGitHub, Owner: "acme"})

	s.Error(err)
	s.True(strings.HasPrefix(err.Error(), "validate task"))
}

func (s *SyncServiceTestSuite) TestSync_AfterPublishFailureIsLogged() {
	ctx := context.Background()
	s.writeFiles(map[string]string{"insight.yml": "name: Sales\n"})

	s.index.EXPECT().GetByFullName(gomock.Any(), "acme/sales").Return(nil, domain.ErrNotFound)
	s.expectOpen()
	s.expectPuts(1)
	s.backend.EXPECT().Contributors(gomock.Any(), s.task).Return(nil, nil)
	s.expectTransaction()
	s.insights.EXPECT().GetByExternalID(gomock.Any(), "GITHUB:42").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.counters.EXPECT().Counts(gomock.Any(), int64(10)).Return(&domain.Counters{}, nil)
	s.index.EXPECT().Upsert(gomock.Any(), gomock.Any(), true).Return(nil)
	s.backend.EXPECT().AfterPublish(gomock.Any(), s.task, gomock.Any()).Return(errors.New("forbidden"))

	insight, err := s.service.Sync(ctx, s.task)

	s.NoError(err)
	s.NotNil(insight)
}

func (s *SyncServiceTestSuite) TestDelete() {
	ctx := context.Background()

	s.insights.EXPECT().GetByName(gomock.Any(), "acme/sales").Return(&domain.InsightRecord{ID: 10}, nil)
	s.insights.EXPECT().SoftDelete(gomock.Any(), int64(10), gomock.Any()).Return(nil)
	s.index.EXPECT().Delete(gomock.Any(), "10").Return(nil)

	s.NoError(s.service.Delete(ctx, "acme/sales"))
}

func (s *SyncServiceTestSuite) TestDelete_NotFound() {
	s.insights.EXPECT().GetByName(gomock.Any(), "acme/missing").Return(nil, domain.ErrNotFound)

	err := s.service.Delete(context.Background(), "acme/missing")

	s.ErrorIs(err, domain.ErrNotFound)
}
