package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"tech", "npm"}, NormalizeTags([]string{"Tech", "tech", "NPM"}))
	assert.Equal(t, []string{"npm", "tech"}, NormalizeTags([]string{"NPM", "tech", "Tech"}))
	assert.Equal(t, []string{"a"}, NormalizeTags([]string{"A", "a", " ", ""}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestSyncTask_Validate(t *testing.T) {
	ok := SyncTask{RepositoryType: RepositoryTypeGitHub, Owner: "acme", Repo: "sales"}
	assert.NoError(t, ok.Validate())

	bad := SyncTask{RepositoryType: "SVN", Owner: "acme", Repo: "sales"}
	assert.Error(t, bad.Validate())

	missing := SyncTask{RepositoryType: RepositoryTypeFile}
	assert.Error(t, missing.Validate())
}

func TestSyncTask_ValidateRejectsPathEscapes(t *testing.T) {
	for _, tt := range []struct{ owner, repo string }{
		{"..", "etc"},
		{"acme", ".."},
		{".", "sales"},
		{"acme/../..", "sales"},
		{"acme", `sales\..`},
	} {
		task := SyncTask{RepositoryType: RepositoryTypeFile, Owner: tt.owner, Repo: tt.repo}
		assert.Error(t, task.Validate(), "%s/%s", tt.owner, tt.repo)
	}

	dotted := SyncTask{RepositoryType: RepositoryTypeGitHub, Owner: "acme", Repo: "sales.v2"}
	assert.NoError(t, dotted.Validate())
}

func TestSyncTask_CoordinatesRoundTrip(t *testing.T) {
	task := SyncTask{RepositoryType: RepositoryTypeFile, Owner: "acme", Repo: "sales", Path: "/data/acme/sales", Refresh: true}

	data, err := task.Coordinates()
	require.NoError(t, err)
	assert.NotContains(t, data, "refresh")

	back, err := TaskFromCoordinates(data)
	require.NoError(t, err)
	assert.Equal(t, "acme/sales", back.FullName())
	assert.Equal(t, "/data/acme/sales", back.Path)
	assert.False(t, back.Refresh)
}

func TestFileTaskForPath(t *testing.T) {
	task := FileTaskForPath("/data/Acme/Sales/")
	assert.Equal(t, RepositoryTypeFile, task.RepositoryType)
	assert.Equal(t, "acme", task.Owner)
	assert.Equal(t, "sales", task.Repo)
	assert.Equal(t, "/data/Acme/Sales", task.Path)
}
