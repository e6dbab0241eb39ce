package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight_sync/internal/config"
	"insight_sync/internal/domain"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "insights/acme/sales/files/docs/report.docx", FileKey("acme/sales", "docs/report.docx"))
	assert.Equal(t, "insights/acme/sales/conversions/docs/report.docx.pdf", ConversionKey("acme/sales", "docs/report.docx", ".pdf"))
	assert.Equal(t, "insights/acme/sales/conversions/nb.ipynb.html", ConversionKey("acme/sales", "nb.ipynb", "html"))
	assert.Equal(t, "drafts/d-123/files/f-456", DraftFileKey("d-123", "f-456"))
}

func TestFS_PutGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFS(root)
	require.NoError(t, err)

	uri, err := store.Put(ctx, "insights/acme/sales/files/README.md", []byte("# Sales"), "text/markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, "insights/acme/sales/files/README.md"))

	data, err := store.Get(ctx, "insights/acme/sales/files/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Sales", string(data))

	onDisk, err := os.ReadFile(filepath.Join(root, "insights", "acme", "sales", "files", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Sales", string(onDisk))
}

func TestFS_GetMissing(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "drafts/x/files/y")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside", []byte("x"), "")
	assert.Error(t, err)
	_, err = store.Put(context.Background(), "/abs/path", []byte("x"), "")
	assert.Error(t, err)
}

func TestS3_URI(t *testing.T) {
	store, err := NewS3(config.S3Config{Bucket: "insights", Region: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "s3://insights/insights/acme/sales/files/a.txt", store.URI(FileKey("acme/sales", "a.txt")))
}
