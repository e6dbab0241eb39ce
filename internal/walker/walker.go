// Package walker enumerates the files of a working copy and fingerprints them
// for change detection.
package walker

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"

	"insight_sync/internal/domain"
)

const (
	UnknownMimeType = "application/unknown"

	sniffSize = 8 << 10
	// chardet guesses below this confidence are discarded.
	minCharsetConfidence = 50
)

// Predicate decides whether an entry is visited. rel uses forward slashes.
type Predicate func(rel string, d fs.DirEntry) bool

// ExcludeVCS skips version control metadata directories.
func ExcludeVCS(rel string, d fs.DirEntry) bool {
	return d.Name() != ".git"
}

var knownTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".css":      "text/css",
	".js":       "application/javascript",
	".json":     "application/json",
	".yml":      "application/x-yaml",
	".yaml":     "application/x-yaml",
	".xml":      "application/xml",
	".sql":      "application/sql",
	".py":       "text/x-python",
	".r":        "text/x-r",
	".sh":       "application/x-sh",
	".ipynb":    "application/x-ipynb+json",
	".pdf":      "application/pdf",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".svg":      "image/svg+xml",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Walk returns one record per file under root, in lexical order. IDs and
// contents are left empty. Files that cannot be read are skipped.
func Walk(ctx context.Context, root string, pred Predicate, logger *slog.Logger) ([]domain.FileRecord, error) {
	if pred == nil {
		pred = ExcludeVCS
	}
	if logger == nil {
		logger = slog.Default()
	}

	var records []domain.FileRecord
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			logger.Warn("skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !pred(rel, d) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rec, fileErr := Describe(p, rel)
		if fileErr != nil {
			logger.Warn("skipping unreadable file", "path", rel, "error", fileErr)
			return nil
		}
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return records, nil
}

// Describe fingerprints a single file.
func Describe(absPath, rel string) (*domain.FileRecord, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	h := sha1.New()
	head, err := readHead(f, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash file: %w", err)
	}

	return &domain.FileRecord{
		Name:       path.Base(rel),
		Path:       rel,
		Size:       info.Size(),
		Encoding:   DetectEncoding(head),
		Hash:       hex.EncodeToString(h.Sum(nil)),
		MimeType:   DetectMimeType(rel, head),
		IsReadOnly: info.Mode().Perm()&0o200 == 0,
	}, nil
}

func readHead(r io.Reader, h hash.Hash) ([]byte, error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read file: %w", err)
	}
	buf = buf[:n]
	h.Write(buf)
	return buf, nil
}

// DetectMimeType resolves a MIME type from the file name first, then from the
// leading bytes.
func DetectMimeType(name string, head []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ext != "" {
		if t, ok := knownTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return stripParams(t)
		}
	}
	if len(head) == 0 {
		return UnknownMimeType
	}

	detected := mimetype.Detect(head)
	if detected.Is("application/octet-stream") {
		return UnknownMimeType
	}
	return stripParams(detected.String())
}

// DetectEncoding returns a best-effort charset name, or "" when the content is
// binary or the guess is weak.
func DetectEncoding(head []byte) string {
	if len(head) == 0 || bytes.IndexByte(head, 0) >= 0 {
		return ""
	}
	result, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil || result.Confidence < minCharsetConfidence {
		return ""
	}
	return result.Charset
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}
