package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"

	"insight_sync/internal/domain"
	"insight_sync/internal/storage/blob"
	"insight_sync/internal/walker"
	"insight_sync/internal/workspace"
)

type conversionTarget struct {
	ext      string
	mimeType string
}

var (
	toPDF  = conversionTarget{ext: "pdf", mimeType: "application/pdf"}
	toHTML = conversionTarget{ext: "html", mimeType: "text/html"}
)

var conversions = map[string][]conversionTarget{
	"application/msword":                                                        {toPDF},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {toPDF},
	"application/vnd.ms-powerpoint":                                             {toPDF},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {toPDF},
	"application/vnd.ms-excel":                                                  {toPDF},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {toPDF},
	"application/x-ipynb+json":                                                  {toPDF, toHTML},
}

var indexableTypes = map[string]bool{
	"application/json":         true,
	"application/javascript":   true,
	"application/x-ipynb+json": true,
	"application/xml":          true,
	"application/x-yaml":       true,
}

func isIndexable(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") || indexableTypes[mimeType]
}

// syncFiles walks the workspace and uploads every file that is new or whose
// hash changed since the previous snapshot. File ids carry over for the same
// (name, path).
func (s *SyncService) syncFiles(
	ctx context.Context,
	ws *workspace.Workspace,
	insight *domain.Insight,
	previous *domain.Insight,
	stats *domain.SyncStats,
) ([]domain.FileRecord, error) {
	records, err := walker.Walk(ctx, ws.Root(), walker.ExcludeVCS, s.logger)
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	prevFiles := make(map[string]domain.FileRecord)
	if previous != nil {
		for _, f := range previous.Files {
			prevFiles[f.Key()] = f
		}
	}

	var uploaded, requested atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FileConcurrency)

	for i := range records {
		rec := &records[i]
		prev, hasPrev := prevFiles[rec.Key()]

		g.Go(func() error {
			if hasPrev && prev.ID != "" {
				rec.ID = prev.ID
			} else {
				rec.ID = uuid.NewString()
			}

			dirty := !hasPrev || prev.Hash != rec.Hash
			indexable := isIndexable(rec.MimeType)
			targets := conversions[rec.MimeType]
			rec.Conversions = conversionRecords(insight.FullName, rec.Path, targets)

			if !dirty && !indexable {
				return nil
			}

			data, err := ws.ReadFile(rec.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", rec.Path, err)
			}
			if indexable {
				rec.Contents = decodeContents(data, rec.Encoding)
			}
			if !dirty {
				return nil
			}

			uri, err := s.blobs.Put(gctx, blob.FileKey(insight.FullName, rec.Path), data, rec.MimeType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", rec.Path, err)
			}
			uploaded.Add(1)

			if len(targets) == 0 {
				return nil
			}
			req := &domain.ConversionRequest{
				Source: domain.ConversionSource{URI: uri, MimeType: rec.MimeType, Hash: rec.Hash},
			}
			for _, c := range rec.Conversions {
				req.Targets = append(req.Targets, domain.ConversionTarget{
					URI:      s.blobs.URI(c.Path),
					MimeType: c.MimeType,
				})
			}
			if err := s.converter.RequestConversion(gctx, req); err != nil {
				return fmt.Errorf("request conversion of %s: %w", rec.Path, err)
			}
			requested.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Files = len(records)
	stats.Uploaded = int(uploaded.Load())
	stats.Unchanged = stats.Files - stats.Uploaded
	stats.Conversions = int(requested.Load())

	return records, nil
}

func conversionRecords(fullName, relPath string, targets []conversionTarget) []domain.Conversion {
	if len(targets) == 0 {
		return nil
	}
	out := make([]domain.Conversion, 0, len(targets))
	for _, t := range targets {
		out = append(out, domain.Conversion{
			MimeType: t.mimeType,
			Path:     blob.ConversionKey(fullName, relPath, t.ext),
		})
	}
	return out
}

// decodeContents returns data as UTF-8, decoding from the sniffed charset
// when the bytes are not already valid UTF-8.
func decodeContents(data []byte, charset string) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if charset != "" {
		if enc, err := htmlindex.Get(charset); err == nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(out)
			}
		}
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
