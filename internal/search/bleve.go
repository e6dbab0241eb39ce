package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"insight_sync/internal/domain"
)

const (
	fieldFullName = "fullName"
	fieldReadme   = "readme"
	fieldContents = "contents"
	fieldSource   = "source"
)

// Bleve is an embedded index for single-node and local deployments. The full
// insight JSON is stored alongside the searchable fields, which include the
// README and the captured text of every file.
type Bleve struct {
	index bleve.Index
}

// NewBleve opens the index at path, creating it when missing. An empty path
// keeps the index in memory.
func NewBleve(path string) (*Bleve, error) {
	m := newMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Bleve{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Bleve{index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	keyword := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(fieldFullName, keyword)
	doc.AddFieldMappingsAt("namespace", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("tags", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("name", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt(fieldReadme, bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt(fieldContents, bleve.NewTextFieldMapping())

	source := bleve.NewTextFieldMapping()
	source.Index = false
	source.Store = true
	source.IncludeInAll = false
	source.IncludeTermVectors = false
	doc.AddFieldMappingsAt(fieldSource, source)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

func (b *Bleve) GetByFullName(ctx context.Context, fullName string) (*domain.Insight, error) {
	q := bleve.NewTermQuery(fullName)
	q.SetField(fieldFullName)

	req := bleve.NewSearchRequest(q)
	req.Fields = []string{fieldSource}
	req.Size = 1

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", fullName, err)
	}
	if len(res.Hits) == 0 {
		return nil, domain.ErrNotFound
	}

	src, ok := res.Hits[0].Fields[fieldSource].(string)
	if !ok {
		return nil, fmt.Errorf("document %s has no stored source", res.Hits[0].ID)
	}
	var insight domain.Insight
	if err := json.Unmarshal([]byte(src), &insight); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", res.Hits[0].ID, err)
	}
	return &insight, nil
}

// Upsert writes are visible immediately, so refresh has no effect.
func (b *Bleve) Upsert(_ context.Context, insight *domain.Insight, _ bool) error {
	src, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("encode insight %s: %w", insight.FullName, err)
	}
	doc := map[string]interface{}{
		fieldFullName: insight.FullName,
		"namespace":   insight.Namespace,
		"tags":        insight.Tags,
		"name":        insight.Name,
		"description": insight.Description,
		fieldContents: fileContents(insight.Files),
		fieldSource:   string(src),
	}
	if insight.Readme != nil {
		doc[fieldReadme] = insight.Readme.Contents
	}
	if err := b.index.Index(insight.ID, doc); err != nil {
		return fmt.Errorf("index insight %s: %w", insight.FullName, err)
	}
	return nil
}

func fileContents(files []domain.FileRecord) []string {
	var contents []string
	for _, f := range files {
		if f.Contents != "" {
			contents = append(contents, f.Contents)
		}
	}
	return contents
}

func (b *Bleve) Delete(_ context.Context, id string) error {
	if err := b.index.Delete(id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (b *Bleve) Close() error {
	return b.index.Close()
}
