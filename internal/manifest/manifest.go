// Package manifest reads the insight.yml control file and README of a
// repository and merges them into an Insight.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"insight_sync/internal/domain"
)

const (
	FileName       = "insight.yml"
	ReadmeFileName = "README.md"
	WordsPerMinute = 150
)

var ErrNotFound = errors.New("manifest not found")

type Manifest struct {
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	Tags            []string       `yaml:"tags"`
	ItemType        string         `yaml:"itemType"`
	IsUnlisted      *bool          `yaml:"isUnlisted"`
	Creation        map[string]any `yaml:"creation"`
	Metadata        map[string]any `yaml:"metadata"`
	Authors         []string       `yaml:"authors"`
	ExcludedAuthors []string       `yaml:"excludedAuthors"`
	Links           []domain.Link  `yaml:"links"`
}

// Reader is the subset of a workspace the parser needs.
type Reader interface {
	FileExists(name string) bool
	ReadFile(name string) ([]byte, error)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest, returning ErrNotFound when the
// repository has none.
func Load(r Reader) (*Manifest, error) {
	if !r.FileExists(FileName) {
		return nil, ErrNotFound
	}
	data, err := r.ReadFile(FileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// LoadReadme returns nil when the repository has no README.
func LoadReadme(r Reader) (*domain.Readme, error) {
	if !r.FileExists(ReadmeFileName) {
		return nil, nil
	}
	data, err := r.ReadFile(ReadmeFileName)
	if err != nil {
		return nil, fmt.Errorf("read readme: %w", err)
	}
	contents := string(data)
	return &domain.Readme{
		Path:        ReadmeFileName,
		Contents:    contents,
		ReadingTime: ComputeReadingTime(contents),
	}, nil
}

func ComputeReadingTime(text string) domain.ReadingTime {
	words := len(strings.Fields(text))
	minutes := float64(words) / WordsPerMinute
	return domain.ReadingTime{
		Text:    fmt.Sprintf("%d min read", int(math.Ceil(minutes))),
		Minutes: minutes,
		Time:    int64(math.Round(minutes * 60 * 1000)),
		Words:   words,
	}
}

// Apply merges manifest fields into insight. Scalars overwrite when set, tags
// are appended to the source tags, creation and metadata are shallow-merged.
// Empty collections end up nil.
func Apply(insight *domain.Insight, m *Manifest) {
	if m.Name != "" {
		insight.Name = m.Name
	}
	if m.Description != "" {
		insight.Description = m.Description
	}
	if m.ItemType != "" {
		insight.ItemType = m.ItemType
	}
	if m.IsUnlisted != nil {
		insight.IsUnlisted = *m.IsUnlisted
	}

	insight.Tags = append(insight.Tags, m.Tags...)
	insight.Creation = mergeMap(insight.Creation, m.Creation)
	insight.Metadata = mergeMap(insight.Metadata, m.Metadata)

	if len(m.Links) > 0 {
		insight.Links = m.Links
	}
	if len(m.Authors) > 0 {
		insight.Authors = m.Authors
	}
	if len(m.ExcludedAuthors) > 0 {
		insight.Excluded = m.ExcludedAuthors
	}

	if len(insight.Links) == 0 {
		insight.Links = nil
	}
	if len(insight.Authors) == 0 {
		insight.Authors = nil
	}
	if len(insight.Excluded) == 0 {
		insight.Excluded = nil
	}
}

func mergeMap(base, overlay map[string]any) map[string]any {
	if len(overlay) == 0 {
		if len(base) == 0 {
			return nil
		}
		return base
	}
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
