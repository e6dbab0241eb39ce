package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type RepositoryType string

const (
	RepositoryTypeGitHub RepositoryType = "GITHUB"
	RepositoryTypeFile   RepositoryType = "FILE"
)

// SyncTask asks for one repository to be synchronized.
type SyncTask struct {
	RepositoryType RepositoryType `json:"repositoryType"`
	Owner          string         `json:"owner"`
	Repo           string         `json:"repo"`
	Path           string         `json:"path,omitempty"`
	Refresh        bool           `json:"refresh,omitempty"`
	Updated        bool           `json:"updated,omitempty"`
}

func (t SyncTask) FullName() string {
	return t.Owner + "/" + t.Repo
}

func (t SyncTask) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.RepositoryType, validation.Required, validation.In(RepositoryTypeGitHub, RepositoryTypeFile)),
		validation.Field(&t.Owner, validation.Required, validation.By(pathSegment)),
		validation.Field(&t.Repo, validation.Required, validation.By(pathSegment)),
	)
}

// pathSegment rejects names that would escape {root}/{owner}/{repo} or a
// blob key prefix.
func pathSegment(value any) error {
	s, _ := value.(string)
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return errors.New("must be a single path segment")
	}
	return nil
}

// Coordinates is what gets persisted as repository_data so the task can be
// replayed by a later resync. Transient flags are dropped.
func (t SyncTask) Coordinates() (string, error) {
	data, err := json.Marshal(SyncTask{
		RepositoryType: t.RepositoryType,
		Owner:          t.Owner,
		Repo:           t.Repo,
		Path:           t.Path,
	})
	if err != nil {
		return "", fmt.Errorf("marshal repository data: %w", err)
	}
	return string(data), nil
}

func TaskFromCoordinates(data string) (SyncTask, error) {
	var t SyncTask
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return SyncTask{}, fmt.Errorf("unmarshal repository data: %w", err)
	}
	return t, nil
}

// FileTaskForPath builds a FILE task for a local directory, naming it after
// the last two path segments.
func FileTaskForPath(path string) SyncTask {
	clean := filepath.Clean(path)
	repo := filepath.Base(clean)
	owner := filepath.Base(filepath.Dir(clean))
	if owner == "." || owner == string(filepath.Separator) || owner == "" {
		owner = "local"
	}
	return SyncTask{
		RepositoryType: RepositoryTypeFile,
		Owner:          strings.ToLower(owner),
		Repo:           strings.ToLower(repo),
		Path:           clean,
	}
}
