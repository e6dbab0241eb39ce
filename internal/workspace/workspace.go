// Package workspace manages transient working copies of repositories: a
// shallow git clone in a private temporary directory, or an existing local
// directory used in place.
//
// A Workspace is owned by a single sync task and is not safe for concurrent
// use. Callers must always call Cleanup, typically via defer.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Credential authenticates git operations against a remote.
type Credential struct {
	Username string
	Token    string
}

// Author identifies who a commit is attributed to.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Options tune how a workspace runs git.
type Options struct {
	// Committer is recorded as the git committer. Defaults to the commit author.
	Committer Author
	// TempDir is the parent for private clone directories. Defaults to os.TempDir.
	TempDir string
	Logger  *slog.Logger
}

type Workspace struct {
	root      string
	remoteURL string
	owned     bool
	committer Author
	logger    *slog.Logger
	cleaned   bool
}

// OpenLocal wraps an existing directory. Cleanup never removes it.
func OpenLocal(path string) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open local workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open local workspace: %s is not a directory", abs)
	}
	return &Workspace{
		root:   abs,
		logger: slog.Default(),
	}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// IsRemote reports whether the workspace is a clone of a remote repository.
func (w *Workspace) IsRemote() bool {
	return w.remoteURL != ""
}

func (w *Workspace) FileExists(name string) bool {
	p, err := w.safePath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// ReadFile returns the file contents. A missing file yields an error
// matching fs.ErrNotExist.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	p, err := w.safePath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (w *Workspace) ReadTextFile(name string) (string, error) {
	data, err := w.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes data atomically, creating parent directories.
func (w *Workspace) WriteFile(name string, data []byte) error {
	p, err := w.safePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (w *Workspace) Rename(oldName, newName string) error {
	from, err := w.safePath(oldName)
	if err != nil {
		return err
	}
	to, err := w.safePath(newName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}
	return os.Rename(from, to)
}

// Delete removes a file. Deleting a missing file is not an error.
func (w *Workspace) Delete(name string) error {
	p, err := w.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Cleanup releases the private clone directory. It is idempotent and a no-op
// for local workspaces.
func (w *Workspace) Cleanup() error {
	if w.cleaned || !w.owned {
		w.cleaned = true
		return nil
	}
	w.cleaned = true
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace dir: %w", err)
	}
	w.logger.Debug("workspace removed", "dir", w.root)
	return nil
}

func (w *Workspace) safePath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	p := filepath.Join(w.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return p, nil
}
