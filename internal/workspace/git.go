package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

var authFailureMarkers = []string{
	"authentication failed",
	"could not read username",
	"terminal prompts disabled",
	"invalid username or password",
	"permission denied",
	"the requested url returned error: 403",
	"the requested url returned error: 401",
}

// OpenRemote performs a shallow, single-branch, tag-less clone of url into a
// fresh private directory.
func OpenRemote(ctx context.Context, remoteURL string, cred Credential, opts Options) (*Workspace, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "insight-ws-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %v", ErrCloneFailed, err)
	}

	w := &Workspace{
		root:      dir,
		remoteURL: remoteURL,
		owned:     true,
		committer: opts.Committer,
		logger:    opts.Logger,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	authURL, err := withCredential(remoteURL, cred)
	if err != nil {
		_ = w.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	out, err := w.git(ctx, "clone", "--depth", "1", "--single-branch", "--no-tags", authURL, dir)
	if err != nil {
		_ = w.Cleanup()
		if isAuthFailure(out) {
			return nil, fmt.Errorf("%w: %s", ErrAuthFailed, redact(string(out), cred))
		}
		return nil, fmt.Errorf("%w: %v\n%s", ErrCloneFailed, err, redact(string(out), cred))
	}

	w.logger.Debug("repository cloned", "url", remoteURL, "dir", dir)
	return w, nil
}

// Commit stages every change in the working copy and commits it.
func (w *Workspace) Commit(ctx context.Context, message string, author Author) (string, error) {
	if _, err := w.run(ctx, "add", "--all"); err != nil {
		return "", err
	}

	if _, err := w.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return "", ErrNothingToCommit
	}

	committer := w.committer
	if committer.Name == "" {
		committer = author
	}
	if _, err := w.run(ctx,
		"-c", "user.name="+committer.Name,
		"-c", "user.email="+committer.Email,
		"commit", "--quiet", "-m", message, "--author", author.String(),
	); err != nil {
		return "", err
	}

	return w.Head(ctx)
}

// Head returns the commit id HEAD points at.
func (w *Workspace) Head(ctx context.Context) (string, error) {
	out, err := w.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Push pushes HEAD to the branch it was cloned from.
func (w *Workspace) Push(ctx context.Context, cred Credential) error {
	if !w.IsRemote() {
		return ErrNotRemote
	}

	out, err := w.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}
	branch := strings.TrimSpace(string(out))

	authURL, err := withCredential(w.remoteURL, cred)
	if err != nil {
		return err
	}

	out, err = w.git(ctx, "push", authURL, "HEAD:refs/heads/"+branch)
	if err != nil {
		if isAuthFailure(out) {
			return fmt.Errorf("%w: %s", ErrAuthFailed, redact(string(out), cred))
		}
		return fmt.Errorf("git push failed: %w\n%s", err, redact(string(out), cred))
	}
	return nil
}

// CheckoutRef fetches ref from the remote and hard-resets the working copy to it.
func (w *Workspace) CheckoutRef(ctx context.Context, ref string, cred Credential) error {
	if !w.IsRemote() {
		return ErrNotRemote
	}

	authURL, err := withCredential(w.remoteURL, cred)
	if err != nil {
		return err
	}

	out, err := w.git(ctx, "fetch", "--depth", "1", "--no-tags", authURL, ref)
	if err != nil {
		if isAuthFailure(out) {
			return fmt.Errorf("%w: %s", ErrAuthFailed, redact(string(out), cred))
		}
		return fmt.Errorf("git fetch %s failed: %w\n%s", ref, err, redact(string(out), cred))
	}

	if _, err := w.run(ctx, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return err
	}
	return nil
}

// ResetSoft moves HEAD to ref keeping the index and working copy.
func (w *Workspace) ResetSoft(ctx context.Context, ref string) error {
	_, err := w.run(ctx, "reset", "--soft", ref)
	return err
}

func (w *Workspace) run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := w.git(ctx, args...)
	if err != nil {
		return out, fmt.Errorf("git %s failed: %w\n%s", args[0], err, string(out))
	}
	return out, nil
}

func (w *Workspace) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if args[0] != "clone" {
		cmd.Dir = w.root
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd.CombinedOutput()
}

func withCredential(remoteURL string, cred Credential) (string, error) {
	if cred.Token == "" {
		return remoteURL, nil
	}
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return remoteURL, nil
	}
	username := cred.Username
	if username == "" {
		username = "x-access-token"
	}
	u.User = url.UserPassword(username, cred.Token)
	return u.String(), nil
}

func isAuthFailure(out []byte) bool {
	lower := strings.ToLower(string(out))
	for _, marker := range authFailureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func redact(s string, cred Credential) string {
	if cred.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, cred.Token, "***")
}
