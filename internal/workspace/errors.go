package workspace

import "errors"

var (
	// ErrAuthFailed is returned when git rejects the supplied credential.
	ErrAuthFailed = errors.New("workspace: authentication failed")

	// ErrCloneFailed is returned for any other clone failure.
	ErrCloneFailed = errors.New("workspace: clone failed")

	// ErrNotRemote is returned by operations that need a remote origin on a
	// workspace opened from a local directory.
	ErrNotRemote = errors.New("workspace: not backed by a remote")

	// ErrInvalidPath is returned for paths that would leave the workspace root.
	ErrInvalidPath = errors.New("workspace: invalid path")

	// ErrNothingToCommit is returned by Commit when the working copy is clean.
	ErrNothingToCommit = errors.New("workspace: nothing to commit")
)
