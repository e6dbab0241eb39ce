package domain

import "errors"

var (
	ErrUnknownRepositoryType = errors.New("unknown repository type")
	ErrNotFound              = errors.New("not found")
)
