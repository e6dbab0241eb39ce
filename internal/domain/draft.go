package domain

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type ChangeAction string

const (
	ChangeAdd    ChangeAction = "add"
	ChangeModify ChangeAction = "modify"
	ChangeRename ChangeAction = "rename"
	ChangeDelete ChangeAction = "delete"
)

// Draft is a set of staged file changes waiting to be committed to the
// source repository.
type Draft struct {
	Key     string       `json:"key"`
	Task    SyncTask     `json:"task"`
	Message string       `json:"message"`
	Author  DraftAuthor  `json:"author"`
	Changes []FileChange `json:"changes"`
}

type DraftAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FileChange refers to staged content by FileID; PreviousPath is only set
// for renames.
type FileChange struct {
	Action       ChangeAction `json:"action"`
	FileID       string       `json:"fileId,omitempty"`
	Path         string       `json:"path"`
	PreviousPath string       `json:"previousPath,omitempty"`
}

func (d Draft) Validate() error {
	if err := validation.ValidateStruct(&d,
		validation.Field(&d.Key, validation.Required),
		validation.Field(&d.Message, validation.Required),
		validation.Field(&d.Changes, validation.Required),
	); err != nil {
		return err
	}
	if err := d.Task.Validate(); err != nil {
		return fmt.Errorf("task: %w", err)
	}
	if err := validation.ValidateStruct(&d.Author,
		validation.Field(&d.Author.Name, validation.Required),
		validation.Field(&d.Author.Email, validation.Required),
	); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	for i, c := range d.Changes {
		if err := c.validate(); err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
	}
	return nil
}

func (c FileChange) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Action, validation.Required, validation.In(ChangeAdd, ChangeModify, ChangeRename, ChangeDelete)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.FileID, validation.When(c.Action == ChangeAdd || c.Action == ChangeModify, validation.Required)),
		validation.Field(&c.PreviousPath, validation.When(c.Action == ChangeRename, validation.Required)),
	)
}
