package repository

import "github.com/NamanBalaji/resumable/pkg/resumable"

// Repository persists upload progress between runs.
type Repository interface {
	resumable.StateStore
	Save(state resumable.UploadState) error
	FindAll() ([]*resumable.UploadState, error)
	Close() error
}
