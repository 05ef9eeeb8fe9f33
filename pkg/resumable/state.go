package resumable

import "time"

// UploadState records which chunks of a file the server has accepted.
type UploadState struct {
	Identifier string    `json:"identifier"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	ChunkSize  int64     `json:"chunkSize"`
	Completed  []int     `json:"completed"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StateStore persists UploadState so an interrupted upload can skip accepted chunks.
// Find returns ErrStateNotFound when nothing is stored for the identifier.
type StateStore interface {
	Find(identifier string) (*UploadState, error)
	MarkChunk(state UploadState, chunkNumber int) error
	Delete(identifier string) error
}
