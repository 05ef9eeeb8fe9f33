package repository

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"go.etcd.io/bbolt"

	"github.com/NamanBalaji/resumable/pkg/resumable"
)

const (
	uploadsBucket  = "uploads"
	metadataBucket = "metadata"
	schemaVersion  = 1
)

var errEmptyIdentifier = errors.New("upload identifier cannot be empty")

// BboltRepository stores one UploadState per file identifier.
type BboltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BboltRepository)(nil)

// NewBboltRepository opens or creates the database at dbPath.
func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &BboltRepository{
		db: db,
	}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(uploadsBucket))
		if err != nil {
			return fmt.Errorf("failed to create uploads bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		err = meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion)))
		if err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// Save replaces the stored state of state.Identifier.
func (r *BboltRepository) Save(state resumable.UploadState) error {
	if state.Identifier == "" {
		return errEmptyIdentifier
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, &state)
	})
}

// MarkChunk records chunkNumber as accepted. A missing or stale entry is
// replaced by state before the chunk is added.
func (r *BboltRepository) MarkChunk(state resumable.UploadState, chunkNumber int) error {
	if state.Identifier == "" {
		return errEmptyIdentifier
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		cur, err := get(tx, state.Identifier)
		switch {
		case errors.Is(err, resumable.ErrStateNotFound):
			cur = &state
		case err != nil:
			return err
		case cur.Size != state.Size || cur.ChunkSize != state.ChunkSize:
			cur = &state
			cur.Completed = nil
		}

		if !slices.Contains(cur.Completed, chunkNumber) {
			cur.Completed = append(cur.Completed, chunkNumber)
			slices.Sort(cur.Completed)
		}

		return put(tx, cur)
	})
}

// Find returns resumable.ErrStateNotFound when nothing is stored for identifier.
func (r *BboltRepository) Find(identifier string) (*resumable.UploadState, error) {
	if identifier == "" {
		return nil, errEmptyIdentifier
	}

	var state *resumable.UploadState

	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		state, err = get(tx, identifier)

		return err
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

func (r *BboltRepository) FindAll() ([]*resumable.UploadState, error) {
	var states []*resumable.UploadState

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", uploadsBucket)
		}

		return bucket.ForEach(func(k, v []byte) error {
			state := &resumable.UploadState{}
			if err := sonic.Unmarshal(v, state); err != nil {
				return fmt.Errorf("failed to unmarshal upload %s: %w", k, err)
			}

			states = append(states, state)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return states, nil
}

// Delete removes the state of identifier. Deleting a missing entry is not an error.
func (r *BboltRepository) Delete(identifier string) error {
	if identifier == "" {
		return errEmptyIdentifier
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", uploadsBucket)
		}

		return bucket.Delete([]byte(identifier))
	})
}

func (r *BboltRepository) Close() error {
	return r.db.Close()
}

func get(tx *bbolt.Tx, identifier string) (*resumable.UploadState, error) {
	bucket := tx.Bucket([]byte(uploadsBucket))
	if bucket == nil {
		return nil, fmt.Errorf("bucket not found: %s", uploadsBucket)
	}

	data := bucket.Get([]byte(identifier))
	if data == nil {
		return nil, resumable.ErrStateNotFound
	}

	state := &resumable.UploadState{}
	if err := sonic.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload: %w", err)
	}

	return state, nil
}

func put(tx *bbolt.Tx, state *resumable.UploadState) error {
	bucket := tx.Bucket([]byte(uploadsBucket))
	if bucket == nil {
		return fmt.Errorf("bucket not found: %s", uploadsBucket)
	}

	state.UpdatedAt = time.Now()

	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal upload: %w", err)
	}

	if err := bucket.Put([]byte(state.Identifier), data); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	return nil
}
