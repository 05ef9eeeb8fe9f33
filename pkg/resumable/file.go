package resumable

import (
	"math"
	"sync"

	"github.com/NamanBalaji/resumable/internal/logger"
)

// File is a source queued for upload together with its chunks.
type File struct {
	FileName         string
	RelativePath     string
	Size             int64
	UniqueIdentifier string

	owner *Resumable
	src   Source

	mu           sync.RWMutex
	chunks       []*Chunk
	paused       bool
	failed       bool
	succeeded    bool
	prevProgress float64
}

func newFile(owner *Resumable, src Source, identifier string) *File {
	return &File{
		FileName:         src.Name(),
		RelativePath:     src.RelativePath(),
		Size:             src.Size(),
		UniqueIdentifier: identifier,
		owner:            owner,
		src:              src,
	}
}

// Source returns the file-like value the file was created from.
func (f *File) Source() Source {
	return f.src
}

// Type is the MIME type of the source.
func (f *File) Type() string {
	return f.src.Type()
}

func (f *File) Chunks() []*Chunk {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]*Chunk(nil), f.chunks...)
}

// Bootstrap aborts any transfer and splits the file into fresh chunks.
func (f *File) Bootstrap() {
	f.Abort()

	opts := f.owner.opts
	f.owner.Fire(Event{Name: EventChunkingStart, File: f})

	ratio := float64(f.Size) / float64(opts.ChunkSize)

	var count int
	if opts.ForceChunkSize {
		count = int(math.Ceil(ratio))
	} else {
		count = int(math.Floor(ratio))
	}

	count = max(count, 1)

	chunks := make([]*Chunk, 0, count)
	for offset := 0; offset < count; offset++ {
		chunks = append(chunks, newChunk(f, offset, opts.ChunkSize, opts.ForceChunkSize))
		f.owner.Fire(Event{Name: EventChunkingProgress, File: f, Progress: float64(offset) / float64(count)})
	}

	f.mu.Lock()
	f.chunks = chunks
	f.failed = false
	f.succeeded = false
	f.prevProgress = 0
	f.mu.Unlock()

	f.owner.Fire(Event{Name: EventChunkingComplete, File: f})
}

// Progress reports the share of the file already uploaded, in [0,1]. It
// never decreases between calls, and a failed file counts as done.
func (f *File) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failed {
		return 1
	}

	var (
		ret    float64
		failed bool
	)

	for _, c := range f.chunks {
		if c.Status() == Error {
			failed = true
		}

		ret += c.relativeProgress()
	}

	switch {
	case failed, ret > 0.99999:
		ret = 1
	}

	ret = max(f.prevProgress, ret)
	f.prevProgress = ret

	return ret
}

func (f *File) IsUploading() bool {
	for _, c := range f.Chunks() {
		if c.Status() == Uploading {
			return true
		}
	}

	return false
}

// IsComplete reports whether no chunk is waiting or in flight.
func (f *File) IsComplete() bool {
	for _, c := range f.Chunks() {
		switch c.Status() {
		case Pending, Uploading:
			return false
		}
	}

	return true
}

func (f *File) HasError() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.failed
}

// Pause stops the scheduler from starting new chunks of this file.
// Chunks already in flight keep going.
func (f *File) Pause(pause bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paused = pause
}

func (f *File) IsPaused() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.paused
}

// Abort cancels every in-flight chunk.
func (f *File) Abort() {
	aborted := 0

	for _, c := range f.Chunks() {
		if c.abort() {
			aborted++
		}
	}

	if aborted > 0 {
		f.owner.Fire(Event{Name: EventFileProgress, File: f})
	}
}

// Cancel aborts the file and removes it from its uploader.
func (f *File) Cancel() {
	f.mu.Lock()
	chunks := f.chunks
	f.chunks = nil
	f.mu.Unlock()

	for _, c := range chunks {
		if c.abort() {
			f.owner.UploadNextChunk()
		}
	}

	f.owner.RemoveFile(f.UniqueIdentifier)
	f.owner.Fire(Event{Name: EventFileProgress, File: f})
}

// Retry re-chunks the file and restarts uploading.
func (f *File) Retry() {
	f.Bootstrap()
	f.owner.restore(f)
	f.owner.resetComplete()
	f.owner.Upload()
}

// MarkChunksCompleted treats the first n chunks as already uploaded.
func (f *File) MarkChunksCompleted(n int) {
	chunks := f.Chunks()
	for i := 0; i < n && i < len(chunks); i++ {
		chunks[i].markComplete()
	}
}

func (f *File) chunkEvent(c *Chunk, st Status, msg string) {
	switch st {
	case Success:
		f.owner.rememberChunk(f, c)

		if f.IsComplete() && f.markSucceeded() {
			f.owner.forget(f)
			f.owner.Fire(Event{Name: EventFileSuccess, File: f, Chunk: c, Message: msg})

			return
		}

		f.owner.Fire(Event{Name: EventFileProgress, File: f, Chunk: c, Message: msg})
	case Error:
		f.Abort()

		f.mu.Lock()
		f.failed = true
		f.chunks = nil
		f.mu.Unlock()

		logger.Errorf("Upload of %s failed at chunk %d: %s", f.UniqueIdentifier, c.Number(), msg)
		f.owner.Fire(Event{Name: EventFileError, File: f, Chunk: c, Message: msg})
	}
}

// markSucceeded reports whether this call is the one that completed the file.
func (f *File) markSucceeded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.succeeded || f.failed {
		return false
	}

	f.succeeded = true

	return true
}
