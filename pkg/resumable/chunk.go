package resumable

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/NamanBalaji/resumable/internal/logger"
)

// Chunk is one byte range of a File.
type Chunk struct {
	ID        uuid.UUID
	Offset    int
	StartByte int64
	EndByte   int64

	file *File

	status       atomic.Int32
	loaded       atomic.Int64
	retries      atomic.Int32
	pendingRetry atomic.Bool
	tested       atomic.Bool

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	message string
}

func newChunk(f *File, offset int, chunkSize int64, force bool) *Chunk {
	start := int64(offset) * chunkSize
	end := min(f.Size, int64(offset+1)*chunkSize)

	// the last chunk absorbs the remainder unless sizes are forced
	if f.Size-end < chunkSize && !force {
		end = f.Size
	}

	return &Chunk{
		ID:        uuid.New(),
		Offset:    offset,
		StartByte: start,
		EndByte:   end,
		file:      f,
	}
}

// Number is the 1-based chunk number sent to the server.
func (c *Chunk) Number() int {
	return c.Offset + 1
}

func (c *Chunk) Size() int64 {
	return c.EndByte - c.StartByte
}

func (c *Chunk) Status() Status {
	if c.pendingRetry.Load() {
		return Uploading
	}

	return Status(c.status.Load())
}

func (c *Chunk) Retries() int {
	return int(c.retries.Load())
}

// Message is the last response body returned for the chunk.
func (c *Chunk) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.message
}

// Progress reports the share of the chunk already sent, in [0,1].
func (c *Chunk) Progress() float64 {
	if c.pendingRetry.Load() {
		return 0
	}

	switch c.Status() {
	case Success, Error:
		return 1
	case Pending:
		return 0
	default:
		size := c.Size()
		if size <= 0 {
			return 0
		}

		return float64(c.loaded.Load()) / float64(size)
	}
}

// relativeProgress weights Progress by the chunk's share of the file.
func (c *Chunk) relativeProgress() float64 {
	if c.file.Size <= 0 {
		return c.Progress()
	}

	return c.Progress() * float64(c.Size()) / float64(c.file.Size)
}

// claim moves a pending chunk to uploading. Only one caller wins.
func (c *Chunk) claim() bool {
	return c.status.CompareAndSwap(int32(Pending), int32(Uploading))
}

func (c *Chunk) markComplete() {
	c.tested.Store(true)
	c.status.Store(int32(Success))
}

// abort cancels an in-flight request and returns the chunk to pending. The
// aborted attempt never reports back.
func (c *Chunk) abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.pendingRetry.Store(false)
	c.loaded.Store(0)

	return c.status.CompareAndSwap(int32(Uploading), int32(Pending))
}

// start runs a claimed chunk in the background.
func (c *Chunk) start(parent context.Context, t *transport) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.mu.Unlock()

	c.loaded.Store(0)

	go c.run(withChunk(ctx, c), gen, t)
}

func (c *Chunk) run(ctx context.Context, gen uint64, t *transport) {
	if t.opts.TestChunks && !c.tested.Load() {
		present, msg, err := t.test(ctx, c)
		if c.stale(gen) {
			return
		}

		c.tested.Store(true)

		if err == nil && present {
			c.finish(ctx, gen, Success, msg)
			return
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debugf("Test request for chunk %d of %s failed: %v", c.Number(), c.file.UniqueIdentifier, err)
		}
	}

	st, msg, err := t.send(ctx, c)
	if c.stale(gen) {
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("Chunk %d of %s failed: %v", c.Number(), c.file.UniqueIdentifier, err)
	}

	c.finish(ctx, gen, st, msg)
}

func (c *Chunk) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gen != gen
}

func (c *Chunk) finish(ctx context.Context, gen uint64, st Status, msg string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}

	closed := ctx.Err() != nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.message = msg
	c.pendingRetry.Store(false)

	// shut down from outside (Close); leave the chunk for a later run
	if closed {
		c.status.Store(int32(Pending))
		c.loaded.Store(0)
		c.mu.Unlock()

		return
	}

	c.status.Store(int32(st))
	c.mu.Unlock()

	c.file.chunkEvent(c, st, msg)
	c.file.owner.UploadNextChunk()
}

func (c *Chunk) retrying() {
	c.pendingRetry.Store(true)
}

func (c *Chunk) retried() {
	c.pendingRetry.Store(false)
	c.loaded.Store(0)
	c.retries.Add(1)

	c.file.owner.Fire(Event{Name: EventFileRetry, File: c.file, Chunk: c})
}

type chunkKey struct{}

func withChunk(ctx context.Context, c *Chunk) context.Context {
	return context.WithValue(ctx, chunkKey{}, c)
}

func chunkFrom(ctx context.Context) *Chunk {
	c, _ := ctx.Value(chunkKey{}).(*Chunk)
	return c
}
