package resumable

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/NamanBalaji/resumable/internal/logger"
)

const version = 1.0

// Resumable uploads files to a server in chunks, so transfers can be
// paused, retried and resumed.
type Resumable struct {
	opts      *Options
	transport *transport

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	files         []*File
	handlers      map[string][]Handler
	completeFired bool
	drops         map[string]*dropZone
	browsers      []*browseReader
	closed        bool
}

// New validates the options and returns an idle uploader.
func New(opts ...Option) (*Resumable, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}

	for _, pattern := range o.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: bad ignore pattern %q", ErrInvalidOptions, pattern)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Resumable{
		opts:      o,
		transport: newTransport(o),
		ctx:       ctx,
		cancel:    cancel,
		handlers:  make(map[string][]Handler),
		drops:     make(map[string]*dropZone),
	}, nil
}

// Version is the protocol version implemented.
func (r *Resumable) Version() float64 {
	return version
}

// Support always reports true; New fails instead of returning an unusable uploader.
func (r *Resumable) Support() bool {
	return true
}

// Opts returns a copy of the options in effect.
func (r *Resumable) Opts() Options {
	return r.opts.clone()
}

func (r *Resumable) Files() []*File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.files)
}

func (r *Resumable) GetFromUniqueIdentifier(id string) *File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.files {
		if f.UniqueIdentifier == id {
			return f
		}
	}

	return nil
}

// GetSize is the total size of all queued files.
func (r *Resumable) GetSize() int64 {
	var total int64
	for _, f := range r.Files() {
		total += f.Size
	}

	return total
}

// Progress is the size-weighted progress of all files, in [0,1].
func (r *Resumable) Progress() float64 {
	var (
		done  float64
		total int64
	)

	for _, f := range r.Files() {
		done += f.Progress() * float64(f.Size)
		total += f.Size
	}

	if total == 0 {
		return 0
	}

	return done / float64(total)
}

func (r *Resumable) IsUploading() bool {
	for _, f := range r.Files() {
		if f.IsUploading() {
			return true
		}
	}

	return false
}

// AddFile queues a single source. See AddFiles.
func (r *Resumable) AddFile(src Source, trigger any) error {
	return r.AddFiles([]Source{src}, trigger)
}

// AddFiles checks and queues srcs. Rejected sources are skipped and
// reported in the returned error; sources already queued are skipped
// silently and listed in the filesAdded event.
func (r *Resumable) AddFiles(srcs []Source, trigger any) error {
	if r.isClosed() {
		return ErrClosed
	}

	if err := r.makeRoom(len(srcs)); err != nil {
		return err
	}

	var (
		added   []*File
		skipped []*File
		errs    []error
	)

	for _, src := range srcs {
		if src == nil {
			errs = append(errs, ErrNilSource)
			continue
		}

		if err := r.check(src); err != nil {
			errs = append(errs, err)
			continue
		}

		id := r.opts.uniqueIdentifier(src)
		f := newFile(r, src, id)

		if !r.appendFile(f) {
			skipped = append(skipped, f)
			continue
		}

		f.Bootstrap()
		done := r.restore(f)
		added = append(added, f)

		logger.Debugf("Queued %s (%d bytes, %d chunks)", id, f.Size, len(f.Chunks()))
		r.Fire(Event{Name: EventFileAdded, File: f, Trigger: trigger})

		if done && f.markSucceeded() {
			r.forget(f)
			r.Fire(Event{Name: EventFileSuccess, File: f, Message: "restored"})
		}
	}

	r.Fire(Event{Name: EventFilesAdded, Files: added, Skipped: skipped, Trigger: trigger})

	return errors.Join(errs...)
}

// makeRoom enforces MaxFiles. A single-file uploader swaps its file for a new one.
func (r *Resumable) makeRoom(incoming int) error {
	maxFiles := r.opts.MaxFiles
	if maxFiles == 0 {
		return nil
	}

	current := r.Files()
	if maxFiles == 1 && len(current) == 1 && incoming == 1 {
		current[0].Cancel()
		return nil
	}

	if len(current)+incoming > maxFiles {
		return fmt.Errorf("%w: at most %d allowed", ErrTooManyFiles, maxFiles)
	}

	return nil
}

func (r *Resumable) check(src Source) error {
	o := r.opts

	if !r.typeAllowed(src) {
		return fmt.Errorf("%w: %s", ErrFileType, src.Name())
	}

	if o.MinFileSize > 0 && src.Size() < o.MinFileSize {
		return fmt.Errorf("%w: %s is %d bytes, minimum %d", ErrFileTooSmall, src.Name(), src.Size(), o.MinFileSize)
	}

	if o.MaxFileSize > 0 && src.Size() > o.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, maximum %d", ErrFileTooLarge, src.Name(), src.Size(), o.MaxFileSize)
	}

	return nil
}

// typeAllowed matches FileType entries against the extension or the MIME type.
// "image/*" matches any image type.
func (r *Resumable) typeAllowed(src Source) bool {
	if len(r.opts.FileType) == 0 {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(src.Name()), "."))
	mimeType, _, err := mime.ParseMediaType(src.Type())
	if err != nil {
		mimeType = strings.ToLower(src.Type())
	}

	for _, want := range r.opts.FileType {
		want = strings.ToLower(strings.TrimPrefix(want, "."))

		switch {
		case strings.HasSuffix(want, "/*"):
			if strings.HasPrefix(mimeType, strings.TrimSuffix(want, "*")) {
				return true
			}
		case strings.Contains(want, "/"):
			if mimeType == want {
				return true
			}
		case want == ext:
			return true
		}
	}

	return false
}

func (r *Resumable) appendFile(f *File) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.files {
		if existing.UniqueIdentifier == f.UniqueIdentifier {
			return false
		}
	}

	r.files = append(r.files, f)
	r.completeFired = false

	return true
}

// RemoveFile drops the file with the given identifier and aborts its chunks.
func (r *Resumable) RemoveFile(id string) {
	r.mu.Lock()
	var removed *File
	r.files = slices.DeleteFunc(r.files, func(f *File) bool {
		if f.UniqueIdentifier == id && removed == nil {
			removed = f
			return true
		}

		return false
	})
	r.mu.Unlock()

	if removed != nil {
		removed.Abort()
	}
}

// Upload starts the configured number of concurrent chunk transfers. It
// does nothing while an upload is running.
func (r *Resumable) Upload() {
	if r.IsUploading() || r.isClosed() {
		return
	}

	r.Fire(Event{Name: EventUploadStart})

	for i := 0; i < r.opts.SimultaneousUploads; i++ {
		r.UploadNextChunk()
	}
}

// UploadNextChunk starts the next pending chunk and reports whether one was
// started. When nothing is left and every file is done it fires complete.
func (r *Resumable) UploadNextChunk() bool {
	if r.isClosed() {
		return false
	}

	files := r.Files()

	if r.opts.PrioritizeFirstAndLastChunk {
		for _, f := range files {
			if f.IsPaused() {
				continue
			}

			chunks := f.Chunks()
			if len(chunks) == 0 {
				continue
			}

			if r.startChunk(chunks[0]) || r.startChunk(chunks[len(chunks)-1]) {
				return true
			}
		}
	}

	for _, f := range files {
		if f.IsPaused() {
			continue
		}

		for _, c := range f.Chunks() {
			if r.startChunk(c) {
				return true
			}
		}
	}

	for _, f := range files {
		if !f.IsComplete() {
			return false
		}
	}

	r.mu.Lock()
	fire := !r.completeFired
	r.completeFired = true
	r.mu.Unlock()

	if fire {
		r.Fire(Event{Name: EventComplete})
	}

	return false
}

func (r *Resumable) startChunk(c *Chunk) bool {
	if !c.claim() {
		return false
	}

	c.start(r.ctx, r.transport)

	return true
}

func (r *Resumable) resetComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completeFired = false
}

// Pause aborts in-flight chunks; Upload picks them up again.
func (r *Resumable) Pause() {
	for _, f := range r.Files() {
		f.Abort()
	}

	r.Fire(Event{Name: EventPause})
}

// Cancel removes every file.
func (r *Resumable) Cancel() {
	r.Fire(Event{Name: EventBeforeCancel})

	for _, f := range r.Files() {
		f.Cancel()
	}

	r.Fire(Event{Name: EventCancel})
}

// Close stops watchers and browse readers and cancels in-flight chunks.
// The uploader cannot be used afterwards.
func (r *Resumable) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	r.closed = true
	drops := r.drops
	r.drops = make(map[string]*dropZone)
	browsers := r.browsers
	r.browsers = nil
	r.mu.Unlock()

	r.cancel()

	var errs []error
	for _, d := range drops {
		errs = append(errs, d.close())
	}

	for _, b := range browsers {
		b.stop()
	}

	return errors.Join(errs...)
}

func (r *Resumable) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.closed
}

// restore marks chunks the state store says the server already accepted
// and reports whether that left nothing to send.
func (r *Resumable) restore(f *File) bool {
	store := r.opts.StateStore
	if store == nil {
		return false
	}

	state, err := store.Find(f.UniqueIdentifier)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			logger.Warnf("Failed to load state for %s: %v", f.UniqueIdentifier, err)
		}

		return false
	}

	if state.Size != f.Size || state.ChunkSize != r.opts.ChunkSize {
		logger.Infof("Discarding stale state for %s", f.UniqueIdentifier)

		if err := store.Delete(f.UniqueIdentifier); err != nil {
			logger.Warnf("Failed to delete state for %s: %v", f.UniqueIdentifier, err)
		}

		return false
	}

	chunks := f.Chunks()
	for _, n := range state.Completed {
		if n >= 1 && n <= len(chunks) {
			chunks[n-1].markComplete()
		}
	}

	logger.Infof("Resumed %s with %d of %d chunks done", f.UniqueIdentifier, len(state.Completed), len(chunks))

	return len(chunks) > 0 && f.IsComplete()
}

func (r *Resumable) rememberChunk(f *File, c *Chunk) {
	store := r.opts.StateStore
	if store == nil {
		return
	}

	state := UploadState{
		Identifier: f.UniqueIdentifier,
		FileName:   f.FileName,
		Size:       f.Size,
		ChunkSize:  r.opts.ChunkSize,
	}

	if err := store.MarkChunk(state, c.Number()); err != nil {
		logger.Warnf("Failed to record chunk %d of %s: %v", c.Number(), f.UniqueIdentifier, err)
	}
}

func (r *Resumable) forget(f *File) {
	store := r.opts.StateStore
	if store == nil {
		return
	}

	if err := store.Delete(f.UniqueIdentifier); err != nil {
		logger.Warnf("Failed to delete state for %s: %v", f.UniqueIdentifier, err)
	}
}
