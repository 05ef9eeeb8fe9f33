package resumable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/NamanBalaji/resumable/internal/logger"
)

// BrowseTarget is one or more streams of selected paths, one path per line.
type BrowseTarget interface {
	browseReaders() []io.Reader
}

type inputs []io.Reader

func (in inputs) browseReaders() []io.Reader { return in }

func Input(r io.Reader) BrowseTarget {
	return inputs{r}
}

func Inputs(rs ...io.Reader) BrowseTarget {
	return inputs(rs)
}

// DropTarget is one or more directories that files can be dropped into.
type DropTarget interface {
	dropDirs() []string
}

type Dir string

func (d Dir) dropDirs() []string { return []string{string(d)} }

type Dirs []string

func (d Dirs) dropDirs() []string { return d }

// ChangeEvent is a selection made through a browse target.
type ChangeEvent struct {
	Paths     []string
	Directory bool
}

// DropEvent lists paths that appeared in a drop target.
type DropEvent struct {
	Paths []string
}

// AssignBrowse reads selections from every stream of target until it ends.
// With isDirectory set, each selection is a directory whose files are added.
//
// Close closes streams that implement io.Closer. Other streams, os.Stdin
// included, keep their reading goroutine blocked until the next line or
// EOF arrives; that line is dropped.
func (r *Resumable) AssignBrowse(target BrowseTarget, isDirectory bool) error {
	if target == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	for _, in := range target.browseReaders() {
		if in == nil {
			continue
		}

		b := &browseReader{r: in, owner: r, directory: isDirectory}
		r.browsers = append(r.browsers, b)

		go b.run()
	}

	return nil
}

// HandleChangeEvent adds the files of a browse selection.
func (r *Resumable) HandleChangeEvent(ev ChangeEvent) error {
	return r.addPaths(ev.Paths, ev.Directory, ev)
}

// HandleDropEvent adds dropped files; dropped directories are walked.
func (r *Resumable) HandleDropEvent(ev DropEvent) error {
	return r.addPaths(ev.Paths, true, ev)
}

func (r *Resumable) addPaths(paths []string, walkDirs bool, trigger any) error {
	if len(paths) == 0 {
		return nil
	}

	srcs, err := r.resolve(r.ctx, paths, walkDirs)
	if len(srcs) == 0 {
		return err
	}

	return errors.Join(err, r.AddFiles(srcs, trigger))
}

type browseReader struct {
	r         io.Reader
	owner     *Resumable
	directory bool
	stopped   atomic.Bool
}

func (b *browseReader) run() {
	sc := bufio.NewScanner(b.r)
	for sc.Scan() {
		if b.stopped.Load() {
			return
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		err := b.owner.HandleChangeEvent(ChangeEvent{Paths: []string{line}, Directory: b.directory})
		if err != nil {
			logger.Warnf("Failed to add %s: %v", line, err)
			b.owner.Fire(Event{Name: EventError, Message: err.Error()})
		}
	}

	if err := sc.Err(); err != nil && !b.stopped.Load() {
		logger.Errorf("Browse input failed: %v", err)
	}
}

func (b *browseReader) stop() {
	b.stopped.Store(true)

	if c, ok := b.r.(io.Closer); ok && b.r != os.Stdin {
		c.Close()
	}
}

// AssignDrop watches the directories of target. Files created there are
// added once they have been quiet for DropSettle.
func (r *Resumable) AssignDrop(target DropTarget) error {
	if target == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	for _, dir := range target.dropDirs() {
		dir = filepath.Clean(dir)
		if _, ok := r.drops[dir]; ok {
			continue
		}

		info, err := os.Stat(dir)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}

		zone, err := newDropZone(r, dir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}

		r.drops[dir] = zone
		logger.Infof("Watching %s for dropped files", dir)
	}

	return nil
}

// UnAssignDrop stops watching the directories of target.
func (r *Resumable) UnAssignDrop(target DropTarget) error {
	if target == nil {
		return nil
	}

	var zones []*dropZone

	r.mu.Lock()
	for _, dir := range target.dropDirs() {
		dir = filepath.Clean(dir)
		if zone, ok := r.drops[dir]; ok {
			zones = append(zones, zone)
			delete(r.drops, dir)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, zone := range zones {
		errs = append(errs, zone.close())
	}

	return errors.Join(errs...)
}

// dropZone batches file system events of one directory into drop events.
type dropZone struct {
	owner   *Resumable
	dir     string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	done chan struct{}
}

func newDropZone(owner *Resumable, dir string) (*dropZone, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	z := &dropZone{
		owner:   owner,
		dir:     dir,
		watcher: w,
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}

	go z.loop()

	return z, nil
}

func (z *dropZone) loop() {
	defer close(z.done)

	for {
		select {
		case ev, ok := <-z.watcher.Events:
			if !ok {
				return
			}

			z.handle(ev)
		case err, ok := <-z.watcher.Errors:
			if !ok {
				return
			}

			logger.Errorf("Watcher error on %s: %v", z.dir, err)
		}
	}
}

func (z *dropZone) handle(ev fsnotify.Event) {
	if hidden(filepath.Base(ev.Name)) {
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		z.pending[ev.Name] = struct{}{}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(z.pending, ev.Name)
	default:
		return
	}

	if len(z.pending) == 0 {
		return
	}

	// every change restarts the quiet period
	if z.timer != nil {
		z.timer.Stop()
	}

	z.timer = time.AfterFunc(z.owner.opts.DropSettle, z.flush)
}

func (z *dropZone) flush() {
	z.mu.Lock()
	paths := make([]string, 0, len(z.pending))
	for p := range z.pending {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	z.pending = make(map[string]struct{})
	z.timer = nil
	z.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	slices.Sort(paths)

	logger.Debugf("Dropped into %s: %v", z.dir, paths)

	if err := z.owner.HandleDropEvent(DropEvent{Paths: paths}); err != nil {
		logger.Warnf("Failed to add dropped files: %v", err)
		z.owner.Fire(Event{Name: EventError, Message: err.Error()})
	}
}

func (z *dropZone) close() error {
	err := z.watcher.Close()
	<-z.done

	z.mu.Lock()
	if z.timer != nil {
		z.timer.Stop()
		z.timer = nil
	}
	z.mu.Unlock()

	return err
}
