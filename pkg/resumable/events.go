package resumable

import "strings"

const (
	EventFileAdded        = "fileAdded"
	EventFilesAdded       = "filesAdded"
	EventFileSuccess      = "fileSuccess"
	EventFileProgress     = "fileProgress"
	EventFileRetry        = "fileRetry"
	EventFileError        = "fileError"
	EventUploadStart      = "uploadStart"
	EventComplete         = "complete"
	EventProgress         = "progress"
	EventError            = "error"
	EventPause            = "pause"
	EventBeforeCancel     = "beforeCancel"
	EventCancel           = "cancel"
	EventChunkingStart    = "chunkingStart"
	EventChunkingProgress = "chunkingProgress"
	EventChunkingComplete = "chunkingComplete"

	// EventCatchAll handlers receive every event.
	EventCatchAll = "catchAll"
)

// Event describes something that happened to the uploader. Only the fields
// relevant to Name are set.
type Event struct {
	Name    string
	File    *File
	Files   []*File
	Skipped []*File
	Chunk   *Chunk
	Message string
	Trigger any

	// Progress is set on chunkingProgress.
	Progress float64
}

type Handler func(Event)

// On registers fn for the named event. Names are case-insensitive.
func (r *Resumable) On(name string, fn Handler) {
	if fn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(name)
	r.handlers[key] = append(r.handlers[key], fn)
}

// Fire delivers ev to its handlers and to catch-all handlers. File errors
// and file progress are re-fired as their uploader-level counterparts.
func (r *Resumable) Fire(ev Event) {
	key := strings.ToLower(ev.Name)

	r.mu.RLock()
	named := append([]Handler(nil), r.handlers[key]...)

	var all []Handler
	if key != strings.ToLower(EventCatchAll) {
		all = append(all, r.handlers[strings.ToLower(EventCatchAll)]...)
	}
	r.mu.RUnlock()

	for _, fn := range named {
		fn(ev)
	}

	for _, fn := range all {
		fn(ev)
	}

	switch key {
	case strings.ToLower(EventFileError):
		next := ev
		next.Name = EventError
		r.Fire(next)
	case strings.ToLower(EventFileProgress):
		next := ev
		next.Name = EventProgress
		r.Fire(next)
	}
}
