package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/resumable/internal/tui/components"
	"github.com/NamanBalaji/resumable/pkg/resumable"
)

// Run starts the upload and shows its progress until the user quits.
func Run(ctx context.Context, r *resumable.Resumable) error {
	m := NewModel(newUploaderActions(r))
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	r.On(resumable.EventError, func(ev resumable.Event) {
		p.Send(uploadError{ev.Message})
	})
	r.On(resumable.EventComplete, func(resumable.Event) {
		p.Send(uploadDone{})
	})

	_, err := p.Run()

	return err
}

type uploaderActions struct {
	Start     func()
	Pause     func(id string)
	Resume    func(id string)
	PauseAll  func()
	ResumeAll func()
	Retry     func(id string)
	Cancel    func(id string)
	GetAll    func() []components.FileInfo
}

func newUploaderActions(r *resumable.Resumable) uploaderActions {
	withFile := func(fn func(*resumable.File)) func(string) {
		return func(id string) {
			if f := r.GetFromUniqueIdentifier(id); f != nil {
				fn(f)
			}
		}
	}

	return uploaderActions{
		Start: r.Upload,
		Pause: withFile(func(f *resumable.File) { f.Pause(true) }),
		Resume: withFile(func(f *resumable.File) {
			f.Pause(false)
			r.Upload()
		}),
		PauseAll:  r.Pause,
		ResumeAll: r.Upload,
		Retry: withFile(func(f *resumable.File) {
			if f.HasError() {
				f.Retry()
			}
		}),
		Cancel: withFile((*resumable.File).Cancel),
		GetAll: func() []components.FileInfo {
			return snapshot(r.Files())
		},
	}
}

func snapshot(files []*resumable.File) []components.FileInfo {
	infos := make([]components.FileInfo, 0, len(files))

	for _, f := range files {
		infos = append(infos, components.FileInfo{
			ID:       f.UniqueIdentifier,
			Name:     f.RelativePath,
			Size:     f.Size,
			Progress: f.Progress(),
			Chunks:   len(f.Chunks()),
			State:    stateOf(f),
		})
	}

	return infos
}

func stateOf(f *resumable.File) components.State {
	switch {
	case f.HasError():
		return components.Failed
	case len(f.Chunks()) > 0 && f.IsComplete():
		return components.Completed
	case f.IsPaused():
		return components.Paused
	case f.IsUploading():
		return components.Uploading
	default:
		return components.Queued
	}
}
