package resumable

// Uploader is the public surface of a Resumable.
type Uploader interface {
	AddFile(src Source, trigger any) error
	AddFiles(srcs []Source, trigger any) error
	AssignBrowse(target BrowseTarget, isDirectory bool) error
	AssignDrop(target DropTarget) error
	Cancel()
	Files() []*File
	Fire(ev Event)
	GetFromUniqueIdentifier(id string) *File
	GetSize() int64
	HandleChangeEvent(ev ChangeEvent) error
	HandleDropEvent(ev DropEvent) error
	IsUploading() bool
	On(name string, fn Handler)
	Opts() Options
	Pause()
	Progress() float64
	RemoveFile(id string)
	Support() bool
	UnAssignDrop(target DropTarget) error
	Upload()
	UploadNextChunk() bool
	Version() float64
	Close() error
}

var _ Uploader = (*Resumable)(nil)
