package resumable

// Status is the state of a single chunk.
type Status int32

const (
	Pending Status = iota
	Uploading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Uploading:
		return "uploading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
