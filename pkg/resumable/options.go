package resumable

import (
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/NamanBalaji/resumable/internal/validator"
)

const (
	MethodMultipart = "multipart"
	MethodOctet     = "octet"

	defaultTarget              = "http://localhost:8080/upload"
	defaultChunkSize     int64 = 1024 * 1024
	defaultSimultaneous        = 3
	defaultMaxChunkRetries     = 100
	defaultDropSettle          = 500 * time.Millisecond
)

// ParamNames are the request parameter names of the upload protocol.
type ParamNames struct {
	ChunkNumber      string `validate:"required"`
	ChunkSize        string `validate:"required"`
	CurrentChunkSize string `validate:"required"`
	TotalSize        string `validate:"required"`
	Type             string `validate:"required"`
	Identifier       string `validate:"required"`
	FileName         string `validate:"required"`
	RelativePath     string `validate:"required"`
	TotalChunks      string `validate:"required"`
	Checksum         string `validate:"required"`
}

// DefaultParamNames returns the parameter names servers of the protocol expect.
func DefaultParamNames() ParamNames {
	return ParamNames{
		ChunkNumber:      "resumableChunkNumber",
		ChunkSize:        "resumableChunkSize",
		CurrentChunkSize: "resumableCurrentChunkSize",
		TotalSize:        "resumableTotalSize",
		Type:             "resumableType",
		Identifier:       "resumableIdentifier",
		FileName:         "resumableFilename",
		RelativePath:     "resumableRelativePath",
		TotalChunks:      "resumableTotalChunks",
		Checksum:         "resumableChunkChecksum",
	}
}

// Options configures a Resumable. Build it with Option values passed to New.
type Options struct {
	Target              string     `validate:"required,url"`
	ChunkSize           int64      `validate:"gt=0"`
	ForceChunkSize      bool
	SimultaneousUploads int        `validate:"min=1"`
	FileParameterName   string     `validate:"required"`
	Params              ParamNames `validate:"required"`

	Query   map[string]string
	Headers map[string]string

	Method       string `validate:"oneof=multipart octet"`
	UploadMethod string `validate:"oneof=POST PUT PATCH"`
	TestMethod   string `validate:"oneof=GET HEAD POST"`
	TestChunks   bool

	PrioritizeFirstAndLastChunk bool

	GenerateUniqueIdentifier func(Source) string `validate:"-"`

	MaxFiles    int      `validate:"min=0"`
	MinFileSize int64    `validate:"min=0"`
	MaxFileSize int64    `validate:"min=0"`
	FileType    []string `validate:"dive,required"`
	Ignore      []string `validate:"dive,required"`

	MaxChunkRetries      int           `validate:"min=0"`
	ChunkRetryInterval   time.Duration `validate:"gte=0"`
	PermanentErrors      []int         `validate:"dive,gte=100,lte=599"`
	RequestTimeout       time.Duration `validate:"gte=0"`
	SetChunkTypeFromFile bool
	ChunkChecksum        bool

	DropSettle time.Duration `validate:"gte=0"`

	StateStore StateStore   `validate:"-"`
	HTTPClient *http.Client `validate:"-"`
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Target:              defaultTarget,
		ChunkSize:           defaultChunkSize,
		SimultaneousUploads: defaultSimultaneous,
		FileParameterName:   "file",
		Params:              DefaultParamNames(),
		Query:               make(map[string]string),
		Headers:             make(map[string]string),
		Method:              MethodMultipart,
		UploadMethod:        http.MethodPost,
		TestMethod:          http.MethodGet,
		TestChunks:          true,
		MinFileSize:         1,
		MaxChunkRetries:     defaultMaxChunkRetries,
		PermanentErrors:     []int{400, 404, 409, 415, 500, 501},
		DropSettle:          defaultDropSettle,
	}
}

func (o *Options) validate() error {
	if err := validator.Validate(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	return nil
}

func (o *Options) clone() Options {
	c := *o
	c.Query = maps.Clone(o.Query)
	c.Headers = maps.Clone(o.Headers)
	c.FileType = slices.Clone(o.FileType)
	c.Ignore = slices.Clone(o.Ignore)
	c.PermanentErrors = slices.Clone(o.PermanentErrors)

	return c
}

func (o *Options) uniqueIdentifier(src Source) string {
	if o.GenerateUniqueIdentifier != nil {
		return o.GenerateUniqueIdentifier(src)
	}

	return DefaultUniqueIdentifier(src)
}

var nonIdentifierChars = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

// DefaultUniqueIdentifier derives an identifier from the size and relative path of src.
func DefaultUniqueIdentifier(src Source) string {
	return strconv.FormatInt(src.Size(), 10) + "-" + nonIdentifierChars.ReplaceAllString(src.RelativePath(), "")
}

func WithTarget(target string) Option {
	return func(o *Options) {
		o.Target = target
	}
}

func WithChunkSize(size int64) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

func WithForceChunkSize(force bool) Option {
	return func(o *Options) {
		o.ForceChunkSize = force
	}
}

func WithSimultaneousUploads(n int) Option {
	return func(o *Options) {
		o.SimultaneousUploads = n
	}
}

func WithFileParameterName(name string) Option {
	return func(o *Options) {
		o.FileParameterName = name
	}
}

func WithParamNames(names ParamNames) Option {
	return func(o *Options) {
		o.Params = names
	}
}

// WithQuery adds extra parameters to every test and upload request.
func WithQuery(query map[string]string) Option {
	return func(o *Options) {
		for k, v := range query {
			o.Query[k] = v
		}
	}
}

func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithMethod selects how chunk bytes are sent: MethodMultipart or MethodOctet.
func WithMethod(method string) Option {
	return func(o *Options) {
		o.Method = method
	}
}

func WithUploadMethod(method string) Option {
	return func(o *Options) {
		o.UploadMethod = method
	}
}

func WithTestMethod(method string) Option {
	return func(o *Options) {
		o.TestMethod = method
	}
}

func WithTestChunks(test bool) Option {
	return func(o *Options) {
		o.TestChunks = test
	}
}

func WithPrioritizeFirstAndLastChunk(prioritize bool) Option {
	return func(o *Options) {
		o.PrioritizeFirstAndLastChunk = prioritize
	}
}

func WithUniqueIdentifier(fn func(Source) string) Option {
	return func(o *Options) {
		o.GenerateUniqueIdentifier = fn
	}
}

func WithMaxFiles(n int) Option {
	return func(o *Options) {
		o.MaxFiles = n
	}
}

func WithMinFileSize(size int64) Option {
	return func(o *Options) {
		o.MinFileSize = size
	}
}

func WithMaxFileSize(size int64) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithFileType restricts accepted files to extensions ("png") or MIME patterns ("image/*").
func WithFileType(types ...string) Option {
	return func(o *Options) {
		o.FileType = types
	}
}

// WithIgnore skips browsed or dropped files whose relative path matches one of the globs.
func WithIgnore(patterns ...string) Option {
	return func(o *Options) {
		o.Ignore = patterns
	}
}

func WithMaxChunkRetries(n int) Option {
	return func(o *Options) {
		o.MaxChunkRetries = n
	}
}

func WithChunkRetryInterval(d time.Duration) Option {
	return func(o *Options) {
		o.ChunkRetryInterval = d
	}
}

func WithPermanentErrors(codes ...int) Option {
	return func(o *Options) {
		o.PermanentErrors = codes
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

func WithChunkTypeFromFile(set bool) Option {
	return func(o *Options) {
		o.SetChunkTypeFromFile = set
	}
}

// WithChunkChecksum sends a blake3 digest of every chunk.
func WithChunkChecksum(enabled bool) Option {
	return func(o *Options) {
		o.ChunkChecksum = enabled
	}
}

func WithDropSettle(d time.Duration) Option {
	return func(o *Options) {
		o.DropSettle = d
	}
}

func WithStateStore(store StateStore) Option {
	return func(o *Options) {
		o.StateStore = store
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}
