package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/NamanBalaji/resumable/pkg/resumable"
)

const configFileName = "resumable"

// Config holds the configuration options for the application.
type Config struct {
	Upload  *UploadConfig `yaml:"upload,omitempty"`
	Server  *ServerConfig `yaml:"server,omitempty"`
	StateDB string        `yaml:"stateDb,omitempty"`
	LogFile string        `yaml:"logFile,omitempty"`
}

// UploadConfig holds client options. Sizes are human readable ("512KiB", "4MB").
type UploadConfig struct {
	Target                      string            `yaml:"target,omitempty"`
	ChunkSize                   string            `yaml:"chunkSize,omitempty"`
	SimultaneousUploads         int               `yaml:"simultaneousUploads,omitempty"`
	Method                      string            `yaml:"method,omitempty"`
	MaxChunkRetries             int               `yaml:"maxChunkRetries,omitempty"`
	ChunkRetryInterval          time.Duration     `yaml:"chunkRetryInterval,omitempty"`
	RequestTimeout              time.Duration     `yaml:"requestTimeout,omitempty"`
	DisableTestChunks           bool              `yaml:"disableTestChunks,omitempty"`
	PrioritizeFirstAndLastChunk bool              `yaml:"prioritizeFirstAndLastChunk,omitempty"`
	ChunkChecksum               bool              `yaml:"chunkChecksum,omitempty"`
	MaxFileSize                 string            `yaml:"maxFileSize,omitempty"`
	FileType                    []string          `yaml:"fileType,omitempty"`
	Ignore                      []string          `yaml:"ignore,omitempty"`
	Headers                     map[string]string `yaml:"headers,omitempty"`
	Query                       map[string]string `yaml:"query,omitempty"`
	DropSettle                  time.Duration     `yaml:"dropSettle,omitempty"`
}

// ServerConfig holds options of the receiving server.
type ServerConfig struct {
	Addr         string `yaml:"addr,omitempty"`
	Dir          string `yaml:"dir,omitempty"`
	Path         string `yaml:"path,omitempty"`
	MaxChunkSize string `yaml:"maxChunkSize,omitempty"`
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func GetConfig() (*Config, error) {
	configFilePath := filepath.Join(xdg.ConfigHome, configFileName)
	defaults := DefaultConfig()

	b, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	up := zeroOr(cfg.Upload, defaults.Upload)
	srv := zeroOr(cfg.Server, defaults.Server)

	return &Config{
		Upload: &UploadConfig{
			Target:                      zeroOr(up.Target, defaults.Upload.Target),
			ChunkSize:                   zeroOr(up.ChunkSize, defaults.Upload.ChunkSize),
			SimultaneousUploads:         zeroOr(up.SimultaneousUploads, defaults.Upload.SimultaneousUploads),
			Method:                      zeroOr(up.Method, defaults.Upload.Method),
			MaxChunkRetries:             zeroOr(up.MaxChunkRetries, defaults.Upload.MaxChunkRetries),
			ChunkRetryInterval:          zeroOr(up.ChunkRetryInterval, defaults.Upload.ChunkRetryInterval),
			RequestTimeout:              up.RequestTimeout,
			DisableTestChunks:           up.DisableTestChunks,
			PrioritizeFirstAndLastChunk: up.PrioritizeFirstAndLastChunk,
			ChunkChecksum:               up.ChunkChecksum,
			MaxFileSize:                 up.MaxFileSize,
			FileType:                    up.FileType,
			Ignore:                      up.Ignore,
			Headers:                     up.Headers,
			Query:                       up.Query,
			DropSettle:                  zeroOr(up.DropSettle, defaults.Upload.DropSettle),
		},
		Server: &ServerConfig{
			Addr:         zeroOr(srv.Addr, defaults.Server.Addr),
			Dir:          zeroOr(srv.Dir, defaults.Server.Dir),
			Path:         zeroOr(srv.Path, defaults.Server.Path),
			MaxChunkSize: zeroOr(srv.MaxChunkSize, defaults.Server.MaxChunkSize),
		},
		StateDB: zeroOr(cfg.StateDB, defaults.StateDB),
		LogFile: zeroOr(cfg.LogFile, defaults.LogFile),
	}, nil
}

func DefaultConfig() Config {
	return Config{
		Upload: &UploadConfig{
			Target:              target,
			ChunkSize:           chunkSize,
			SimultaneousUploads: simultaneousUploads,
			Method:              method,
			MaxChunkRetries:     maxChunkRetries,
			ChunkRetryInterval:  chunkRetryInterval,
			DropSettle:          dropSettle,
		},
		Server: &ServerConfig{
			Addr:         serverAddr,
			Dir:          serverDir,
			Path:         serverPath,
			MaxChunkSize: serverMaxChunkSize,
		},
		StateDB: stateDB,
		LogFile: logFile,
	}
}

// Options converts the upload section into client options.
func (u *UploadConfig) Options() ([]resumable.Option, error) {
	size, err := parseSize("chunkSize", u.ChunkSize)
	if err != nil {
		return nil, err
	}

	opts := []resumable.Option{
		resumable.WithTarget(u.Target),
		resumable.WithChunkSize(size),
		resumable.WithSimultaneousUploads(u.SimultaneousUploads),
		resumable.WithMethod(u.Method),
		resumable.WithMaxChunkRetries(u.MaxChunkRetries),
		resumable.WithChunkRetryInterval(u.ChunkRetryInterval),
		resumable.WithRequestTimeout(u.RequestTimeout),
		resumable.WithTestChunks(!u.DisableTestChunks),
		resumable.WithPrioritizeFirstAndLastChunk(u.PrioritizeFirstAndLastChunk),
		resumable.WithChunkChecksum(u.ChunkChecksum),
		resumable.WithHeaders(u.Headers),
		resumable.WithQuery(u.Query),
		resumable.WithDropSettle(u.DropSettle),
	}

	if u.MaxFileSize != "" {
		maxSize, err := parseSize("maxFileSize", u.MaxFileSize)
		if err != nil {
			return nil, err
		}

		opts = append(opts, resumable.WithMaxFileSize(maxSize))
	}

	if len(u.FileType) > 0 {
		opts = append(opts, resumable.WithFileType(u.FileType...))
	}

	if len(u.Ignore) > 0 {
		opts = append(opts, resumable.WithIgnore(u.Ignore...))
	}

	return opts, nil
}

// MaxChunkBytes parses MaxChunkSize.
func (s *ServerConfig) MaxChunkBytes() (int64, error) {
	return parseSize("maxChunkSize", s.MaxChunkSize)
}

func parseSize(field, v string) (int64, error) {
	n, err := units.RAMInBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, v, err)
	}

	return n, nil
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
