package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/adrg/xdg"

	cfg "github.com/NamanBalaji/resumable/internal/config"
	"github.com/NamanBalaji/resumable/pkg/resumable"
)

func withTempConfigHome(t *testing.T) (restore func(), dir string, file string) {
	t.Helper()
	orig := xdg.ConfigHome
	dir = t.TempDir()
	xdg.ConfigHome = dir
	restore = func() { xdg.ConfigHome = orig }
	file = filepath.Join(dir, "resumable")
	return
}

func TestGetConfig_Table(t *testing.T) {
	restore, _, cfgFile := withTempConfigHome(t)
	defer restore()

	def := cfg.DefaultConfig()

	tests := []struct {
		name      string
		preWrite  bool
		contents  string
		expectErr bool
		check     func(t *testing.T, got *cfg.Config, def cfg.Config)
	}{
		{
			name:     "missing_file_returns_defaults",
			preWrite: false,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if !reflect.DeepEqual(*got, def) {
					t.Fatalf("expected defaults\nwant: %#v\ngot:  %#v", def, *got)
				}
			},
		},
		{
			name:     "empty_file_returns_defaults",
			preWrite: true,
			contents: "",
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if !reflect.DeepEqual(*got, def) {
					t.Fatalf("expected defaults\nwant: %#v\ngot:  %#v", def, *got)
				}
			},
		},
		{
			name:      "invalid_yaml_returns_error",
			preWrite:  true,
			contents:  ": not yaml",
			expectErr: true,
			check:     func(t *testing.T, _ *cfg.Config, _ cfg.Config) {},
		},
		{
			name:     "no_sections_uses_defaults_for_nested",
			preWrite: true,
			contents: "stateDb: /tmp/state.db\n",
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if got.StateDB != "/tmp/state.db" {
					t.Fatalf("stateDb not applied, got %q", got.StateDB)
				}
				if !reflect.DeepEqual(*got.Upload, *def.Upload) {
					t.Fatalf("upload defaults not applied\nwant: %#v\ngot:  %#v", *def.Upload, *got.Upload)
				}
				if !reflect.DeepEqual(*got.Server, *def.Server) {
					t.Fatalf("server defaults not applied\nwant: %#v\ngot:  %#v", *def.Server, *got.Server)
				}
			},
		},
		{
			name:     "partial_override_and_fallback",
			preWrite: true,
			contents: `
upload:
  target: https://files.example.com/upload
  chunkSize: 4MiB
  chunkRetryInterval: 3s
  disableTestChunks: true
  headers:
    Authorization: Bearer abc
  ignore:
    - "**/*.tmp"
server:
  addr: ":9000"
`,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if got.Upload.Target != "https://files.example.com/upload" {
					t.Fatalf("want upload.target override got %q", got.Upload.Target)
				}
				if got.Upload.ChunkSize != "4MiB" {
					t.Fatalf("want upload.chunkSize=4MiB got %q", got.Upload.ChunkSize)
				}
				if got.Upload.ChunkRetryInterval != 3*time.Second {
					t.Fatalf("want upload.chunkRetryInterval=3s got %s", got.Upload.ChunkRetryInterval)
				}
				if !got.Upload.DisableTestChunks {
					t.Fatalf("want upload.disableTestChunks=true")
				}
				if got.Upload.Headers["Authorization"] != "Bearer abc" {
					t.Fatalf("headers not applied: %v", got.Upload.Headers)
				}
				if len(got.Upload.Ignore) != 1 {
					t.Fatalf("ignore not applied: %v", got.Upload.Ignore)
				}
				if got.Upload.SimultaneousUploads != def.Upload.SimultaneousUploads {
					t.Fatalf("want simultaneousUploads default %d got %d", def.Upload.SimultaneousUploads, got.Upload.SimultaneousUploads)
				}
				if got.Upload.Method != def.Upload.Method {
					t.Fatalf("want method default %q got %q", def.Upload.Method, got.Upload.Method)
				}
				if got.Server.Addr != ":9000" {
					t.Fatalf("want server.addr=:9000 got %q", got.Server.Addr)
				}
				if got.Server.Dir != def.Server.Dir {
					t.Fatalf("want server.dir default %q got %q", def.Server.Dir, got.Server.Dir)
				}
				if got.LogFile != def.LogFile {
					t.Fatalf("want logFile default %q got %q", def.LogFile, got.LogFile)
				}
			},
		},
		{
			name:     "explicit_zero_values_fall_back_to_defaults",
			preWrite: true,
			contents: `
upload:
  simultaneousUploads: 0
  target: ""
  dropSettle: 0s
server:
  path: ""
`,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if got.Upload.SimultaneousUploads != def.Upload.SimultaneousUploads {
					t.Fatalf("simultaneousUploads zero should fallback. want %d got %d", def.Upload.SimultaneousUploads, got.Upload.SimultaneousUploads)
				}
				if got.Upload.Target != def.Upload.Target {
					t.Fatalf("target empty should fallback. want %q got %q", def.Upload.Target, got.Upload.Target)
				}
				if got.Upload.DropSettle != def.Upload.DropSettle {
					t.Fatalf("dropSettle zero should fallback. want %s got %s", def.Upload.DropSettle, got.Upload.DropSettle)
				}
				if got.Server.Path != def.Server.Path {
					t.Fatalf("path empty should fallback. want %q got %q", def.Server.Path, got.Server.Path)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// clean start each subtest
			_ = os.Remove(cfgFile)
			if tc.preWrite {
				if err := os.WriteFile(cfgFile, []byte(tc.contents), 0o600); err != nil {
					t.Fatalf("write test config: %v", err)
				}
			}
			got, err := cfg.GetConfig()
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetConfig error: %v", err)
			}
			tc.check(t, got, def)
		})
	}
}

func TestDefaultConfig_NonNilPointers(t *testing.T) {
	d := cfg.DefaultConfig()
	if d.Upload == nil {
		t.Fatalf("DefaultConfig.Upload is nil")
	}
	if d.Server == nil {
		t.Fatalf("DefaultConfig.Server is nil")
	}
}

func TestUploadOptions(t *testing.T) {
	up := cfg.DefaultConfig().Upload
	up.ChunkSize = "512KiB"
	up.MaxFileSize = "2GB"
	up.FileType = []string{"png"}
	up.DisableTestChunks = true

	opts, err := up.Options()
	if err != nil {
		t.Fatalf("Options error: %v", err)
	}

	r, err := resumable.New(opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer r.Close()

	got := r.Opts()
	if got.ChunkSize != 512*1024 {
		t.Errorf("want chunk size %d got %d", 512*1024, got.ChunkSize)
	}
	if got.MaxFileSize != 2*1024*1024*1024 {
		t.Errorf("want max file size 2GiB got %d", got.MaxFileSize)
	}
	if got.TestChunks {
		t.Errorf("want test chunks disabled")
	}
	if !reflect.DeepEqual(got.FileType, []string{"png"}) {
		t.Errorf("want file type [png] got %v", got.FileType)
	}
	if got.MaxChunkRetries != 100 {
		t.Errorf("want max chunk retries 100 got %d", got.MaxChunkRetries)
	}
}

func TestInvalidSizes(t *testing.T) {
	up := cfg.DefaultConfig().Upload
	up.ChunkSize = "lots"
	if _, err := up.Options(); err == nil {
		t.Errorf("expected error for bad chunk size")
	}

	srv := cfg.DefaultConfig().Server
	srv.MaxChunkSize = "-1"
	if _, err := srv.MaxChunkBytes(); err == nil {
		t.Errorf("expected error for bad max chunk size")
	}

	srv.MaxChunkSize = "8MiB"
	n, err := srv.MaxChunkBytes()
	if err != nil || n != 8*1024*1024 {
		t.Errorf("want 8MiB got %d (%v)", n, err)
	}
}
