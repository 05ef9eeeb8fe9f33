package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/resumable/internal/config"
	"github.com/NamanBalaji/resumable/internal/logger"
	"github.com/NamanBalaji/resumable/internal/repository"
	"github.com/NamanBalaji/resumable/internal/tui"
	"github.com/NamanBalaji/resumable/pkg/resumable"
)

var errUploadFailed = errors.New("some files failed to upload")

var uploadCmd = &cobra.Command{
	Use:   "upload PATH...",
	Short: "Upload files and directories",
	Long: `Upload files and directories to the configured target. Directories are
walked recursively; hidden entries and ignore patterns are skipped.

Examples:
  # Upload a file in 4MB chunks
  resumable upload --chunk-size 4MB video.mp4

  # Upload a directory, remembering accepted chunks across runs
  resumable upload --resume ./photos

  # Watch progress in the terminal UI
  resumable upload --tui backup.tar`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var uploadFlags struct {
	target       string
	chunkSize    string
	method       string
	simultaneous int
	checksum     bool
	noTest       bool
	resume       bool
	useTUI       bool
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	addClientFlags(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadFlags.resume, "resume", false, "Remember accepted chunks so an interrupted upload can continue")
	uploadCmd.Flags().BoolVar(&uploadFlags.useTUI, "tui", false, "Show progress in a terminal UI")
}

func addClientFlags(c *cobra.Command) {
	c.Flags().StringVarP(&uploadFlags.target, "target", "t", "", "Upload endpoint (default from config)")
	c.Flags().StringVarP(&uploadFlags.chunkSize, "chunk-size", "s", "", "Chunk size, e.g. 1MiB (default from config)")
	c.Flags().StringVar(&uploadFlags.method, "method", "", "Request body encoding: multipart or octet")
	c.Flags().IntVarP(&uploadFlags.simultaneous, "simultaneous", "n", 0, "Concurrent chunk uploads (default from config)")
	c.Flags().BoolVar(&uploadFlags.checksum, "checksum", false, "Send a BLAKE3 checksum with every chunk")
	c.Flags().BoolVar(&uploadFlags.noTest, "no-test", false, "Skip asking the server for chunks it already has")
}

// clientOptions merges command-line flags over the upload config.
func clientOptions(c *cobra.Command, up config.UploadConfig) ([]resumable.Option, error) {
	flags := c.Flags()

	if flags.Changed("target") {
		up.Target = uploadFlags.target
	}

	if flags.Changed("chunk-size") {
		up.ChunkSize = uploadFlags.chunkSize
	}

	if flags.Changed("method") {
		up.Method = uploadFlags.method
	}

	if flags.Changed("simultaneous") {
		up.SimultaneousUploads = uploadFlags.simultaneous
	}

	if flags.Changed("checksum") {
		up.ChunkChecksum = uploadFlags.checksum
	}

	if flags.Changed("no-test") {
		up.DisableTestChunks = uploadFlags.noTest
	}

	return up.Options()
}

// openStateStore opens the state database, creating its directory if needed.
func openStateStore() (*repository.BboltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StateDB), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return repository.NewBboltRepository(cfg.StateDB)
}

func runUpload(c *cobra.Command, args []string) error {
	opts, err := clientOptions(c, *cfg.Upload)
	if err != nil {
		return err
	}

	if uploadFlags.resume {
		repo, err := openStateStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		opts = append(opts, resumable.WithStateStore(repo))
	}

	r, err := resumable.New(opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := c.OutOrStdout()

	if err := r.HandleDropEvent(resumable.DropEvent{Paths: args}); err != nil {
		fmt.Fprintf(c.ErrOrStderr(), "warning: %v\n", err)
	}

	files := r.Files()
	if len(files) == 0 {
		return errors.New("nothing to upload")
	}

	fmt.Fprintf(out, "uploading %d files (%s) to %s\n", len(files), units.HumanSize(float64(r.GetSize())), r.Opts().Target)

	if uploadFlags.useTUI {
		if err := tui.Run(ctx, r); err != nil {
			return err
		}

		return failed(r)
	}

	done := make(chan struct{})
	var once sync.Once

	report(r, out)
	r.On(resumable.EventComplete, func(resumable.Event) {
		once.Do(func() { close(done) })
	})

	r.Upload()

	select {
	case <-done:
	case <-ctx.Done():
		r.Pause()
		logger.Infof("Upload interrupted at %.1f%%", r.Progress()*100)

		return ctx.Err()
	}

	return failed(r)
}

// report prints a line per finished or failed file.
func report(r *resumable.Resumable, out io.Writer) {
	var mu sync.Mutex

	r.On(resumable.EventFileSuccess, func(ev resumable.Event) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(out, "uploaded %s\n", ev.File.RelativePath)
	})
	r.On(resumable.EventFileError, func(ev resumable.Event) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(out, "failed %s: %s\n", ev.File.RelativePath, ev.Message)
	})
}

func failed(r *resumable.Resumable) error {
	for _, f := range r.Files() {
		if f.HasError() {
			return errUploadFailed
		}
	}

	return nil
}
