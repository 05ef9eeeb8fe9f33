package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/resumable/internal/logger"
	"github.com/NamanBalaji/resumable/internal/receiver"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr         string
	dir          string
	path         string
	maxChunkSize string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the receiving server",
	Long: `Run an HTTP server that accepts chunked uploads and assembles them into
files under the output directory.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.dir, "dir", "", "Output directory (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.path, "path", "", "Upload route (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.maxChunkSize, "max-chunk-size", "", "Largest accepted chunk (default from config)")
}

func runServe(c *cobra.Command, _ []string) error {
	srv := *cfg.Server
	flags := c.Flags()

	if flags.Changed("addr") {
		srv.Addr = serveFlags.addr
	}

	if flags.Changed("dir") {
		srv.Dir = serveFlags.dir
	}

	if flags.Changed("path") {
		srv.Path = serveFlags.path
	}

	if flags.Changed("max-chunk-size") {
		srv.MaxChunkSize = serveFlags.maxChunkSize
	}

	maxChunk, err := srv.MaxChunkBytes()
	if err != nil {
		return err
	}

	out := c.OutOrStdout()

	e, err := receiver.NewEcho(receiver.Config{
		Dir:          srv.Dir,
		Path:         srv.Path,
		MaxChunkSize: maxChunk,
		OnComplete: func(f receiver.File) {
			fmt.Fprintf(out, "received %s (%s)\n", f.Path, units.HumanSize(float64(f.Size)))
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		fmt.Fprintf(out, "listening on %s%s, writing to %s\n", srv.Addr, srv.Path, srv.Dir)
		errCh <- e.Start(srv.Addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	logger.Infof("Shutting down receiver")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}
