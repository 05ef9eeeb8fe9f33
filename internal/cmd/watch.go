package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/resumable/internal/logger"
	"github.com/NamanBalaji/resumable/pkg/resumable"
)

var watchFlags struct {
	stdin  bool
	resume bool
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR...",
	Short: "Upload files as they appear in directories",
	Long: `Watch directories and upload every file written into them. Files that
arrive together are uploaded as one batch once writes settle.

With --stdin, paths read line by line from standard input are uploaded too.

Examples:
  # Upload anything dropped into ~/outbox
  resumable watch ~/outbox

  # Upload paths produced by another program
  find . -name '*.log' | resumable watch --stdin`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addClientFlags(watchCmd)
	watchCmd.Flags().BoolVar(&watchFlags.stdin, "stdin", false, "Also upload paths read from standard input")
	watchCmd.Flags().BoolVar(&watchFlags.resume, "resume", false, "Remember accepted chunks so an interrupted upload can continue")
}

func runWatch(c *cobra.Command, args []string) error {
	if len(args) == 0 && !watchFlags.stdin {
		return fmt.Errorf("watch needs at least one directory or --stdin")
	}

	opts, err := clientOptions(c, *cfg.Upload)
	if err != nil {
		return err
	}

	if watchFlags.resume {
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

	report(r, out)
	r.On(resumable.EventFilesAdded, func(ev resumable.Event) {
		if len(ev.Files) == 0 {
			return
		}

		logger.Debugf("Batch of %d files added", len(ev.Files))
		r.Upload()
	})
	r.On(resumable.EventError, func(ev resumable.Event) {
		if ev.File == nil {
			fmt.Fprintf(c.ErrOrStderr(), "warning: %s\n", ev.Message)
		}
	})

	if len(args) > 0 {
		if err := r.AssignDrop(resumable.Dirs(args)); err != nil {
			return err
		}
	}

	if watchFlags.stdin {
		if err := r.AssignBrowse(resumable.Input(c.InOrStdin()), true); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "watching %d directories, uploading to %s\n", len(args), r.Opts().Target)

	<-ctx.Done()

	return nil
}
