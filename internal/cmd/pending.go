package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var pendingForget []string

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List uploads that can be resumed",
	Long: `List files with chunks recorded in the state database by upload --resume.
Entries are removed automatically once a file finishes.`,
	Args: cobra.NoArgs,
	RunE: runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)

	pendingCmd.Flags().StringSliceVar(&pendingForget, "forget", nil, "Drop the recorded state of these identifiers")
}

func runPending(c *cobra.Command, _ []string) error {
	repo, err := openStateStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	for _, id := range pendingForget {
		if err := repo.Delete(id); err != nil {
			return err
		}
	}

	states, err := repo.FindAll()
	if err != nil {
		return err
	}

	out := c.OutOrStdout()

	if len(states) == 0 {
		fmt.Fprintln(out, "no pending uploads")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTIFIER\tFILE\tSIZE\tCHUNKS\tUPDATED")

	for _, s := range states {
		total := int64(1)
		if s.ChunkSize > 0 {
			total = max(s.Size/s.ChunkSize, 1)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			s.Identifier, s.FileName, units.HumanSize(float64(s.Size)),
			len(s.Completed), total, units.HumanDuration(time.Since(s.UpdatedAt))+" ago")
	}

	return w.Flush()
}
