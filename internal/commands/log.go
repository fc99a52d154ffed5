package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/auditlog"
)

func newLogCommand() *cobra.Command {
	var allocID string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cmd.Flags().GetString("dir")
			if err != nil {
				return err
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			entries, err := auditlog.Read(root)
			if err != nil {
				return err
			}
			if allocID != "" {
				entries = auditlog.ForAllocation(entries, allocID)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tCOMMAND\tTARGET\tRESULT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Command, e.Target, e.Result)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&allocID, "allocation", "", "only commands that touched this allocation")
	return cmd
}
