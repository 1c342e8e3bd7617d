package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show audit progress and missing documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			d, err := env.client.DashboardStats(GetContext())
			if err != nil {
				return withSigninHint(fmt.Errorf("failed to load dashboard: %w", err))
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, d)
			}

			s := d.Stats
			fmt.Fprintf(out, "Required documents: %d\n", s.TotalRequired)
			fmt.Fprintf(out, "  Missing:          %d\n", s.CountMissing)
			fmt.Fprintf(out, "  Pending review:   %d\n", s.CountPending)
			fmt.Fprintf(out, "  Approved:         %d\n", s.CountApproved)
			fmt.Fprintf(out, "  Action needed:    %d\n", s.CountActionNeeded)
			if s.TotalRequired > 0 {
				fmt.Fprintf(out, "Progress: %d%%\n", s.CountApproved*100/s.TotalRequired)
			}

			if len(d.MissingFiles) == 0 {
				fmt.Fprintln(out, "\nNo missing documents")
				return nil
			}
			fmt.Fprintf(out, "\n%-40s %-12s %s\n", "MISSING DOCUMENT", "DUE", "COMMENT")
			for _, m := range d.MissingFiles {
				fmt.Fprintf(out, "%-40s %-12s %s\n", truncate(dash(m.CategoryName), 40), dashPtr(m.DueDate), dashPtr(m.Comment))
			}
			fmt.Fprintln(out, "\nUpload with: auditportal files upload <path> --document <name>")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")
	return cmd
}
