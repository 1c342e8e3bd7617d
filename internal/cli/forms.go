package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/forms"
)

func newFormsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "External questionnaires to fill in",
	}
	cmd.AddCommand(newFormsListCmd())
	cmd.AddCommand(newFormsOpenCmd())
	return cmd
}

func newFormsListCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the questionnaires",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			all := forms.All()
			if outputJSON {
				return printJSON(out, all)
			}
			fmt.Fprintf(out, "%-10s %s\n", "KEY", "TITLE")
			for _, f := range all {
				fmt.Fprintf(out, "%-10s %s\n", f.Key, f.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")
	return cmd
}

func newFormsOpenCmd() *cobra.Command {
	var browser bool

	cmd := &cobra.Command{
		Use:   "open <key>",
		Short: "Print a questionnaire's link, or open it in the browser",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return forms.Keys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := forms.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q (known: %s)", args[0], strings.Join(forms.Keys(), ", "))
			}
			u := f.BrowserURL()
			if browser {
				if err := forms.OpenInBrowser(u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", f.Title)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", f.Title, u)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&browser, "browser", "b", false, "Open in the default browser")
	return cmd
}
