package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/api"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/progress"
	"github.com/auditportal/auditportal/internal/storage"
	"github.com/auditportal/auditportal/internal/validation"
)

// documentsKind describes one downloadable document listing.
type documentsKind struct {
	use   string
	short string
	noun  string
	list  func(c *api.Client, ctx context.Context) ([]models.TemplateFile, error)
}

var (
	templatesKind = documentsKind{
		use:   "templates",
		short: "Document templates to fill in",
		noun:  "template",
		list:  (*api.Client).ListTemplates,
	}
	reportsKind = documentsKind{
		use:   "reports",
		short: "Audit reports",
		noun:  "report",
		list:  (*api.Client).ListReports,
	}
)

func newDocumentsCmd(kind documentsKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.use,
		Short: kind.short,
	}
	cmd.AddCommand(newDocumentsListCmd(kind))
	cmd.AddCommand(newDocumentsDownloadCmd(kind))
	return cmd
}

func newDocumentsListCmd(kind documentsKind) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + kind.use,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			docs, err := kind.list(env.client, GetContext())
			if err != nil {
				return withSigninHint(fmt.Errorf("failed to list %s: %w", kind.use, err))
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, docs)
			}
			if len(docs) == 0 {
				fmt.Fprintf(out, "No %s available\n", kind.use)
				return nil
			}
			fmt.Fprintf(out, "%-24s %-44s %10s  %s\n", "ID", "NAME", "SIZE", "MODIFIED")
			for _, d := range docs {
				size := "-"
				if d.Size != nil {
					size = formatBytes(*d.Size)
				}
				fmt.Fprintf(out, "%-24s %-44s %10s  %s\n", truncate(d.ID, 24), truncate(d.Name, 44), size, dash(d.LastModified))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")
	return cmd
}

func newDocumentsDownloadCmd(kind documentsKind) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a " + kind.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			ctx := GetContext()
			docs, err := kind.list(env.client, ctx)
			if err != nil {
				return withSigninHint(fmt.Errorf("failed to list %s: %w", kind.use, err))
			}

			var doc *models.TemplateFile
			for i := range docs {
				if docs[i].ID == args[0] {
					doc = &docs[i]
					break
				}
			}
			if doc == nil {
				return fmt.Errorf("%s %q not found", kind.noun, args[0])
			}
			if !doc.Downloadable() {
				return fmt.Errorf("%s %q has no download link", kind.noun, doc.Name)
			}

			dest, err := validation.DestinationPath(outDir, doc.Name)
			if err != nil {
				return err
			}
			dl := storage.NewDownloader(env.client.TransferClient(), env.logger)
			n, err := dl.Download(ctx, storage.StaticURL(doc.DownloadURL), dest, progress.NewCLIProgress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", dest, formatBytes(n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Directory to download into")
	return cmd
}
