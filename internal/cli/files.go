package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/progress"
	"github.com/auditportal/auditportal/internal/services"
	"github.com/auditportal/auditportal/internal/state"
	"github.com/auditportal/auditportal/internal/storage"
	"github.com/auditportal/auditportal/internal/tui"
	"github.com/auditportal/auditportal/internal/validation"
)

// newFilesCmd creates the 'files' command group.
func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Document categories and uploaded files",
		Long: `Browse the required document categories with their review status and
the files uploaded into them.

Commands:
  list    - Print categories and files
  browse  - Interactive tabbed view
  tabs    - Status tab counts
  view    - Get a download link for one of your files
  upload  - Upload files into categories`,
	}

	cmd.AddCommand(newFilesListCmd())
	cmd.AddCommand(newFilesBrowseCmd())
	cmd.AddCommand(newFilesTabsCmd())
	cmd.AddCommand(newFilesViewCmd())
	cmd.AddCommand(newFilesUploadCmd())
	return cmd
}

// loadFilesPage runs one catalog load into a fresh page. Degraded feeds
// are reported on errOut; the load itself never fails.
func loadFilesPage(env *commandEnv, errOut io.Writer) *state.FilesPage {
	svc := env.catalogService()
	page := state.NewFilesPage(catalog.NewGate(env.session))
	gen := svc.NextGeneration()
	page.BeginLoad(gen)
	page.ApplyLoad(svc.LoadGeneration(GetContext(), gen, env.username()))
	if degraded := page.Degraded(); len(degraded) > 0 {
		fmt.Fprintf(errOut, "warning: %s unavailable, showing partial results\n", strings.Join(degraded, " and "))
	}
	return page
}

func tabKeys() string {
	keys := make([]string, 0, len(catalog.Tabs()))
	for _, t := range catalog.Tabs() {
		keys = append(keys, t.Key)
	}
	return strings.Join(keys, ", ")
}

type fileJSON struct {
	ID         int64    `json:"id"`
	Filename   string   `json:"filename"`
	Status     string   `json:"status"`
	UploadedAt string   `json:"uploadedAt"`
	Username   string   `json:"username"`
	Categories []string `json:"categories"`
	Viewable   bool     `json:"viewable"`
}

type blockJSON struct {
	Name    string     `json:"name"`
	Status  string     `json:"status"`
	Comment string     `json:"comment,omitempty"`
	Master  bool       `json:"master"`
	Files   []fileJSON `json:"files"`
}

func newFilesListCmd() *cobra.Command {
	var (
		tab        string
		category   string
		search     string
		expandAll  bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories and their files",
		Long: `List every category known to the portal or referenced by one of your
files, sorted by name, with its review status.

Examples:
  auditportal files list
  auditportal files list --tab approved --expand-all
  auditportal files list --search tax --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			page := loadFilesPage(env, cmd.ErrOrStderr())
			if err := page.SetTab(tab); err != nil {
				return fmt.Errorf("%w (valid tabs: %s)", err, tabKeys())
			}
			page.SetCategory(category)
			page.SetSearch(search)
			page.ExpandAll(expandAll)

			blocks := page.Visible()
			out := cmd.OutOrStdout()

			if outputJSON {
				list := make([]blockJSON, 0, len(blocks))
				for _, b := range blocks {
					bj := blockJSON{Name: b.Name, Status: b.Status, Comment: b.Comment, Master: b.Master, Files: []fileJSON{}}
					for _, f := range b.Files {
						bj.Files = append(bj.Files, fileJSON{
							ID:         f.ID,
							Filename:   f.Filename,
							Status:     f.Status,
							UploadedAt: f.UploadedAt,
							Username:   f.Username,
							Categories: f.Categories,
							Viewable:   page.CanView(f),
						})
					}
					list = append(list, bj)
				}
				return printJSON(out, list)
			}

			if len(blocks) == 0 {
				fmt.Fprintln(out, "No categories found")
				return nil
			}
			fmt.Fprintf(out, "%-40s %-14s %5s  %s\n", "CATEGORY", "STATUS", "FILES", "COMMENT")
			for _, b := range blocks {
				name := b.Name
				if name == "" {
					name = "(unnamed)"
				}
				if !b.Master {
					name += " *"
				}
				fmt.Fprintf(out, "%-40s %-14s %5d  %s\n",
					truncate(name, 40), catalog.StatusLabel(b.Status), len(b.Files), b.Comment)
				if !page.Expanded(b.Name) {
					continue
				}
				for _, f := range b.Files {
					marker := ""
					if page.CanView(f) {
						marker = "  [view]"
					}
					fmt.Fprintf(out, "    #%-6d %-40s %s%s\n", f.ID, truncate(f.Filename, 40), f.UploadedAt, marker)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tab, "tab", "t", "all", "Status tab: "+tabKeys())
	cmd.Flags().StringVar(&category, "category", "", "Show only this category (exact name)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Show categories whose name, or the name of one of their files, contains this text")
	cmd.Flags().BoolVarP(&expandAll, "expand-all", "a", false, "List the files under every category")
	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")
	return cmd
}

func newFilesTabsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "Show how many categories are in each status",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			page := loadFilesPage(env, cmd.ErrOrStderr())
			counts := page.Counts()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-16s %-16s %5s\n", "TAB", "KEY", "COUNT")
			for _, t := range catalog.Tabs() {
				fmt.Fprintf(out, "%-16s %-16s %5d\n", t.Label, t.Key, counts.Get(t))
			}
			return nil
		},
	}
}

func newFilesBrowseCmd() *cobra.Command {
	var (
		tab    string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse categories interactively",
		Long: `Open the tabbed category view.

Keys: tab/shift+tab switch status tabs, 1-8 jump to a tab, enter expands
a category or views a file, d downloads a file into --outdir, f shows
only the category under the cursor (again to clear), / searches, e/c
expand or collapse all, r reloads, q quits. Logs are written to the log
directory while the view is open; warnings also show in the status line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			viewLog := tui.ViewLogger(GetEventBus())
			defer viewLog.Close()

			env, err := newEnv(true, viewLog)
			if err != nil {
				return err
			}
			page := state.NewFilesPage(catalog.NewGate(env.session))
			if err := page.SetTab(tab); err != nil {
				return fmt.Errorf("%w (valid tabs: %s)", err, tabKeys())
			}
			model := tui.NewFilesModel(tui.FilesOptions{
				Context:  GetContext(),
				Catalog:  env.catalogService(),
				Page:     page,
				Username: env.username(),
				Resolve:  env.client.FileURL,
				Events:   env.bus,
				Download: browserDownload(env, outDir),
			})
			final, err := tui.Run(GetContext(), model)
			if err != nil {
				return err
			}
			if fm, ok := final.(tui.FilesModel); ok && fm.LastURL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), fm.LastURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tab, "tab", "t", "all", "Initial status tab")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Directory downloads are saved into")
	return cmd
}

// browserDownload saves a file into outDir, reporting progress on the bus
// so the browser can show it in its status line.
func browserDownload(env *commandEnv, outDir string) tui.Downloader {
	dl := storage.NewDownloader(env.client.TransferClient(), env.logger)
	return func(ctx context.Context, f *catalog.File, reporter progress.Reporter) (string, error) {
		dest, err := validation.DestinationPath(outDir, f.Filename)
		if err != nil {
			return "", err
		}
		resolve := func(ctx context.Context) (string, error) {
			return env.client.FileURL(ctx, f.BlobPath)
		}
		if _, err := dl.Download(ctx, resolve, dest, reporter); err != nil {
			return "", err
		}
		return dest, nil
	}
}

func newFilesViewCmd() *cobra.Command {
	var (
		download bool
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "view <file-id>",
		Short: "Get a short-lived link to one of your files",
		Long: `Resolve a short-lived download link for a file you uploaded.
Only the owner of a file can view it.

Examples:
  auditportal files view 42
  auditportal files view 42 --download --outdir ./docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file id %q", args[0])
			}
			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}
			page := loadFilesPage(env, cmd.ErrOrStderr())
			f, ok := page.Snapshot().FileByID(id)
			if !ok {
				return fmt.Errorf("file %d not found", id)
			}
			if !page.CanView(f) {
				return fmt.Errorf("file %d belongs to another user", id)
			}

			ctx := GetContext()
			if !download {
				u, err := env.client.FileURL(ctx, f.BlobPath)
				if err != nil {
					return withSigninHint(fmt.Errorf("failed to get link for %s: %w", f.Filename, err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			}

			dest, err := validation.DestinationPath(outDir, f.Filename)
			if err != nil {
				return err
			}
			dl := storage.NewDownloader(env.client.TransferClient(), env.logger)
			resolve := func(ctx context.Context) (string, error) {
				return env.client.FileURL(ctx, f.BlobPath)
			}
			n, err := dl.Download(ctx, resolve, dest, progress.NewCLIProgress(cmd.ErrOrStderr()))
			if err != nil {
				return withSigninHint(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", dest, formatBytes(n))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&download, "download", "d", false, "Download the file instead of printing the link")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Directory to download into")
	return cmd
}

func newFilesUploadCmd() *cobra.Command {
	var (
		categories    []string
		documentName  string
		maxConcurrent int
	)

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload files into categories",
		Long: `Upload one or more files. Each file is filed under every --category
given, or under a single required document with --document.

Examples:
  auditportal files upload balance.pdf --category Tax --category Legal
  auditportal files upload charter.pdf --document "Company charter"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(categories) > 0 && documentName != "" {
				return errors.New("use either --category or --document, not both")
			}
			cats := make([]string, 0, len(categories))
			for _, c := range categories {
				if c = strings.TrimSpace(c); c != "" {
					cats = append(cats, c)
				}
			}

			env, err := newEnv(true, nil)
			if err != nil {
				return err
			}

			items := make([]services.UploadItem, 0, len(args))
			for _, path := range args {
				items = append(items, services.UploadItem{Path: path, Categories: cats, DocumentName: documentName})
			}

			ui := progress.NewUploadUI(len(items), cmd.ErrOrStderr())
			svc := services.NewUploadService(env.client, env.bus, env.logger, maxConcurrent)
			outcomes := svc.Upload(GetContext(), items, ui)

			var uploaded, failed, skipped int
			out := cmd.OutOrStdout()
			for _, o := range outcomes {
				switch {
				case o.Skipped:
					skipped++
					fmt.Fprintf(out, "skipped %s: %v\n", o.Item.Path, o.Err)
				case o.Err != nil:
					failed++
				default:
					uploaded++
				}
			}
			fmt.Fprintf(out, "Uploaded %d, failed %d, skipped %d\n", uploaded, failed, skipped)

			if failed > 0 || uploaded == 0 {
				for _, o := range outcomes {
					if o.Err != nil && !o.Skipped {
						return withSigninHint(fmt.Errorf("upload of %s failed: %w", o.Item.Path, o.Err))
					}
				}
				return errors.New("no files uploaded")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&categories, "category", nil, "Category to file the upload under (repeatable)")
	cmd.Flags().StringVar(&documentName, "document", "", "Required document name (instead of categories)")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Files uploaded in parallel (0 = default)")
	return cmd
}
