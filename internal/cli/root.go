// Package cli provides the command-line interface for auditportal.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/version"
)

var (
	// Global flags
	cfgFile     string
	sessionFile string
	apiBaseURL  string
	proxyMode   string
	proxyHost   string
	proxyPort   int
	verbose     bool
	debug       bool

	// Global logger and the bus its warnings are mirrored to
	logger   *logging.Logger
	eventBus *events.EventBus

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "auditportal",
		Short: "Audit document portal client",
		Long: `auditportal ` + version.Version + ` - Built: ` + version.BuildTime + `
Terminal client for the audit document portal.

Sign in with your company id, browse the required document categories
and their review status, upload files into categories, follow the
dashboard and talk to the support desk.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if eventBus != nil {
				eventBus.Close()
			}
			eventBus = events.NewEventBus(0)
			logger = logging.NewLogger("cli", cmd.ErrOrStderr(), eventBus)
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				logging.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "Session file path")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Portal API base URL (overrides config and environment)")
	rootCmd.PersistentFlags().StringVar(&proxyMode, "proxy-mode", "", "Proxy mode: no-proxy, system, basic, ntlm")
	rootCmd.PersistentFlags().StringVar(&proxyHost, "proxy-host", "", "Proxy host")
	rootCmd.PersistentFlags().IntVar(&proxyPort, "proxy-port", 0, "Proxy port")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for auditportal commands",
		Long: `Generate shell completion scripts for auditportal.

QUICK START:

  zsh:
    mkdir -p ~/.zsh/completions
    auditportal completion zsh > ~/.zsh/completions/_auditportal
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)

  Linux with bash:
    auditportal completion bash | sudo tee /etc/bash_completion.d/auditportal

For detailed instructions, use: auditportal completion [shell] --help`,
	}

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		Long: `Generate the autocompletion script for bash.

QUICK TEST (temporary, current session only):
  source <(auditportal completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Long: `Generate the autocompletion script for zsh.

QUICK TEST (temporary, current session only):
  source <(auditportal completion zsh)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		Long: `Generate the autocompletion script for fish.

  auditportal completion fish > ~/.config/fish/completions/auditportal.fish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		Long: `Generate the autocompletion script for PowerShell.

  auditportal completion powershell >> $PROFILE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	return completionCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	if eventBus != nil {
		eventBus.Close()
	}

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newSigninCmd())
	rootCmd.AddCommand(newSignoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newPasswdCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newDocumentsCmd(templatesKind))
	rootCmd.AddCommand(newDocumentsCmd(reportsKind))
	rootCmd.AddCommand(newFormsCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetEventBus returns the bus shared by the services of one command run.
func GetEventBus() *events.EventBus {
	if eventBus == nil {
		eventBus = events.NewEventBus(0)
	}
	return eventBus
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
