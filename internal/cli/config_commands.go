// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage auditportal configuration",
		Long: `Configuration management commands for auditportal.

Commands:
  init  - Interactive configuration setup
  show  - Display the effective configuration
  set   - Change one setting
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for auditportal.

The configuration will be saved to ~/.config/auditportal/config

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg := config.Default()
			p := newPrompter(cmd.InOrStdin(), out)

			fmt.Fprintln(out, "Audit Portal Configuration Setup")
			fmt.Fprintln(out, "================================")
			fmt.Fprintln(out)

			var err error
			if cfg.APIBaseURL, err = p.Line("Portal API URL", cfg.APIBaseURL); err != nil {
				return err
			}
			if cfg.CollationLanguage, err = p.Line("Category sort language", cfg.CollationLanguage); err != nil {
				return err
			}

			useProxy, err := p.Confirm("Configure proxy?", false)
			if err != nil {
				return err
			}
			if useProxy {
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				if cfg.ProxyMode, err = p.Line("Proxy mode", "system"); err != nil {
					return err
				}
				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					if cfg.ProxyHost, err = p.Required("Proxy host"); err != nil {
						return err
					}
					port, err := p.Line("Proxy port", "8080")
					if err != nil {
						return err
					}
					if err := cfg.Set("proxy_port", port); err != nil {
						return err
					}
					if cfg.ProxyUser, err = p.Line("Proxy user", ""); err != nil {
						return err
					}
				}
			}

			interval, err := p.Line("Chat refresh interval (seconds)", strconv.Itoa(int(cfg.ChatPollInterval.Seconds())))
			if err != nil {
				return err
			}
			if err := cfg.Set("poll_interval_seconds", interval); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			GetLogger().Debug().Str("path", path).Msg("config saved")
			fmt.Fprintf(out, "\nConfiguration saved to: %s\n", path)
			fmt.Fprintln(out, "Next: auditportal signin")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after applying, in order: defaults, the
config file, environment variables and command-line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg.MergeWithEnv()
			cfg.MergeWithFlags(apiBaseURL, proxyMode, proxyHost, proxyPort)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file:  %s\n", configPath())
			fmt.Fprintf(out, "Session file: %s\n", sessionPath())
			fmt.Fprintf(out, "Log dir:      %s\n\n", config.LogDirectory())
			for _, key := range config.Keys() {
				v, _ := cfg.Get(key)
				fmt.Fprintf(out, "%-22s = %s\n", key, v)
			}
			if cfg.Token != "" {
				fmt.Fprintln(out, "\ntoken: set from environment")
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "\nwarning: %v\n", err)
			}
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], v)
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
			return nil
		},
	}
}
