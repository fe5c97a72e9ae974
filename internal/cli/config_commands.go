// Package cli provides configuration management commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qbfetch/qbfetch/internal/api"
	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage qbfetch configuration",
		Long: `Configuration management commands for qbfetch.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the Quickbase connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for qbfetch.

The configuration is saved to ~/.config/qbfetch/config.ini (or --config).
The user token is stored in the file with owner-only permissions.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := promptConfig(newPrompter(os.Stdin, os.Stdout), os.Stdout)
			if err != nil {
				return err
			}

			if err := config.Save(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", configPath).Msg("Configuration saved")

			fmt.Println()
			fmt.Printf("Configuration saved to: %s\n", configPath)
			fmt.Println("Test your configuration with: qbfetch config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// promptConfig walks the user through the settings of a new config file.
func promptConfig(p *prompter, out io.Writer) (*config.Config, error) {
	cfg := config.NewConfig()
	var err error

	fmt.Fprintln(out, "Quickbase Configuration Setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)

	if cfg.Realm, err = p.Required("Realm hostname (e.g. acme.quickbase.com)"); err != nil {
		return nil, err
	}
	if cfg.UserToken, err = p.Required("User token"); err != nil {
		return nil, err
	}
	if cfg.TableID, err = p.Required("Table ID"); err != nil {
		return nil, err
	}
	if cfg.FileFieldID, err = p.Int("Attachment field ID", 0, 1, 1<<31-1); err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Export Settings (press Enter for defaults)")
	fmt.Fprintln(out, "-----------------------------------------")
	if cfg.Workers, err = p.Int("Download workers", cfg.Workers, constants.MinWorkers, constants.MaxWorkers); err != nil {
		return nil, err
	}
	if cfg.DownloadFolder, err = p.String("Download folder", cfg.DownloadFolder); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = p.String("Report file", cfg.OutputFile); err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	useProxy, err := p.YesNo("Configure proxy?")
	if err != nil {
		return nil, err
	}
	if useProxy {
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		if cfg.Network.ProxyMode, err = p.String("Proxy mode", "system"); err != nil {
			return nil, err
		}
		if cfg.Network.ProxyMode == "basic" || cfg.Network.ProxyMode == "ntlm" {
			if cfg.Network.ProxyHost, err = p.Required("Proxy host"); err != nil {
				return nil, err
			}
			if cfg.Network.ProxyPort, err = p.Int("Proxy port", 8080, 1, 65535); err != nil {
				return nil, err
			}
			if cfg.Network.ProxyUser, err = p.String("Proxy user", ""); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/qbfetch/config.ini)
  2. Environment variables (QB_REALM, QB_USER_TOKEN, QB_TABLE_ID, QB_FILE_FIELD_ID, QB_API_URL)
  3. Command-line flags (--realm, --user-token, --api-url)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			writeConfig(cmd.OutOrStdout(), cfg, configPath)
			return nil
		},
	}

	return cmd
}

// writeConfig prints cfg with the user token masked.
func writeConfig(out io.Writer, cfg *config.Config, configPath string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Quickbase:")
	fmt.Fprintf(out, "  Realm:      %s\n", cfg.Realm)
	fmt.Fprintf(out, "  API URL:    %s\n", cfg.APIURL)
	if cfg.UserToken != "" {
		fmt.Fprintf(out, "  User Token: %s\n", cfg.MaskedToken())
	} else {
		fmt.Fprintln(out, "  User Token: <not set>")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Export:")
	fmt.Fprintf(out, "  Table ID:        %s\n", cfg.TableID)
	fmt.Fprintf(out, "  File Field ID:   %d\n", cfg.FileFieldID)
	fmt.Fprintf(out, "  Workers:         %d\n", cfg.Workers)
	fmt.Fprintf(out, "  Page Size:       %d\n", cfg.PageSize)
	fmt.Fprintf(out, "  Download Folder: %s\n", cfg.DownloadFolder)
	fmt.Fprintf(out, "  Report File:     %s\n", cfg.OutputFile)
	fmt.Fprintf(out, "  Link Style:      %s\n", cfg.LinkStyle)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Network:")
	fmt.Fprintf(out, "  Proxy Mode:  %s\n", cfg.Network.ProxyMode)
	if cfg.Network.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host:  %s\n", cfg.Network.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port:  %d\n", cfg.Network.ProxyPort)
	}
	fmt.Fprintf(out, "  API Retries: %d\n", cfg.Network.APIRetries)
	fmt.Fprintf(out, "  Rate Limit:  %g req/s\n", cfg.Network.RateLimitPerSec)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", configPath)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the Quickbase connection",
		Long: `Test the connection with current configuration by loading the
field list of the configured table.

Use this to verify your user token, realm and network connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Realm:   %s\n", cfg.Realm)
			fmt.Printf("API URL: %s\n", cfg.APIURL)
			fmt.Printf("Table:   %s\n", cfg.TableID)
			fmt.Println("Testing connection...")
			fmt.Println()

			engine, err := getEngine(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(), 30*time.Second)
			defer cancel()

			n, err := engine.TestConnection(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Println("Connection FAILED")
				if api.IsAuthError(err) {
					fmt.Println("  The user token was rejected. Check the token and realm.")
				}
				return fmt.Errorf("connection test failed: %w", err)
			}

			logger.Info().Int("fields", n).Msg("Connection test successful")
			fmt.Println("Connection SUCCESSFUL")
			fmt.Printf("  Table %s has %d fields\n", cfg.TableID, n)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}
			if cfgFile == "" {
				fmt.Println("Default configuration path:")
			} else {
				fmt.Println("Configuration path (from --config flag):")
			}
			fmt.Printf("  %s\n", configPath)
			fmt.Println()

			if fileInfo, err := os.Stat(configPath); err == nil {
				fmt.Println("Status: File exists")
				fmt.Printf("Size:   %d bytes\n", fileInfo.Size())
				fmt.Printf("Modified: %s\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Status: File does not exist")
				fmt.Println()
				fmt.Println("Create a configuration file with: qbfetch config init")
			}

			return nil
		},
	}

	return cmd
}
