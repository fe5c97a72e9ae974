// Package cli provides the command-line interface for qbfetch.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/logging"
	"github.com/qbfetch/qbfetch/internal/version"
)

var (
	// Global flags
	cfgFile   string
	realm     string
	userToken string
	apiURL    string
	verbose   bool
	logFile   string

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qbfetch",
		Short: "Export Quickbase attachments with a linked spreadsheet report",
		Long: `qbfetch ` + version.Version + ` - Built: ` + version.BuildTime + `
Downloads the file attachment of every record in a Quickbase table and writes
an xlsx report with one row per record and a link to its local attachment.

Settings are read from the config file, then QB_* environment variables,
then command-line flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logging.Options{
				Verbose: verbose,
				LogFile: logFile,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&realm, "realm", "", "Quickbase realm hostname, e.g. acme.quickbase.com")
	rootCmd.PersistentFlags().StringVar(&userToken, "user-token", "", "Quickbase user token (overrides config and QB_USER_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Quickbase API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated); without a value uses the default log location")
	rootCmd.PersistentFlags().Lookup("log-file").NoOptDefVal = config.DefaultLogFile()

	rootCmd.Version = version.String()

	completionCmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate a shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Long: `Generate a shell completion script for qbfetch.

  bash:       source <(qbfetch completion bash)
  zsh:        qbfetch completion zsh > "${fpath[1]}/_qbfetch"
  fish:       qbfetch completion fish | source
  powershell: qbfetch completion powershell | Out-String | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			default:
				return rootCmd.GenPowerShellCompletion(out)
			}
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not block the sender
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, finishing downloads in progress...\n", sig)
				fmt.Fprintf(os.Stderr, "   The report will cover the attachments downloaded so far.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "qbfetch "+version.String())
		},
	}
}
