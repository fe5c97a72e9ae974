package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/core"
)

// exportFlags holds the per-run overrides of the export command.
type exportFlags struct {
	tableID      string
	fileFieldID  int
	workers      int
	pageSize     int
	downloadDir  string
	output       string
	linkStyle    string
	manifestPath string
	noProgress   bool
}

// apply overrides cfg with every flag the user set on cmd.
func (f *exportFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("table") {
		cfg.TableID = f.tableID
	}
	if flags.Changed("field") {
		cfg.FileFieldID = f.fileFieldID
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if flags.Changed("download-dir") {
		cfg.DownloadFolder = f.downloadDir
	}
	if flags.Changed("output") {
		cfg.OutputFile = f.output
	}
	if flags.Changed("link-style") {
		cfg.LinkStyle = f.linkStyle
	}
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download attachments and write the linked report",
		Long: `Export a Quickbase table.

Loads the table's field definitions, queries its records, downloads the
attachment of every record in parallel and writes an xlsx report with one
row per record. The LocalAttachment column links to the downloaded file.

A failed download leaves its LocalAttachment cell empty; the run continues.
Failing to load fields or records aborts the run before anything is written.

Examples:
  qbfetch export --table bqabc123 --field 7
  qbfetch export --table bqabc123 --field 7 --workers 10 --output report.xlsx
  qbfetch export --manifest downloads/manifest.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			engine, err := getEngine(cfg)
			if err != nil {
				return err
			}

			summary, err := engine.Run(GetContext(), core.RunOptions{
				ManifestPath: flags.manifestPath,
				ShowProgress: !flags.noProgress,
			})
			if err != nil {
				GetLogger().Error().Err(err).Msg("Export failed")
				return err
			}

			writeSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.tableID, "table", "", "Quickbase table ID (overrides config)")
	cmd.Flags().IntVar(&flags.fileFieldID, "field", 0, "Field ID of the attachment field (overrides config)")
	cmd.Flags().IntVar(&flags.workers, "workers", 5, "Concurrent attachment downloads (1-64)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 1000, "Records requested by the query")
	cmd.Flags().StringVar(&flags.downloadDir, "download-dir", "downloads", "Folder receiving the attachments")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "Quickbase_Table_Report.xlsx", "Report file")
	cmd.Flags().StringVar(&flags.linkStyle, "link-style", "windows", "Attachment link separators: windows or native")
	cmd.Flags().StringVar(&flags.manifestPath, "manifest", "", "Also write a YAML manifest of the downloads to this file")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable progress bars")

	return cmd
}

// writeSummary prints the end-of-run totals.
func writeSummary(out io.Writer, s *core.RunSummary) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Export Summary")
	fmt.Fprintln(out, "==============")
	fmt.Fprintf(out, "  Records:     %d\n", s.Records)
	if s.Truncated {
		fmt.Fprintf(out, "               (table has %d records, increase --page-size to export all)\n", s.TotalRecords)
	}
	fmt.Fprintf(out, "  Attachments: %d\n", s.Tasks)
	fmt.Fprintf(out, "  Downloaded:  %d\n", s.Downloaded)
	fmt.Fprintf(out, "  Failed:      %d\n", s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped:     %d (interrupted)\n", s.Skipped)
	}
	fmt.Fprintf(out, "  API calls:   %d\n", s.APICalls)
	fmt.Fprintf(out, "  Duration:    %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Report:   %s\n", s.ReportPath)
	if s.ManifestPath != "" {
		fmt.Fprintf(out, "Manifest: %s\n", s.ManifestPath)
	}
}
