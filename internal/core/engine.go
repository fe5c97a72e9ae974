// Package core orchestrates an export run: metadata, records, attachments, report.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qbfetch/qbfetch/internal/api"
	"github.com/qbfetch/qbfetch/internal/attachments"
	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/logging"
	"github.com/qbfetch/qbfetch/internal/manifest"
	"github.com/qbfetch/qbfetch/internal/models"
	"github.com/qbfetch/qbfetch/internal/progress"
	"github.com/qbfetch/qbfetch/internal/report"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("an export run is already in progress")

// RunContext tracks metadata about the active run.
type RunContext struct {
	RunID     string
	StartTime time.Time
	TotalJobs int // attachment tasks dispatched by the run
}

// RunOptions controls the optional outputs of a run.
type RunOptions struct {
	// ManifestPath, when set, receives a YAML manifest of the downloads.
	ManifestPath string

	// ShowProgress enables the phase spinner and the attachment bar on a terminal.
	ShowProgress bool
}

// RunSummary is what a completed run reports back.
type RunSummary struct {
	RunID   string
	Records int

	// Attachment tasks
	Tasks        int
	Downloaded   int
	Failed       int
	Skipped      int
	MissingID    int
	NoAttachment int
	Duplicates   int

	// Truncated is set when the table holds more records than one page returned.
	Truncated    bool
	TotalRecords int

	ReportPath   string
	ManifestPath string
	APICalls     int64
	Duration     time.Duration
}

// Engine runs exports against one Quickbase table.
type Engine struct {
	config    *config.Config
	apiClient *api.Client
	logger    *logging.Logger
	mu        sync.RWMutex

	runCtx   *RunContext
	cancel   context.CancelFunc
	runCtxMu sync.RWMutex
}

// NewEngine creates a new engine instance
func NewEngine(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	apiClient, err := api.NewClient(api.NewClientConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &Engine{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}, nil
}

// GetConfig returns the current configuration
func (e *Engine) GetConfig() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// UpdateConfig swaps the configuration and rebuilds the API client.
// The client is built before taking the lock.
func (e *Engine) UpdateConfig(cfg *config.Config) error {
	apiClient, err := api.NewClient(api.NewClientConfig(cfg), e.logger)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	e.mu.Lock()
	e.config = cfg
	e.apiClient = apiClient
	e.mu.Unlock()

	e.logger.Debug().Msg("Configuration updated")
	return nil
}

// API returns the API client
func (e *Engine) API() *api.Client {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.apiClient
}

// TestConnection checks the credentials by loading the table's field list.
// It returns the number of fields found.
func (e *Engine) TestConnection(ctx context.Context) (int, error) {
	cfg := e.GetConfig()
	if err := cfg.ValidateForConnection(); err != nil {
		return 0, err
	}
	if cfg.TableID == "" {
		return 0, config.ErrMissingTableID
	}

	fields, err := e.API().GetFields(ctx, cfg.TableID)
	if err != nil {
		return 0, err
	}
	return len(fields), nil
}

// Run performs one export: load fields, query records, download attachments,
// write the report and, optionally, the manifest.
//
// A failed fields or records call aborts the run before anything is written.
// Attachment failures are logged and leave the report cell empty. Cancelling
// ctx stops dispatching downloads; the report is still written for what finished.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	cfg := e.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	client := e.API()

	runID := uuid.NewString()
	runCtx, err := e.startRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer e.endRun()

	started := time.Now()
	log := e.logger.WithRunID(runID)
	summary := &RunSummary{RunID: runID, ReportPath: cfg.OutputFile}

	phase := progress.Reporter(progress.NewNoOpProgress())
	if opts.ShowProgress {
		phase = progress.NewPhaseReporter()
	}

	log.Info().Str("table_id", cfg.TableID).Int("file_field_id", cfg.FileFieldID).Msg("Starting export")

	phase.Start("Loading field metadata")
	defs, err := client.GetFields(runCtx, cfg.TableID)
	phase.Finish()
	if err != nil {
		return nil, err
	}
	fields := models.NewFieldMap(defs)
	log.Info().Int("fields", fields.Len()).Msg("Loaded field metadata")

	phase.Start("Querying records")
	result, err := client.QueryRecords(runCtx, cfg.TableID, fields.IDs(), cfg.PageSize)
	phase.Finish()
	if err != nil {
		return nil, err
	}
	summary.Records = len(result.Records)
	summary.TotalRecords = result.TotalRecords
	summary.Truncated = result.Truncated()
	log.Info().Int("records", summary.Records).Msg("Fetched records")
	if summary.Truncated {
		log.Warn().Int("total_records", result.TotalRecords).Int("page_size", cfg.PageSize).
			Msgf("Table has %d records, only the first %d are exported", result.TotalRecords, summary.Records)
	}

	plan := attachments.PlanTasks(result.Records, cfg.TableID, cfg.FileFieldID)
	summary.Tasks = len(plan.Tasks)
	summary.MissingID = plan.MissingID
	summary.NoAttachment = plan.NoAttachment
	summary.Duplicates = plan.Duplicates
	if plan.MissingID > 0 {
		log.Warn().Int("records", plan.MissingID).Msg("Records without a record id are not downloaded")
	}
	if plan.Duplicates > 0 {
		log.Warn().Int("records", plan.Duplicates).Msg("Duplicate record ids downloaded once")
	}
	e.setTotalJobs(len(plan.Tasks))

	downloads, err := e.downloadAttachments(runCtx, log, cfg, plan.Tasks, opts.ShowProgress)
	if err != nil {
		return nil, err
	}
	summary.Downloaded = downloads.Succeeded()
	summary.Failed = downloads.Failed()
	summary.Skipped = downloads.Skipped

	rows := report.BuildRows(result.Records, fields, downloads)
	if err := report.NewWriter(cfg.DownloadFolder, cfg.LinkStyle).Write(cfg.OutputFile, rows); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	summary.APICalls = client.Stats().Calls
	summary.Duration = time.Since(started)

	if opts.ManifestPath != "" {
		m := &manifest.Manifest{
			RunID:          runID,
			TableID:        cfg.TableID,
			FileFieldID:    cfg.FileFieldID,
			StartedAt:      started.UTC(),
			FinishedAt:     time.Now().UTC(),
			DownloadFolder: cfg.DownloadFolder,
			Report:         cfg.OutputFile,
			Summary:        manifest.Summary{Records: summary.Records},
		}
		m.SetOutcomes(downloads.Outcomes(), downloads.Skipped)
		if err := manifest.Write(opts.ManifestPath, m); err != nil {
			return nil, err
		}
		summary.ManifestPath = opts.ManifestPath
	}

	log.Info().
		Int("downloaded", summary.Downloaded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int64("api_calls", summary.APICalls).
		Dur("duration", summary.Duration).
		Msg("Export complete")
	log.Info().Msgf("Final report generated with clickable attachment links: %s", cfg.OutputFile)

	return summary, nil
}

// downloadAttachments runs the download pool, drawing the attachment bar when enabled.
// Log lines are routed through the bar while it is on screen.
func (e *Engine) downloadAttachments(ctx context.Context, log *logging.Logger, cfg *config.Config, tasks []models.AttachmentTask, showProgress bool) (*attachments.Results, error) {
	opts := attachments.Options{
		Workers:        cfg.Workers,
		DownloadFolder: cfg.DownloadFolder,
		Logger:         log,
	}

	if showProgress && len(tasks) > 0 {
		ui := progress.NewAttachmentUI(len(tasks))
		if ui.IsTerminal() {
			prev := log.Output()
			log.SetOutput(ui.Writer())
			defer log.SetOutput(prev)
		}
		opts.OnComplete = func(res models.AttachmentResult) {
			ui.Complete(res.Succeeded())
		}
		defer ui.Wait()
	}

	log.Info().Int("attachments", len(tasks)).Int("workers", cfg.Workers).Msg("Downloading attachments")
	return attachments.NewDownloader(e.API(), opts).Run(ctx, tasks)
}

func (e *Engine) startRun(parent context.Context, runID string) (context.Context, error) {
	e.runCtxMu.Lock()
	defer e.runCtxMu.Unlock()

	if e.runCtx != nil {
		return nil, ErrRunInProgress
	}
	ctx, cancel := context.WithCancel(parent)
	e.runCtx = &RunContext{RunID: runID, StartTime: time.Now()}
	e.cancel = cancel
	return ctx, nil
}

func (e *Engine) setTotalJobs(n int) {
	e.runCtxMu.Lock()
	defer e.runCtxMu.Unlock()
	if e.runCtx != nil {
		e.runCtx.TotalJobs = n
	}
}

func (e *Engine) endRun() {
	e.runCtxMu.Lock()
	defer e.runCtxMu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.runCtx = nil
	e.cancel = nil
}

// GetRunContext returns a copy of the active run's metadata, or nil.
func (e *Engine) GetRunContext() *RunContext {
	e.runCtxMu.RLock()
	defer e.runCtxMu.RUnlock()
	if e.runCtx == nil {
		return nil
	}
	rc := *e.runCtx
	return &rc
}

// IsRunActive reports whether a run is in progress.
func (e *Engine) IsRunActive() bool {
	return e.GetRunContext() != nil
}
