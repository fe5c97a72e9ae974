package attachments

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/qbfetch/qbfetch/internal/api"
	"github.com/qbfetch/qbfetch/internal/constants"
	"github.com/qbfetch/qbfetch/internal/diskspace"
	"github.com/qbfetch/qbfetch/internal/logging"
	"github.com/qbfetch/qbfetch/internal/models"
	"github.com/qbfetch/qbfetch/internal/validation"
)

// FileFetcher fetches the raw files endpoint response for a path.
// *api.Client implements it.
type FileFetcher interface {
	GetFile(ctx context.Context, path string) (*api.FileResponse, error)
}

// Options configures a Downloader.
type Options struct {
	// Workers bounds the number of concurrent downloads (default 5).
	Workers int

	// DownloadFolder receives one file per successful attachment. Created if missing.
	DownloadFolder string

	Logger *logging.Logger

	// OnComplete is called from the worker after each task. Optional.
	OnComplete func(models.AttachmentResult)
}

// Downloader fetches, decodes and persists the attachments of a run.
type Downloader struct {
	fetcher FileFetcher
	opts    Options
}

// NewDownloader creates a Downloader.
func NewDownloader(fetcher FileFetcher, opts Options) *Downloader {
	if opts.Workers < constants.MinWorkers {
		opts.Workers = constants.DefaultWorkers
	}
	if opts.DownloadFolder == "" {
		opts.DownloadFolder = constants.DefaultDownloadFolder
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Downloader{fetcher: fetcher, opts: opts}
}

// Run downloads every task with at most Workers in flight and returns the aggregated results.
//
// Each task is attempted exactly once and every failure is soft. Cancelling ctx
// stops dispatching further tasks; tasks already started run to completion.
// The only error returned is failure to create the download folder.
func (d *Downloader) Run(ctx context.Context, tasks []models.AttachmentTask) (*Results, error) {
	if err := os.MkdirAll(d.opts.DownloadFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download folder %s: %w", d.opts.DownloadFolder, err)
	}

	agg := NewAggregator(len(tasks))
	p := pool.New().WithMaxGoroutines(d.opts.Workers)

	// Started downloads are not interrupted
	taskCtx := context.WithoutCancel(ctx)

	skipped := 0
	for i, task := range tasks {
		if ctx.Err() != nil {
			skipped = len(tasks) - i
			d.opts.Logger.Warn().Int("skipped", skipped).Msg("Interrupted, not starting remaining downloads")
			break
		}
		p.Go(func() {
			res := d.download(taskCtx, task)
			agg.Publish(res)
			if d.opts.OnComplete != nil {
				d.opts.OnComplete(res)
			}
		})
	}

	p.Wait()
	results := agg.Wait()
	results.Skipped = skipped
	return results, nil
}

// download runs one task. It never returns an empty RecordID.
func (d *Downloader) download(ctx context.Context, task models.AttachmentTask) models.AttachmentResult {
	log := d.opts.Logger
	res := models.AttachmentResult{RecordID: task.RecordID}

	resp, err := d.fetcher.GetFile(ctx, task.SourceURL)
	if err != nil {
		res.Err = &AttachmentError{RecordID: task.RecordID, Err: err}
		log.Warn().Str("record_id", task.RecordID).Err(err).
			Msgf("Failed to download attachment for record %s", task.RecordID)
		return res
	}

	if !resp.OK() {
		body := strings.TrimSpace(string(resp.Body))
		res.Err = &AttachmentError{RecordID: task.RecordID, StatusCode: resp.StatusCode, Err: errors.New(body)}
		log.Warn().Str("record_id", task.RecordID).Int("status", resp.StatusCode).
			Msgf("Failed to download attachment for record %s. HTTP %d: %s", task.RecordID, resp.StatusCode, body)
		return res
	}

	filename := DeriveFilename(task.RecordID, resp.ContentDisposition)

	data, err := DecodeBody(resp.Body)
	if err != nil {
		res.Err = &AttachmentError{RecordID: task.RecordID, StatusCode: resp.StatusCode, Err: err}
		log.Warn().Str("record_id", task.RecordID).Err(err).
			Msgf("Error decoding file for record %s", task.RecordID)
		return res
	}

	if err := d.persist(filename, data); err != nil {
		res.Err = &AttachmentError{RecordID: task.RecordID, StatusCode: resp.StatusCode, Err: err}
		log.Warn().Str("record_id", task.RecordID).Err(err).
			Msgf("Error writing file for record %s", task.RecordID)
		return res
	}

	sum := sha256.Sum256(data)
	res.LocalFilename = filename
	res.Size = int64(len(data))
	res.SHA256 = hex.EncodeToString(sum[:])

	log.Info().Str("record_id", task.RecordID).Int64("bytes", res.Size).
		Msgf("Downloaded attachment for record %s as '%s'", task.RecordID, filename)
	return res
}

// persist writes data to <DownloadFolder>/<filename>, replacing any existing file.
// The bytes go to a temporary file first so a failed write never leaves a partial attachment.
func (d *Downloader) persist(filename string, data []byte) error {
	dest, err := validation.AttachmentPath(d.opts.DownloadFolder, filename)
	if err != nil {
		return fmt.Errorf("invalid attachment filename: %w", err)
	}
	if err := diskspace.CheckAvailableSpace(d.opts.DownloadFolder, int64(len(data)), constants.DiskSpaceSafetyMargin); err != nil {
		return err
	}

	tmpPath := dest + ".part"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	return nil
}

// DecodeBody decodes a base64 attachment body (standard alphabet).
// Whitespace anywhere in the body, including line wrapping, is ignored.
func DecodeBody(body []byte) ([]byte, error) {
	compact := strings.Join(strings.Fields(string(body)), "")
	data, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}
