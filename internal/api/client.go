// Package api implements the three Quickbase REST calls used by an export run:
// field metadata, the record query and attachment file contents.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/constants"
	"github.com/qbfetch/qbfetch/internal/http"
	"github.com/qbfetch/qbfetch/internal/logging"
	"github.com/qbfetch/qbfetch/internal/models"
)

// ClientConfig is the immutable connection context of a Client.
type ClientConfig struct {
	BaseURL   string
	Realm     string
	UserToken string
	UserAgent string

	// APIRetries applies to GetFields and QueryRecords only. GetFile is never retried.
	APIRetries int

	// RateLimitPerSec and RateLimitBurst configure the limiter shared by all calls.
	RateLimitPerSec float64
	RateLimitBurst  int

	// Workers sizes the connection pool of the file client.
	Workers int

	Network config.NetworkConfig
}

// NewClientConfig derives a ClientConfig from the run configuration.
func NewClientConfig(cfg *config.Config) ClientConfig {
	return ClientConfig{
		BaseURL:         cfg.APIURL,
		Realm:           cfg.Realm,
		UserToken:       cfg.UserToken,
		UserAgent:       constants.UserAgent,
		APIRetries:      cfg.Network.APIRetries,
		RateLimitPerSec: cfg.Network.RateLimitPerSec,
		RateLimitBurst:  constants.DefaultRateLimitBurst,
		Workers:         cfg.Workers,
		Network:         cfg.Network,
	}
}

// apiMetrics tracks API usage statistics
type apiMetrics struct {
	totalCalls int64
	throttled  int64
}

// Stats is a snapshot of the client's API usage.
type Stats struct {
	Calls     int64
	Throttled int64
}

// Client is a Quickbase REST API v1 client. It is safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	baseURL    string
	apiClient  *nethttp.Client // metadata and query, wrapped with retries
	fileClient *nethttp.Client // attachment downloads, single attempt
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *apiMetrics
}

// NewClient creates a new API client
func NewClient(cfg ClientConfig, logger *logging.Logger) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("API base URL is empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.UserAgent
	}

	baseClient, err := http.ConfigureHTTPClient(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	fileClient, err := http.CreateDownloadClient(cfg.Network, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to configure download client: %w", err)
	}

	perSec := cfg.RateLimitPerSec
	if perSec <= 0 {
		perSec = constants.DefaultRateLimitPerSec
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = constants.DefaultRateLimitBurst
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		apiClient:  http.NewRetryableClient(baseClient, cfg.APIRetries, logging.NewRetryLogger(logger)),
		fileClient: fileClient,
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
		logger:     logger,
		metrics:    &apiMetrics{},
	}, nil
}

// Config returns the connection context the client was built with.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// Stats returns the number of API calls made so far.
func (c *Client) Stats() Stats {
	return Stats{
		Calls:     atomic.LoadInt64(&c.metrics.totalCalls),
		Throttled: atomic.LoadInt64(&c.metrics.throttled),
	}
}

// doRequest performs an HTTP request with authentication and rate limiting
func (c *Client) doRequest(ctx context.Context, client *nethttp.Client, method, path string, body interface{}) (*nethttp.Response, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	if waited := time.Since(start); waited >= constants.RateLimitWarningThreshold {
		c.logger.Debug().Dur("waited", waited).Str("path", path).Msg("request delayed by rate limiter")
	}
	atomic.AddInt64(&c.metrics.totalCalls, 1)

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(constants.HeaderRealm, c.cfg.Realm)
	req.Header.Set("Authorization", constants.AuthScheme+" "+c.cfg.UserToken)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		atomic.AddInt64(&c.metrics.throttled, 1)
		ev := c.logger.Warn().Str("method", method).Str("path", path)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			ev = ev.Str("retry_after", retryAfter)
		}
		ev.Msg("THROTTLED: rate limit exceeded")
	}

	return resp, nil
}

// GetFields loads the field definitions of a table.
func (c *Client) GetFields(ctx context.Context, tableID string) ([]models.FieldDefinition, error) {
	path := "/v1/fields?tableId=" + url.QueryEscape(tableID)

	resp, err := c.doRequest(ctx, c.apiClient, nethttp.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get fields: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newFetchError("get fields", resp)
	}

	var fields fieldsResponse
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}

	return fields.Fields, nil
}

// QueryResult is the single page returned by QueryRecords.
type QueryResult struct {
	Records []*models.Record

	// TotalRecords is the table's record count reported by the API, or -1 when absent.
	TotalRecords int
}

// Truncated reports whether the table holds more records than were returned.
func (r *QueryResult) Truncated() bool {
	return r.TotalRecords > len(r.Records)
}

// QueryRecords runs one records query selecting fieldIDs and returns the first pageSize records.
func (c *Client) QueryRecords(ctx context.Context, tableID string, fieldIDs []int, pageSize int) (*QueryResult, error) {
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if fieldIDs == nil {
		fieldIDs = []int{}
	}

	req := queryRequest{
		From:   tableID,
		Select: fieldIDs,
		Options: queryOptions{
			Skip: 0,
			Top:  pageSize,
		},
	}

	resp, err := c.doRequest(ctx, c.apiClient, nethttp.MethodPost, "/v1/records/query", req)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newFetchError("query records", resp)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	result := &QueryResult{Records: qr.Data, TotalRecords: -1}
	if qr.Metadata != nil {
		result.TotalRecords = qr.Metadata.TotalRecords
	}
	return result, nil
}

// FilePath returns the files endpoint path of the first version of a record's attachment.
func FilePath(tableID, recordID string, fieldID int) string {
	return fmt.Sprintf("/v1/files/%s/%s/%d/%d",
		url.PathEscape(tableID), url.PathEscape(recordID), fieldID, constants.AttachmentVersion)
}

// FileResponse is the raw outcome of a files endpoint call.
type FileResponse struct {
	StatusCode         int
	ContentDisposition string
	Body               []byte
}

// OK reports whether the call returned a 2xx status.
func (r *FileResponse) OK() bool {
	return isSuccess(r.StatusCode)
}

// GetFile fetches an attachment body. A non-2xx status is not an error;
// the caller inspects StatusCode and Body. Only transport failures are returned as errors.
func (c *Client) GetFile(ctx context.Context, path string) (*FileResponse, error) {
	resp, err := c.doRequest(ctx, c.fileClient, nethttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body []byte
	if isSuccess(resp.StatusCode) {
		body, err = io.ReadAll(resp.Body)
	} else {
		body, err = io.ReadAll(io.LimitReader(resp.Body, constants.ErrorBodyLimit))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &FileResponse{
		StatusCode:         resp.StatusCode,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               body,
	}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
