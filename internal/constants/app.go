package constants

import (
	"time"
)

// Quickbase API
const (
	// DefaultAPIBaseURL - REST API v1 host. The realm is carried in a header, not the host.
	DefaultAPIBaseURL = "https://api.quickbase.com"

	// UserAgent - static user agent sent on every API call
	UserAgent = "qbfetch Quickbase API Client"

	// HeaderRealm - realm hostname header required by every call
	HeaderRealm = "QB-Realm-Hostname"

	// AuthScheme - prefix of the Authorization header value for user tokens
	AuthScheme = "QB-USER-TOKEN"

	// RecordIDFieldID - built-in "Record ID#" field present on every table
	RecordIDFieldID = "3"

	// AttachmentVersion - files endpoint version index. Only the first version is fetched.
	AttachmentVersion = 0

	// UnknownRecordID - join key used for records that carry no record id field
	UnknownRecordID = "unknown"
)

// Export defaults
const (
	// DefaultWorkers - concurrent attachment downloads
	DefaultWorkers = 5

	// MinWorkers / MaxWorkers - accepted range for --workers
	MinWorkers = 1
	MaxWorkers = 64

	// DefaultPageSize - records requested by the single query call.
	// Records beyond this are not fetched.
	DefaultPageSize = 1000

	// MaxPageSize - upper bound accepted by config validation
	MaxPageSize = 10000

	// DefaultDownloadFolder - destination for attachments, relative to the working directory
	DefaultDownloadFolder = "downloads"

	// DefaultOutputFile - spreadsheet report path
	DefaultOutputFile = "Quickbase_Table_Report.xlsx"

	// ReportSheetName - the single sheet written to the report
	ReportSheetName = "Report"

	// LocalAttachmentColumn - synthetic report column holding the downloaded filename
	LocalAttachmentColumn = "LocalAttachment"

	// DefaultAttachmentExt - appended to derived filenames without an extension
	DefaultAttachmentExt = ".pdf"

	// DiskSpaceSafetyMargin - free space required per attachment, as a multiple of its size
	DiskSpaceSafetyMargin = 1.1
)

// Link styles for report hyperlinks
const (
	// LinkStyleWindows - backslash separators, matches spreadsheets opened on Windows
	LinkStyleWindows = "windows"

	// LinkStyleNative - separator of the host running the export
	LinkStyleNative = "native"
)

// Rate limiting
const (
	// DefaultRateLimitPerSec - API requests per second shared by all workers.
	// Quickbase allows 100 requests per 10 seconds per user token.
	DefaultRateLimitPerSec = 10.0

	// DefaultRateLimitBurst - token bucket size
	DefaultRateLimitBurst = 10

	// RateLimitWarningThreshold - delay threshold to log a throttling warning (2 seconds)
	RateLimitWarningThreshold = 2 * time.Second
)

// Retry settings for the one-shot metadata and query calls.
// Attachment downloads are never retried.
const (
	// DefaultAPIRetries - 0 means a single attempt
	DefaultAPIRetries = 0

	// MaxAPIRetries - upper bound accepted by config validation
	MaxAPIRetries = 10

	// RetryWaitMin / RetryWaitMax - retryablehttp backoff bounds
	RetryWaitMin = 1 * time.Second
	RetryWaitMax = 30 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPClientTimeout - overall timeout applied to each request (5 minutes)
	HTTPClientTimeout = 300 * time.Second

	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ErrorBodyLimit - bytes of a failed response body kept for error messages
	ErrorBodyLimit = 4096
)

// Progress
const (
	// ProgressRefreshRate - mpb redraw interval
	ProgressRefreshRate = 300 * time.Millisecond
)
