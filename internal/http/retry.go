package http

import (
	nethttp "net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/qbfetch/qbfetch/internal/constants"
)

// NewRetryableClient wraps base with retryablehttp.
//
// retries is the number of extra attempts after the first; 0 means exactly one
// request. Backoff is exponential between constants.RetryWaitMin and
// constants.RetryWaitMax, and retryablehttp's default policy retries on
// connection errors, 429 and 5xx responses.
//
// On final failure the last response is returned to the caller unchanged
// instead of being converted into an error, so callers can still read the
// status and body of a rejected request.
func NewRetryableClient(base *nethttp.Client, retries int, logger retryablehttp.LeveledLogger) *nethttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = constants.RetryWaitMin
	retryClient.RetryWaitMax = constants.RetryWaitMax
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = logger
	return retryClient.StandardClient()
}
