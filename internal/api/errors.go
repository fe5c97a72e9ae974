package api

import (
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/qbfetch/qbfetch/internal/constants"
)

// FetchError is a non-2xx answer to the metadata or query call. It aborts the run.
type FetchError struct {
	Op         string // "get fields" or "query records"
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// newFetchError builds a FetchError from resp, keeping at most
// constants.ErrorBodyLimit bytes of the body.
func newFetchError(op string, resp *nethttp.Response) *FetchError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.ErrorBodyLimit))
	return &FetchError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsAuthError reports whether err is a FetchError caused by rejected credentials.
func IsAuthError(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.StatusCode == nethttp.StatusUnauthorized || fe.StatusCode == nethttp.StatusForbidden
}
