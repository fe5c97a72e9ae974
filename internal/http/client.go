package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/qbfetch/qbfetch/internal/config"
)

// CreateDownloadClient creates the HTTP client shared by the attachment workers.
//
// It starts from ConfigureHTTPClient, so downloads honor the same proxy settings
// as the metadata and query calls, then tunes the transport for concurrent GETs:
//   - one idle connection per worker, so connections are reused across tasks
//   - HTTP/2 when talking directly to the API, with DISABLE_HTTP2=true as an escape hatch
//   - HTTP/1.1 when a proxy is active, unless FORCE_HTTP2=true
//
// The client has no overall timeout and downloads carry no deadline: once
// started, a download is bounded only by the transport's dial and TLS timeouts.
func CreateDownloadClient(cfg config.NetworkConfig, workers int) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a negotiator; leave it untouched
		baseClient.Timeout = 0
		return baseClient, nil
	}

	if workers > tr.MaxIdleConnsPerHost {
		tr.MaxIdleConnsPerHost = workers
		tr.MaxConnsPerHost = workers
	}
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true") {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}

// proxyActive reports whether requests will go through a proxy.
// Config mode wins; environment variables are only consulted in system mode.
func proxyActive(cfg config.NetworkConfig) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
