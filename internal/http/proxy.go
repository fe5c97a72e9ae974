package http

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http/httpproxy"

	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/constants"
)

// ConfigureHTTPClient configures an HTTP client with proxy settings
func ConfigureHTTPClient(cfg config.NetworkConfig) (*nethttp.Client, error) {
	transport := newTransport()

	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "ntlm":
		// Fall back to a direct connection if the saved config is incomplete
		if cfg.ProxyHost == "" {
			log.Warn().Msg("Proxy mode is NTLM but host is missing - falling back to no-proxy mode")
			return &nethttp.Client{Transport: transport, Timeout: constants.HTTPClientTimeout}, nil
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
			Timeout:   constants.HTTPClientTimeout,
		}, nil

	case "basic":
		if cfg.ProxyHost == "" {
			log.Warn().Msg("Proxy mode is basic but host is missing - falling back to no-proxy mode")
			return &nethttp.Client{Transport: transport, Timeout: constants.HTTPClientTimeout}, nil
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		if cfg.ProxyUser != "" && cfg.ProxyPassword == "" {
			log.Warn().Msg("Proxy user configured but password missing - proxy auth disabled until password is set")
		}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	return &nethttp.Client{
		Transport: transport,
		Timeout:   constants.HTTPClientTimeout,
	}, nil
}

func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   constants.MaxWorkers,
		MaxConnsPerHost:       constants.MaxWorkers,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg config.NetworkConfig) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}

	// Empty password in the URL breaks auth on some proxies
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			log.Debug().Str("host", req.URL.Host).Msg("proxy bypass (direct connection)")
		} else {
			log.Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by the CLI to decide whether to prompt.
func NeedsProxyPassword(cfg config.NetworkConfig) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
