package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/qbfetch/qbfetch/internal/config"
)

func TestNewRetryableClient_NoRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer server.Close()

	client := NewRetryableClient(server.Client(), 0, nil)
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("expected passthrough response, got error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "busy" {
		t.Errorf("body = %q, want busy", body)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestNewRetryableClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewRetryableClient(server.Client(), 3, nil)
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call for 401, got %d", got)
	}
}

func TestCreateDownloadClient(t *testing.T) {
	t.Setenv("DISABLE_HTTP2", "")
	t.Setenv("FORCE_HTTP2", "")

	client, err := CreateDownloadClient(configForMode("no-proxy"), 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", client.Timeout)
	}
	tr := client.Transport.(*http.Transport)
	if tr.MaxIdleConnsPerHost != 80 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 80", tr.MaxIdleConnsPerHost)
	}
	if !tr.ForceAttemptHTTP2 {
		t.Error("expected HTTP/2 for direct connections")
	}

	client, err = CreateDownloadClient(configForMode("basic"), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Transport.(*http.Transport).ForceAttemptHTTP2 {
		t.Error("expected HTTP/1.1 through a proxy")
	}
}

func configForMode(mode string) config.NetworkConfig {
	return config.NetworkConfig{ProxyMode: mode, ProxyHost: "proxy.corp"}
}
