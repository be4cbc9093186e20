package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestSnippet(t *testing.T) {
	testCases := []struct {
		input    string
		max      int
		expected string
	}{
		{"short text", 100, "short text"},
		{"", 100, ""},
		{"  trimmed  ", 100, "trimmed"},
		{"long text that should be truncated", 10, "long text …"},
	}

	for _, tc := range testCases {
		result := snippet([]byte(tc.input), tc.max)
		if result != tc.expected {
			t.Errorf("snippet(%q, %d) = %q, want %q", tc.input, tc.max, result, tc.expected)
		}
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{
		Method:     "GET",
		URL:        "https://example.com",
		StatusCode: 404,
		Body:       []byte("Not Found"),
	}

	expected := "http error: GET https://example.com status=404 body=Not Found"
	if err.Error() != expected {
		t.Errorf("HTTPError.Error() = %q, want %q", err.Error(), expected)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != 5 {
		t.Errorf("Expected MaxAttempts to be 5, got %d", cfg.MaxAttempts)
	}

	if cfg.BaseDelay != 700*time.Millisecond {
		t.Errorf("Expected BaseDelay to be 700ms, got %v", cfg.BaseDelay)
	}

	if !cfg.Retry5xx {
		t.Error("Expected Retry5xx to be true")
	}

	expectedStatuses := []int{429, 408, 503, 502, 504}
	for _, status := range expectedStatuses {
		if !cfg.RetryStatuses[status] {
			t.Errorf("Expected status %d to be retryable", status)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()

	for i := 500; i <= 599; i++ {
		if !isRetryableStatus(i, cfg) {
			t.Errorf("Expected status %d to be retryable", i)
		}
	}

	nonRetryable := []int{400, 401, 403, 404, 422}
	for _, status := range nonRetryable {
		if isRetryableStatus(status, cfg) {
			t.Errorf("Expected status %d to not be retryable", status)
		}
	}

	cfg.Retry5xx = false
	if isRetryableStatus(500, cfg) {
		t.Error("Expected status 500 to not be retryable when Retry5xx is false")
	}
	if !isRetryableStatus(429, cfg) {
		t.Error("Expected status 429 to be retryable regardless of Retry5xx")
	}
}

func TestDoBytesDecodesGzip(t *testing.T) {
	payload := []byte("gzip payload for the mirror")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write(payload)
		zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := DoBytes(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("DoBytes returned error: %v", err)
	}
	if !bytes.Equal(body, payload) {
		t.Errorf("DoBytes body = %q, want %q", body, payload)
	}
}

func TestDoBytesDecodesBrotli(t *testing.T) {
	payload := []byte("brotli payload for the mirror")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "br, gzip" {
			t.Errorf("Accept-Encoding = %q, want %q", got, "br, gzip")
		}
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write(payload)
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := DoBytes(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("DoBytes returned error: %v", err)
	}
	if !bytes.Equal(body, payload) {
		t.Errorf("DoBytes body = %q, want %q", body, payload)
	}
}

func TestDoWithRetryRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond

	_, body, err := DoWithRetry(
		context.Background(),
		srv.Client(),
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		},
		cfg,
	)
	if err != nil {
		t.Fatalf("DoWithRetry returned error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestDoWithRetryDoesNotRetry4xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond

	_, _, err := DoWithRetry(
		context.Background(),
		srv.Client(),
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		},
		cfg,
	)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var herr *HTTPError
	if !asHTTPError(err, &herr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if herr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", herr.StatusCode)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	h, ok := err.(*HTTPError)
	if ok {
		*target = h
	}
	return ok
}
