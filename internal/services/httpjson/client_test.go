package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storygraph/internal/services"
)

func TestPostJSONRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["filename"]})
	}))
	defer server.Close()

	client := NewClient(Config{Service: "test", BaseURL: server.URL + "/"})
	var out struct {
		Echo string `json:"echo"`
	}
	if err := client.PostJSON(context.Background(), "analyze", map[string]string{"filename": "A001.mov"}, &out); err != nil {
		t.Fatalf("PostJSON returned error: %v", err)
	}
	if out.Echo != "A001.mov" {
		t.Fatalf("unexpected echo %q", out.Echo)
	}
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{Service: "test", BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(100*time.Millisecond, time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), "", &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if !out.OK || calls.Load() != 3 {
		t.Fatalf("expected success on third call, calls=%d ok=%v", calls.Load(), out.OK)
	}
	if len(slept) != 2 || slept[0] != 100*time.Millisecond || slept[1] != 200*time.Millisecond {
		t.Fatalf("unexpected backoff sequence %v", slept)
	}
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{Service: "sync", BaseURL: server.URL},
		WithRetryMaxAttempts(2),
		WithSleeper(func(time.Duration) {}),
	)
	err := client.PostJSON(context.Background(), "", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemoteService) {
		t.Fatalf("expected remote service error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestAuthFailuresAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{Service: "triage", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	err := client.PostJSON(context.Background(), "", map[string]string{}, nil)
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status error with 401, got %v", err)
	}
}

func TestPerCallTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{Service: "extractor", BaseURL: server.URL, Timeout: 20 * time.Millisecond},
		WithRetryMaxAttempts(1),
	)
	err := client.GetJSON(context.Background(), "", &struct{}{})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestMissingBaseURL(t *testing.T) {
	client := NewClient(Config{Service: "transcode"})
	err := client.PostJSON(context.Background(), "", map[string]string{}, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBackoffRespectsRetryAfter(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	err := &httpStatusError{
		StatusError: &services.StatusError{StatusCode: http.StatusTooManyRequests},
		RetryAfter:  30 * time.Second,
	}
	delay, retry := client.retryDelay(context.Background(), err, 1, 3)
	if !retry {
		t.Fatal("expected retry for 429")
	}
	if delay != 5*time.Second {
		t.Fatalf("expected retry-after capped to max delay, got %s", delay)
	}
}
