package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type pingResponse struct {
	Status string `json:"status"`
	Echo   string `json:"echo"`
}

func newJSONServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetJSON(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","echo":"` + r.URL.Query().Get("q") + `"}`))
	})

	client := New(Config{Timeout: time.Second}, zap.NewNop())
	defer client.Close()

	var out pingResponse
	err := client.GetJSON(context.Background(), server.URL, map[string]string{"q": "hello"}, map[string]string{"X-API-Key": "secret"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != "ok" || out.Echo != "hello" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestClient_GetJSON_HTTPError(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	})

	client := New(Config{Timeout: time.Second}, zap.NewNop())
	defer client.Close()

	var out pingResponse
	err := client.GetJSON(context.Background(), server.URL, nil, nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.StatusCode)
	}
	if !IsRateLimited(err) {
		t.Error("expected IsRateLimited")
	}
	if IsTimeout(err) {
		t.Error("an answered request is not a timeout")
	}
}

func TestClient_GetJSON_Timeout(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	client := New(Config{Timeout: 50 * time.Millisecond}, zap.NewNop())
	defer client.Close()

	var out pingResponse
	err := client.GetJSON(context.Background(), server.URL, nil, nil, &out)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("expected IsTimeout, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("expected no status code, got %d", StatusCode(err))
	}
}

func TestClient_PostJSON(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"created"}`))
	})

	client := New(Config{Timeout: time.Second}, zap.NewNop())
	defer client.Close()

	var out pingResponse
	if err := client.PostJSON(context.Background(), server.URL, map[string]string{"a": "b"}, nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != "created" {
		t.Errorf("unexpected status: %s", out.Status)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("unexpected: %s", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("unexpected: %s", got)
	}
}
