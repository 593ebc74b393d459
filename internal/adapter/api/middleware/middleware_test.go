package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type failingKeys struct{}

func (failingKeys) IsValid(ctx context.Context, key string) (bool, error) {
	return false, errors.New("backend unavailable")
}

func TestAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := Auth(NewStaticKeys([]string{"secret", ""}), logger)(ok)

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"Missing key", "", http.StatusUnauthorized},
		{"Wrong key", "guess", http.StatusUnauthorized},
		{"Valid key", "secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events/recent", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}

	t.Run("Repository error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, "secret")
		rr := httptest.NewRecorder()
		Auth(failingKeys{}, logger)(ok).ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rr.Code)
		}
	})
}

func TestStaticKeys(t *testing.T) {
	if !NewStaticKeys(nil).Empty() || !NewStaticKeys([]string{""}).Empty() {
		t.Error("expected empty key set")
	}
	keys := NewStaticKeys([]string{"a", "b"})
	for key, want := range map[string]bool{"a": true, "b": true, "c": false, "": false} {
		if got, _ := keys.IsValid(context.Background(), key); got != want {
			t.Errorf("IsValid(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestLogging(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status must pass through, got %d", rr.Code)
	}
}

func TestLogging_PreservesFlusher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var flushable bool
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/stream", nil))
	if !flushable {
		t.Error("wrapped writer must implement http.Flusher")
	}
}
