package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoSendsHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithToken("secret"))

	var out []int
	if err := c.get(context.Background(), "/api/tasks", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReqID == "" {
		t.Error("X-Request-ID not set")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestDoOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.delete(context.Background(), "/api/tasks/1", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestDoServerMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"message":"titulo es obligatorio"}`, "titulo es obligatorio"},
		{"error field", http.StatusInternalServerError, `{"error":"db down"}`, "db down"},
		{"no body", http.StatusNotFound, ``, "HTTP error 404 on GET /api/tasks/9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).get(context.Background(), "/api/tasks/9", nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDoRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	var out messageResponse
	if err := NewClient(srv.URL).get(context.Background(), "/api/tasks", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if out.Message != "ok" {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, WithMaxRetries(1)).get(context.Background(), "/api/tasks", nil)
	if StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want wrapped 429", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, WithTimeout(time.Second)).get(context.Background(), "/api/tasks", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport errors", StatusCode(err))
	}
}

func TestErrorHelpers(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound, Method: "GET", Path: "/api/tasks/1"}
	if !IsNotFound(fmtWrap(notFound)) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsAuthError(notFound) {
		t.Error("404 is not an auth error")
	}
	if !IsAuthError(&APIError{StatusCode: http.StatusUnauthorized}) {
		t.Error("401 should be an auth error")
	}
	if !IsAuthError(&APIError{StatusCode: http.StatusForbidden}) {
		t.Error("403 should be an auth error")
	}
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("context"), err)
}
