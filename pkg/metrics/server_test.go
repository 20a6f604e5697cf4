// Unit tests for the metrics HTTP server
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticGatherer string

func (s staticGatherer) Gather() string { return string(s) }

func TestHandleMetrics(t *testing.T) {
	s := NewServer(staticGatherer("penbot_x 1\n"), ":0")
	tests := []struct {
		method string
		status int
		body   string
	}{
		{http.MethodGet, http.StatusOK, "penbot_x 1\n"},
		{http.MethodHead, http.StatusOK, ""},
		{http.MethodPost, http.StatusMethodNotAllowed, "Method not allowed\n"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, "/metrics", nil))
		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != tt.status || string(body) != tt.body {
			t.Errorf("%s: %d %q, want %d %q", tt.method, resp.StatusCode, body, tt.status, tt.body)
		}
		if tt.status == http.StatusOK && !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
			t.Errorf("%s: content type %q", tt.method, resp.Header.Get("Content-Type"))
		}
	}
}

func TestReadyFollowsLifecycle(t *testing.T) {
	s := NewServer(staticGatherer(""), "127.0.0.1:0")
	ready := func() int {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return w.Code
	}
	if ready() != http.StatusServiceUnavailable {
		t.Error("ready before Start")
	}
	errCh, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	if ready() != http.StatusOK {
		t.Error("not ready after Start")
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Errorf("serve error: %v", err)
	}
	if ready() != http.StatusServiceUnavailable {
		t.Error("ready after Shutdown")
	}
}
