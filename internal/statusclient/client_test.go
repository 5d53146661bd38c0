package statusclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
	"github.com/raysh454/moku-watch/internal/statusclient"
	"github.com/raysh454/moku-watch/internal/webclient"
)

func newSource(t *testing.T, cfg statusclient.Config, h http.HandlerFunc) *statusclient.HTTPSource {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ts.URL
	}
	src, err := statusclient.NewHTTPSource(cfg, wc, logging.Nop())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	return src
}

func TestHTTPSource_Fetch_DecodesSnapshot(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth, gotAccept, gotExtra string
	src := newSource(t, statusclient.Config{
		Token:   "secret",
		Headers: http.Header{"X-Tenant": []string{"acme"}},
	}, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotExtra = r.Header.Get("X-Tenant")
		_, _ = io.WriteString(w, `{"job_id":"scan 1","status":"running","progress":30}`)
	})

	snap, err := src.Fetch(context.Background(), "scan 1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.JobID != "scan 1" || snap.Status != jobstatus.StatusRunning {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if n := snap.Normalized(); n.Percent == nil || *n.Percent != 30 {
		t.Errorf("unexpected progress: %+v", n)
	}
	if gotPath != "/jobs/scan%201" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" || gotAccept != "application/json" || gotExtra != "acme" {
		t.Errorf("unexpected headers: auth=%q accept=%q tenant=%q", gotAuth, gotAccept, gotExtra)
	}
}

func TestHTTPSource_Fetch_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	src := newSource(t, statusclient.Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"job not found"}`)
	})

	_, err := src.Fetch(context.Background(), "missing")
	var serr *statusclient.StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Code != http.StatusNotFound || serr.Message != "job not found" {
		t.Errorf("unexpected status error: %+v", serr)
	}
	if serr.Error() != "status endpoint returned 404 Not Found: job not found" {
		t.Errorf("unexpected message %q", serr.Error())
	}
}

func TestHTTPSource_Fetch_MalformedPayloads(t *testing.T) {
	t.Parallel()
	bodies := map[string]string{
		"not json":       `<html>gateway</html>`,
		"missing job id": `{"status":"running"}`,
		"missing status": `{"job_id":"a"}`,
		"wrong type":     `{"job_id":"a","status":"running","tools":"nmap"}`,
	}
	for name, body := range bodies {
		name, body := name, body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			src := newSource(t, statusclient.Config{}, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := src.Fetch(context.Background(), "a")
			if !errors.Is(err, statusclient.ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestHTTPSource_Fetch_EmptyJobID(t *testing.T) {
	t.Parallel()
	called := false
	src := newSource(t, statusclient.Config{}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	if _, err := src.Fetch(context.Background(), ""); !errors.Is(err, statusclient.ErrEmptyJobID) {
		t.Fatalf("expected ErrEmptyJobID, got %v", err)
	}
	if called {
		t.Error("no request should be sent for an empty job id")
	}
}

func TestHTTPSource_Fetch_TransportError(t *testing.T) {
	t.Parallel()
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	src, err := statusclient.NewHTTPSource(statusclient.Config{BaseURL: "http://127.0.0.1:1"}, wc, logging.Nop())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	if _, err := src.Fetch(context.Background(), "a"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestNewHTTPSource_Validation(t *testing.T) {
	t.Parallel()
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	for _, base := range []string{"", "   ", "ftp://host", "://bad"} {
		if _, err := statusclient.NewHTTPSource(statusclient.Config{BaseURL: base}, wc, nil); err == nil {
			t.Errorf("expected error for base url %q", base)
		}
	}
	if _, err := statusclient.NewHTTPSource(statusclient.Config{BaseURL: "http://x"}, nil, nil); err == nil {
		t.Error("expected error for nil webclient")
	}
}

func TestHTTPSource_JobURL(t *testing.T) {
	t.Parallel()
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	tests := map[string]string{
		"http://api.local":         "http://api.local/jobs/a%2Fb",
		"http://api.local/":        "http://api.local/jobs/a%2Fb",
		"https://api.local/v1/":    "https://api.local/v1/jobs/a%2Fb",
		"https://api.local/v1?x=1": "https://api.local/v1/jobs/a%2Fb?x=1",
	}
	for base, want := range tests {
		src, err := statusclient.NewHTTPSource(statusclient.Config{BaseURL: base}, wc, nil)
		if err != nil {
			t.Fatalf("NewHTTPSource(%q): %v", base, err)
		}
		if got := src.JobURL("a/b"); got != want {
			t.Errorf("JobURL with base %q = %q, want %q", base, got, want)
		}
	}
}

func TestSourceFunc(t *testing.T) {
	t.Parallel()
	var src statusclient.Source = statusclient.SourceFunc(func(_ context.Context, id string) (*jobstatus.Snapshot, error) {
		return &jobstatus.Snapshot{JobID: id, Status: jobstatus.StatusQueued}, nil
	})
	snap, err := src.Fetch(context.Background(), "x")
	if err != nil || snap.JobID != "x" {
		t.Fatalf("unexpected result %+v, %v", snap, err)
	}
}
