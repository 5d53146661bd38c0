// Package statusclient queries the job backend for the current status of a
// job. It is the only transport the monitor depends on.
package statusclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
	"github.com/raysh454/moku-watch/internal/webclient"
)

var (
	// ErrMalformedPayload is wrapped by errors caused by a response body that
	// is not a usable snapshot.
	ErrMalformedPayload = errors.New("malformed status payload")

	ErrEmptyJobID = errors.New("job id is empty")
)

// Source returns the current snapshot of one job.
type Source interface {
	Fetch(ctx context.Context, jobID string) (*jobstatus.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, jobID string) (*jobstatus.Snapshot, error)

func (f SourceFunc) Fetch(ctx context.Context, jobID string) (*jobstatus.Snapshot, error) {
	return f(ctx, jobID)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	// Message is the backend's {"error": "..."} text, when present.
	Message string
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unexpected status"
	}
	if e.Message != "" {
		return fmt.Sprintf("status endpoint returned %d %s: %s", e.Code, text, e.Message)
	}
	return fmt.Sprintf("status endpoint returned %d %s", e.Code, text)
}

// Config configures an HTTPSource.
type Config struct {
	// BaseURL of the job backend, e.g. "http://localhost:8080".
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Headers are added to every request.
	Headers http.Header
}

// HTTPSource fetches snapshots from GET {BaseURL}/jobs/{id}.
type HTTPSource struct {
	cfg    Config
	base   *url.URL
	client webclient.WebClient
	logger logging.Logger
}

// NewHTTPSource validates cfg.BaseURL and returns a Source backed by client.
func NewHTTPSource(cfg Config, client webclient.WebClient, logger logging.Logger) (*HTTPSource, error) {
	if client == nil {
		return nil, errors.New("webclient is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", raw)
	}

	return &HTTPSource{
		cfg:    cfg,
		base:   base,
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "statusclient"}),
	}, nil
}

// JobURL returns the status URL for jobID.
func (s *HTTPSource) JobURL(jobID string) string {
	u := *s.base
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/jobs/" + jobID
	u.RawPath = escaped + "/jobs/" + url.PathEscape(jobID)
	return u.String()
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, jobID string) (*jobstatus.Snapshot, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	for k, vs := range s.cfg.Headers {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	if s.cfg.Token != "" {
		headers.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     s.JobURL(jobID),
		Headers: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("query status of %s: %w", jobID, err)
	}

	if !resp.OK() {
		serr := &StatusError{Code: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp.Body, &body) == nil {
			serr.Message = body.Error
		}
		s.logger.Debug("status endpoint returned error",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "code", Value: resp.StatusCode})
		return nil, serr
	}

	return decodeSnapshot(resp.Body)
}

func decodeSnapshot(body []byte) (*jobstatus.Snapshot, error) {
	var snap jobstatus.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if snap.JobID == "" {
		return nil, fmt.Errorf("%w: missing job_id", ErrMalformedPayload)
	}
	if snap.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedPayload)
	}
	return &snap, nil
}
