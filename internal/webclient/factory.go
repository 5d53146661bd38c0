package webclient

import (
	"fmt"
	"strings"

	"github.com/raysh454/moku-watch/internal/logging"
)

// NewWebClient constructs the configured WebClient backend. An empty Client
// selects nethttp.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	switch backend := Client(strings.ToLower(strings.TrimSpace(string(cfg.Client)))); backend {
	case "", ClientNetHTTP:
		return NewNetHTTPClient(cfg, logger, nil)
	default:
		return nil, fmt.Errorf("unknown webclient backend %q (want %q)", cfg.Client, ClientNetHTTP)
	}
}

// compile-time check
var _ WebClient = (*NetHTTPClient)(nil)
