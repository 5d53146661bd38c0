package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

// Config carries the options used to construct a WebClient backend.
type Config struct {
	Client Client

	// Timeout bounds a whole request. Zero means 30s.
	Timeout time.Duration

	// CookieJar keeps session cookies set by the backend between requests.
	CookieJar bool
}
