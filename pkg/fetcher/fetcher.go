// Package fetcher implements HTTP clients for the external content
// sources and the prediction-market API. Fetchers return raw items and
// let the caller decide what to keep; a failed fetch surfaces as an
// error, never a partial panic.
package fetcher

import (
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const defaultUserAgent = "trendwatch/1.0"

// strict policy strips all markup from fetched text before it is stored
var sanitizer = bluemonday.StrictPolicy()

// newHTTPClient builds the shared client shape used by all fetchers
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// cleanText strips markup and collapses surrounding whitespace
func cleanText(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

// truncate cuts s to max bytes, used for deriving titles from post bodies
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
