package httpjson

import (
	"net/http"
	"time"

	"storygraph/internal/config"
)

// FromConfig builds a client for one remote service using the shared
// [remote] timeout and retry policy. A nil httpClient uses the default client.
func FromConfig(service, baseURL string, cfg *config.Config, httpClient *http.Client) *Client {
	remote := cfg.Remote
	return NewClient(
		Config{
			Service: service,
			BaseURL: baseURL,
			Timeout: cfg.RemoteTimeout(),
		},
		WithHTTPClient(httpClient),
		WithRetryMaxAttempts(remote.RetryAttempts),
		WithRetryBackoff(
			time.Duration(remote.RetryBaseDelayMs)*time.Millisecond,
			time.Duration(remote.RetryMaxDelayMs)*time.Millisecond,
		),
	)
}
