package httpjson

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"storygraph/internal/services"
)

// NewIDTokenHTTPClient returns an HTTP client that attaches Google-signed
// identity tokens for the given audience, as required by private Cloud Run
// services. An empty credentials file falls back to application default
// credentials.
func NewIDTokenHTTPClient(ctx context.Context, audience, credentialsFile string) (*http.Client, error) {
	audience = strings.TrimRight(strings.TrimSpace(audience), "/")
	if audience == "" {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "id token client", "audience required", nil)
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := idtoken.NewClient(ctx, audience, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "auth", "id token client", audience, err)
	}
	return client, nil
}
