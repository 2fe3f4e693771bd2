package transcoder

import (
	"context"
	"strings"

	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
)

// Request names the file to transcode.
type Request struct {
	Filename string `json:"filename"`
}

// Client calls the downstream transcode trigger. The response body is ignored.
type Client struct {
	http *httpjson.Client
}

// New wraps a configured JSON client.
func New(client *httpjson.Client) *Client {
	return &Client{http: client}
}

// Trigger posts filename to the transcode endpoint.
func (c *Client) Trigger(ctx context.Context, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return services.Wrap(services.ErrValidation, "transcoder", "trigger", "filename required", nil)
	}
	return c.http.PostJSON(ctx, "", Request{Filename: filename}, nil)
}
