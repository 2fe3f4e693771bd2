package extractor

import (
	"context"
	"strings"

	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
)

// Request identifies the media file to probe.
type Request struct {
	Filename string `json:"filename"`
}

// Response carries the raw technical descriptors reported by the service.
type Response struct {
	TechMetadata *registry.RawTechMetadata `json:"tech_metadata"`
}

// Client talks to the technical metadata extractor.
type Client struct {
	http *httpjson.Client
}

// New wraps a configured JSON client.
func New(client *httpjson.Client) *Client {
	return &Client{http: client}
}

// Extract posts filename and returns the raw, unnormalized metadata.
func (c *Client) Extract(ctx context.Context, filename string) (registry.RawTechMetadata, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return registry.RawTechMetadata{}, services.Wrap(services.ErrValidation, "extractor", "extract", "filename required", nil)
	}
	var resp Response
	if err := c.http.PostJSON(ctx, "", Request{Filename: filename}, &resp); err != nil {
		return registry.RawTechMetadata{}, err
	}
	if resp.TechMetadata == nil {
		return registry.RawTechMetadata{}, services.Wrap(services.ErrRemoteService, "extractor", "extract", "response missing tech_metadata", nil)
	}
	return *resp.TechMetadata, nil
}
