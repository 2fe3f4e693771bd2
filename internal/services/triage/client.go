package triage

import (
	"context"
	"math"
	"strings"

	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
)

// Request asks for a classification of the first DurationLimit seconds of a file.
type Request struct {
	Filename      string `json:"filename"`
	DurationMs    int64  `json:"duration_ms"`
	DurationLimit int    `json:"duration_limit"`
}

type response struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// Result is a normalized triage verdict.
type Result struct {
	Category registry.ClipType
	// Label is the category exactly as the service reported it.
	Label      string
	Confidence float64
}

// Client talks to the categorization triage service.
type Client struct {
	http *httpjson.Client
}

// New wraps a configured JSON client.
func New(client *httpjson.Client) *Client {
	return &Client{http: client}
}

// Classify posts one snippet request. Confidence is clamped to [0,1]; a
// missing confidence counts as zero so low-confidence handling applies.
func (c *Client) Classify(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "triage", "classify", "filename required", nil)
	}
	var resp response
	if err := c.http.PostJSON(ctx, "", req, &resp); err != nil {
		return Result{}, err
	}
	label := strings.TrimSpace(resp.Category)
	if label == "" {
		return Result{}, services.Wrap(services.ErrRemoteService, "triage", "classify", "response missing category", nil)
	}
	confidence := 0.0
	if resp.Confidence != nil && !math.IsNaN(*resp.Confidence) {
		confidence = math.Min(1, math.Max(0, *resp.Confidence))
	}
	return Result{
		Category:   registry.ParseClipType(label),
		Label:      label,
		Confidence: confidence,
	}, nil
}
