package syncsvc

import (
	"context"
	"math"
	"strings"

	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
	"storygraph/internal/timecode"
)

// Request asks for the lag of Sample against Master.
type Request struct {
	Master        string `json:"master"`
	Sample        string `json:"sample"`
	Bucket        string `json:"bucket"`
	StartOffset   int    `json:"start_offset"`
	DurationLimit int    `json:"duration_limit"`
}

type response struct {
	OffsetFrames       *float64 `json:"offset_frames"`
	HybridOffsetFrames *float64 `json:"hybrid_offset_frames"`
	OffsetSeconds      *float64 `json:"offset_seconds"`
}

// Result is an offset expressed in timeline-fps frames.
type Result struct {
	Frames int64
	// Field names the response key the offset was read from.
	Field string
}

// Client talks to the cross-correlation sync service.
type Client struct {
	http *httpjson.Client
}

// New wraps a configured JSON client.
func New(client *httpjson.Client) *Client {
	return &Client{http: client}
}

// Offset requests the satellite lag and converts it to timeline frames.
//
// Frame fields are taken as already in timeline-fps units and only rounded.
// offset_seconds is converted with the supplied timeline rate. When several
// fields are present, offset_frames wins over hybrid_offset_frames which wins
// over offset_seconds.
func (c *Client) Offset(ctx context.Context, req Request, timelineFPS float64) (Result, error) {
	if strings.TrimSpace(req.Master) == "" || strings.TrimSpace(req.Sample) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "sync", "offset", "master and sample required", nil)
	}
	var resp response
	if err := c.http.PostJSON(ctx, "", req, &resp); err != nil {
		return Result{}, err
	}
	switch {
	case finite(resp.OffsetFrames):
		return Result{Frames: timecode.Round(*resp.OffsetFrames), Field: "offset_frames"}, nil
	case finite(resp.HybridOffsetFrames):
		return Result{Frames: timecode.Round(*resp.HybridOffsetFrames), Field: "hybrid_offset_frames"}, nil
	case finite(resp.OffsetSeconds):
		return Result{Frames: timecode.FromSeconds(*resp.OffsetSeconds, timelineFPS), Field: "offset_seconds"}, nil
	default:
		return Result{}, services.Wrap(services.ErrRemoteService, "sync", "offset", "response carries no offset", nil)
	}
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
