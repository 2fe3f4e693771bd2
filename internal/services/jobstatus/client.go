package jobstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/protobuf/encoding/protojson"

	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
)

type operation struct {
	Done     bool            `json:"done"`
	Response json.RawMessage `json:"response"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var annotationDecoder = protojson.UnmarshalOptions{DiscardUnknown: true}

// Client polls long-running jobs over HTTP with GET <base>/<job_id>.
type Client struct {
	http *httpjson.Client
}

// New wraps a configured JSON client.
func New(client *httpjson.Client) *Client {
	return &Client{http: client}
}

// Check fetches the job and maps it onto a Status. Responses shaped like a
// video annotation result are formatted; any other response is kept as
// compact JSON.
func (c *Client) Check(ctx context.Context, jobID string) (Status, error) {
	jobID = strings.Trim(strings.TrimSpace(jobID), "/")
	if jobID == "" {
		return Status{}, services.Wrap(services.ErrValidation, "jobstatus", "check", "job id required", nil)
	}
	var op operation
	if err := c.http.GetJSON(ctx, jobID, &op); err != nil {
		return Status{}, err
	}
	if !op.Done {
		return Pending(), nil
	}
	if op.Error != nil {
		msg := strings.TrimSpace(op.Error.Message)
		if msg == "" {
			msg = "remote job failed"
		}
		return Errored(msg), nil
	}
	return Succeeded(formatResponse(op.Response)), nil
}

func formatResponse(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var resp vipb.AnnotateVideoResponse
	if err := annotationDecoder.Unmarshal(trimmed, &resp); err == nil && len(resp.GetAnnotationResults()) > 0 {
		return FormatAnnotations(&resp)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
