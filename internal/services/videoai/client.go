package videoai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storygraph/internal/logging"
	"storygraph/internal/services"
	"storygraph/internal/services/jobstatus"
)

const (
	defaultLanguageCode = "en-US"
	defaultMaxRetries   = 4
	initialBackoff      = 750 * time.Millisecond
	maxBackoff          = 10 * time.Second
)

// Kind selects the annotation features requested for a job.
type Kind int

const (
	// Speech transcribes dialogue; used for interview footage.
	Speech Kind = iota
	// Visual detects labels and shot changes; used for b-roll.
	Visual
)

// annotator is the slice of the Video Intelligence client this package uses.
type annotator interface {
	start(ctx context.Context, req *vipb.AnnotateVideoRequest) (string, error)
	poll(ctx context.Context, name string) (*vipb.AnnotateVideoResponse, bool, error)
	Close() error
}

// Client starts and polls Video Intelligence annotation jobs.
type Client struct {
	api          annotator
	languageCode string
	maxRetries   int
	sleep        func(context.Context, time.Duration) error
	logger       *slog.Logger
}

// Options configures a Client.
type Options struct {
	LanguageCode    string
	CredentialsFile string
	Logger          *slog.Logger
}

// New dials the Video Intelligence API.
func New(ctx context.Context, opts Options) (*Client, error) {
	var clientOpts []option.ClientOption
	if path := strings.TrimSpace(opts.CredentialsFile); path != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(path))
	}
	c, err := videointelligence.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "videoai", "new client", "", err)
	}
	return newClient(&grpcAnnotator{client: c}, opts), nil
}

func newClient(api annotator, opts Options) *Client {
	lang := strings.TrimSpace(opts.LanguageCode)
	if lang == "" {
		lang = defaultLanguageCode
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		api:          api,
		languageCode: lang,
		maxRetries:   defaultMaxRetries,
		sleep:        sleepContext,
		logger:       logging.NewComponentLogger(logger, "videoai"),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}

// Start submits an annotation job for a gs:// URI and returns the operation
// name, which doubles as the job id.
func (c *Client) Start(ctx context.Context, gcsURI string, kind Kind) (string, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", services.Wrap(services.ErrValidation, "videoai", "start", fmt.Sprintf("uri must be gs://..., got %q", gcsURI), nil)
	}
	req := c.request(gcsURI, kind)
	var name string
	err := c.retry(ctx, "start", func() error {
		var err error
		name, err = c.api.start(ctx, req)
		return err
	})
	if err != nil {
		return "", classify("start", err)
	}
	if name == "" {
		return "", services.Wrap(services.ErrRemoteService, "videoai", "start", "operation has no name", nil)
	}
	return name, nil
}

// Check polls the named operation once.
func (c *Client) Check(ctx context.Context, jobID string) (jobstatus.Status, error) {
	var (
		resp *vipb.AnnotateVideoResponse
		done bool
	)
	err := c.retry(ctx, "check", func() error {
		var err error
		resp, done, err = c.api.poll(ctx, jobID)
		if done && err != nil {
			return jobFailed{err: err}
		}
		return err
	})
	var failed jobFailed
	if errors.As(err, &failed) {
		return jobstatus.Errored(status.Convert(failed.err).Message()), nil
	}
	if err != nil {
		return jobstatus.Status{}, classify("check", err)
	}
	if !done {
		return jobstatus.Pending(), nil
	}
	return jobstatus.Succeeded(jobstatus.FormatAnnotations(resp)), nil
}

func (c *Client) request(gcsURI string, kind Kind) *vipb.AnnotateVideoRequest {
	req := &vipb.AnnotateVideoRequest{InputUri: gcsURI}
	switch kind {
	case Speech:
		req.Features = []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION}
		req.VideoContext = &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               c.languageCode,
				EnableAutomaticPunctuation: true,
			},
		}
	default:
		req.Features = []vipb.Feature{vipb.Feature_LABEL_DETECTION, vipb.Feature_SHOT_CHANGE_DETECTION}
		req.VideoContext = &vipb.VideoContext{
			LabelDetectionConfig: &vipb.LabelDetectionConfig{LabelDetectionMode: vipb.LabelDetectionMode_SHOT_MODE},
		}
	}
	return req
}

type jobFailed struct{ err error }

func (j jobFailed) Error() string { return j.err.Error() }

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn()
		if last == nil {
			return nil
		}
		var failed jobFailed
		if errors.As(last, &failed) || !retryable(last) || attempt == c.maxRetries {
			return last
		}
		c.logger.Debug("video intelligence call retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", backoff),
			logging.Error(last),
		)
		if err := c.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return last
}

func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return services.Wrap(services.ErrAuth, "videoai", op, "", err)
	case codes.DeadlineExceeded:
		return services.Wrap(services.ErrTimeout, "videoai", op, "", err)
	case codes.Canceled:
		return err
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrRemoteService, "videoai", op, "", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type grpcAnnotator struct {
	client *videointelligence.Client
}

func (g *grpcAnnotator) start(ctx context.Context, req *vipb.AnnotateVideoRequest) (string, error) {
	op, err := g.client.AnnotateVideo(ctx, req)
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

func (g *grpcAnnotator) poll(ctx context.Context, name string) (*vipb.AnnotateVideoResponse, bool, error) {
	op := g.client.AnnotateVideoOperation(name)
	resp, err := op.Poll(ctx)
	return resp, op.Done(), err
}

func (g *grpcAnnotator) Close() error {
	return g.client.Close()
}
