package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"storygraph/internal/logging"
	"storygraph/internal/registry"
	"storygraph/internal/services"
)

const uploadTimeout = 30 * time.Minute

// Source opens the original bytes of an asset, typically a Drive download.
type Source interface {
	Open(ctx context.Context, asset *registry.Asset) (io.ReadCloser, error)
}

// objectStore is the slice of Cloud Storage the mirror needs.
type objectStore interface {
	exists(ctx context.Context, bucket, key string) (bool, error)
	write(ctx context.Context, bucket, key, contentType string, r io.Reader) error
	Close() error
}

// Mirror copies source media into the analysis bucket on demand.
type Mirror struct {
	store  objectStore
	bucket string
	source Source
	logger *slog.Logger
}

// NewMirror dials Cloud Storage with read-write scope.
func NewMirror(ctx context.Context, bucket, credentialsFile string, source Source, logger *slog.Logger) (*Mirror, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "gcs", "new client", "", err)
	}
	return newMirror(&storageClient{client: client}, bucket, source, logger), nil
}

func newMirror(store objectStore, bucket string, source Source, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mirror{
		store:  store,
		bucket: strings.TrimSpace(bucket),
		source: source,
		logger: logging.NewComponentLogger(logger, "gcs"),
	}
}

// Close releases the storage client.
func (m *Mirror) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// URI returns the gs:// location an asset is mirrored to.
func URI(bucket, filename string) string {
	return "gs://" + bucket + "/" + filename
}

// Ensure makes sure the asset's file exists in the bucket and returns its
// gs:// URI. Objects already present are not copied again.
func (m *Mirror) Ensure(ctx context.Context, asset *registry.Asset) (string, error) {
	if asset == nil || strings.TrimSpace(asset.Filename) == "" {
		return "", services.Wrap(services.ErrValidation, "gcs", "mirror", "asset filename required", nil)
	}
	if m.bucket == "" {
		return "", services.Wrap(services.ErrConfiguration, "gcs", "mirror", "sync.bucket not configured", nil)
	}
	key := asset.Filename
	uri := URI(m.bucket, key)

	ok, err := m.store.exists(ctx, m.bucket, key)
	if err != nil {
		return "", services.Wrap(services.ErrRemoteService, "gcs", "stat "+uri, "", err)
	}
	if ok {
		m.logger.Debug("object already mirrored", logging.AssetID(asset.ID), logging.String("uri", uri))
		return uri, nil
	}
	if m.source == nil {
		return "", services.Wrap(services.ErrConfiguration, "gcs", "mirror", "no media source configured", nil)
	}

	body, err := m.source.Open(ctx, asset)
	if err != nil {
		return "", err
	}
	defer body.Close()

	start := time.Now()
	if err := m.store.write(ctx, m.bucket, key, asset.MimeType, body); err != nil {
		return "", services.Wrap(services.ErrRemoteService, "gcs", "upload "+uri, "", err)
	}
	m.logger.Info("asset mirrored",
		logging.String(logging.FieldEventType, "asset_mirrored"),
		logging.AssetID(asset.ID),
		logging.String("uri", uri),
		logging.Duration("elapsed", time.Since(start)),
	)
	return uri, nil
}

type storageClient struct {
	client *storage.Client
}

func (s *storageClient) exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *storageClient) write(ctx context.Context, bucket, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func (s *storageClient) Close() error {
	return s.client.Close()
}
