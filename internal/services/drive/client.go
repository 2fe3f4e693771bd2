package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"storygraph/internal/discovery"
	"storygraph/internal/registry"
	"storygraph/internal/services"
)

const listFields = "nextPageToken, files(id, name, md5Checksum, size, mimeType, videoMediaMetadata)"

// Client lists and downloads files through the Drive v3 API.
type Client struct {
	svc      *drivev3.Service
	pageSize int64
}

// New builds a read-only Drive client. Additional options, such as an
// endpoint override, are applied after the credentials.
func New(ctx context.Context, credentialsFile string, extra ...option.ClientOption) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(drivev3.DriveReadonlyScope)}
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	opts = append(opts, extra...)
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "drive", "new service", "", err)
	}
	return &Client{svc: svc, pageSize: 1000}, nil
}

// List returns one page of the non-trashed children of folderID.
func (c *Client) List(ctx context.Context, folderID, pageToken string) (discovery.Page, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))
	call := c.svc.Files.List().
		Q(query).
		Fields(googleapi.Field(listFields)).
		PageSize(c.pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return discovery.Page{}, classify("list "+folderID, err)
	}
	page := discovery.Page{NextPageToken: resp.NextPageToken}
	for _, f := range resp.Files {
		if f == nil {
			continue
		}
		entry := discovery.Entry{
			ID:        f.Id,
			Name:      f.Name,
			MimeType:  f.MimeType,
			Checksum:  f.Md5Checksum,
			SizeBytes: f.Size,
		}
		if f.VideoMediaMetadata != nil {
			entry.DurationMs = f.VideoMediaMetadata.DurationMillis
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

// Open downloads the media bytes of an asset. It satisfies the mirror source
// contract.
func (c *Client) Open(ctx context.Context, asset *registry.Asset) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(asset.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, classify("download "+asset.ID, err)
	}
	return resp.Body, nil
}

func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return services.Wrap(services.ErrAuth, "drive", op, apiErr.Message, err)
		}
	}
	return services.Wrap(services.ErrRemoteService, "drive", op, "", err)
}
