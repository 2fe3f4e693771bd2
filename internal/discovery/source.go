package discovery

import (
	"context"
	"path"
	"strings"
)

// FolderMimeType marks folder entries in a listing.
const FolderMimeType = "application/vnd.google-apps.folder"

// Entry is one item returned by a folder listing.
type Entry struct {
	ID         string
	Name       string
	MimeType   string
	Checksum   string
	SizeBytes  int64
	DurationMs int64
}

// IsFolder reports whether the entry is a folder to descend into.
func (e Entry) IsFolder() bool {
	return e.MimeType == FolderMimeType
}

// IsMedia reports whether the entry is picture or sound media.
func (e Entry) IsMedia() bool {
	mime := strings.ToLower(e.MimeType)
	return strings.HasPrefix(mime, "video/") || strings.HasPrefix(mime, "audio/") || isWAV(e.Name)
}

// IsAudio reports whether the entry carries sound only.
func (e Entry) IsAudio() bool {
	return strings.Contains(strings.ToLower(e.MimeType), "audio") || isWAV(e.Name)
}

func isWAV(name string) bool {
	return strings.EqualFold(path.Ext(name), ".wav")
}

// Page is one page of a folder listing.
type Page struct {
	Entries       []Entry
	NextPageToken string
}

// Lister lists the direct children of a folder one page at a time.
type Lister interface {
	List(ctx context.Context, folderID, pageToken string) (Page, error)
}
