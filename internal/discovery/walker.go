package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"storygraph/internal/logging"
)

// File is a discovered media file with the folder path leading to it.
type File struct {
	Entry
	// RelativePath is the slash-joined folder names below the root.
	RelativePath string
}

// Walker traverses a folder tree breadth-first.
type Walker struct {
	lister Lister
	logger *slog.Logger
}

// NewWalker builds a walker over lister.
func NewWalker(lister Lister, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{lister: lister, logger: logging.NewComponentLogger(logger, "discovery")}
}

type folder struct {
	id   string
	path string
}

// Walk visits every media file under rootID, breadth-first, following page
// tokens. A folder that fails to list is logged and skipped; its error is
// included in the joined error returned after the walk. An error from fn
// stops the walk immediately.
func (w *Walker) Walk(ctx context.Context, rootID string, fn func(File) error) error {
	rootID = strings.TrimSpace(rootID)
	if rootID == "" {
		return errors.New("root folder id required")
	}
	queue := []folder{{id: rootID}}
	seen := map[string]bool{rootID: true}
	var listErrs []error

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]

		token := ""
		for {
			page, err := w.lister.List(ctx, current.id, token)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.WarnWithContext(w.logger, "folder listing failed", "folder_list_failed",
					logging.String("folder_id", current.id),
					logging.String("folder_path", current.path),
					logging.String(logging.FieldErrorHint, "check folder permissions and rerun discover"),
					logging.String(logging.FieldImpact, "files in this folder were not discovered"),
					logging.Error(err),
				)
				listErrs = append(listErrs, fmt.Errorf("list %s: %w", current.id, err))
				break
			}
			for _, entry := range page.Entries {
				entry.Name = norm.NFC.String(entry.Name)
				switch {
				case entry.IsFolder():
					if seen[entry.ID] {
						continue
					}
					seen[entry.ID] = true
					queue = append(queue, folder{id: entry.ID, path: joinPath(current.path, entry.Name)})
				case entry.IsMedia():
					if err := fn(File{Entry: entry, RelativePath: current.path}); err != nil {
						return err
					}
				}
			}
			if page.NextPageToken == "" || page.NextPageToken == token {
				break
			}
			token = page.NextPageToken
		}
	}
	return errors.Join(listErrs...)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
