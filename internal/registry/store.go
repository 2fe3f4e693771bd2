package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storygraph/internal/config"
)

// Store manages asset persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const assetColumns = "id, filename, checksum, size_bytes, mime_type, relative_path, duration_ms, media_category, clip_type, tech_json, job_status, job_id, last_stage, sync_offset_frames, analysis_content, created_at, updated_at"

// Open initializes or connects to the registry database under the configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, storageError("ensure directories", err)
	}
	return OpenPath(cfg.RegistryPath())
}

// OpenPath initializes or connects to the registry database at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageError("open", fmt.Errorf("open sqlite db: %w", err))
	}
	// One connection serializes read-merge-write upserts.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, storageError("open", fmt.Errorf("apply pragma %q: %w", pragma, execErr))
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, storageError("init schema", err)
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert merges patch into the asset with the given id, creating it when
// absent, and returns the stored record. Applying the same patch twice leaves
// the stored record, including updated_at, unchanged.
func (s *Store) Upsert(ctx context.Context, id string, patch Patch) (*Asset, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}

	var stored *Asset
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		current, err := getAsset(ctx, tx, id)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if !exists {
			current = newAsset(id)
		}

		merged := patch.Apply(current)
		merged.ID = id
		if exists && sameContent(current, merged) {
			stored = current
			return tx.Commit()
		}

		now := s.now().UTC()
		if !exists {
			merged.CreatedAt = now
		}
		merged.UpdatedAt = now
		if err := writeAsset(ctx, tx, merged); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		stored = merged
		return nil
	})
	if err != nil {
		return nil, storageError("upsert "+id, err)
	}
	return stored, nil
}

// Get returns the asset with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Asset, error) {
	ctx = ensureContext(ctx)
	asset, err := getAsset(ctx, s.db, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storageError("get "+id, err)
	}
	return asset, nil
}

// All returns every asset ordered by id.
func (s *Store) All(ctx context.Context) ([]*Asset, error) {
	return s.query(ctx, "list", "SELECT "+assetColumns+" FROM assets ORDER BY id")
}

// InFlight returns assets whose remote job still awaits reconciliation.
func (s *Store) InFlight(ctx context.Context) ([]*Asset, error) {
	return s.query(ctx, "list in-flight",
		"SELECT "+assetColumns+" FROM assets WHERE job_status = ? AND job_id != '' ORDER BY id",
		string(JobInFlight),
	)
}

// ResolveJob moves an in-flight job to a terminal state. The update only
// applies while the stored job is still IN_FLIGHT with the same job id; the
// returned bool reports whether it applied.
func (s *Store) ResolveJob(ctx context.Context, id, jobID string, status JobStatus, content string) (bool, error) {
	ctx = ensureContext(ctx)
	if !status.Terminal() {
		return false, fmt.Errorf("resolve job %s: status %q is not terminal", id, status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE assets SET job_status = ?, job_id = '', analysis_content = ?, updated_at = ?
		 WHERE id = ? AND job_status = ? AND job_id = ?`,
		string(status), content, formatTime(s.now()), id, string(JobInFlight), jobID,
	)
	if err != nil {
		return false, storageError("resolve job "+id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("resolve job "+id, err)
	}
	return n > 0, nil
}

// Clear removes every asset and returns the number removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM assets")
	if err != nil {
		return 0, storageError("clear", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("clear", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, operation, query string, args ...any) ([]*Asset, error) {
	ctx = ensureContext(ctx)
	var assets []*Asset
	err := retryOnBusy(ctx, func() error {
		assets = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			asset, err := scanAsset(rows)
			if err != nil {
				return err
			}
			assets = append(assets, asset)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storageError(operation, err)
	}
	return assets, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAsset(ctx context.Context, q queryer, id string) (*Asset, error) {
	row := q.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return asset, err
}

func writeAsset(ctx context.Context, tx *sql.Tx, a *Asset) error {
	techJSON, err := encodeTech(a.Tech)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO assets (`+assetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   filename = excluded.filename,
		   checksum = excluded.checksum,
		   size_bytes = excluded.size_bytes,
		   mime_type = excluded.mime_type,
		   relative_path = excluded.relative_path,
		   duration_ms = excluded.duration_ms,
		   media_category = excluded.media_category,
		   clip_type = excluded.clip_type,
		   tech_json = excluded.tech_json,
		   job_status = excluded.job_status,
		   job_id = excluded.job_id,
		   last_stage = excluded.last_stage,
		   sync_offset_frames = excluded.sync_offset_frames,
		   analysis_content = excluded.analysis_content,
		   updated_at = excluded.updated_at`,
		a.ID,
		a.Filename,
		a.Checksum,
		a.SizeBytes,
		a.MimeType,
		a.RelativePath,
		a.DurationMs,
		string(a.MediaCategory),
		string(a.ClipType),
		techJSON,
		string(a.Job.Status),
		a.Job.JobID,
		string(a.LastStage),
		a.SyncOffsetFrames,
		a.AnalysisContent,
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	return err
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func encodeTech(tech *TechMetadata) (any, error) {
	if tech == nil {
		return nil, nil
	}
	data, err := json.Marshal(tech)
	if err != nil {
		return nil, fmt.Errorf("encode tech metadata: %w", err)
	}
	return string(data), nil
}
