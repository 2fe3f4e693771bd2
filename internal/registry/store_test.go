package registry_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/testsupport"
)

func TestUpsertCreatesWithDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	asset := testsupport.MustUpsert(t, store, "drive-1", registry.Patch{
		Filename: registry.Ptr("A001.mov"),
		MimeType: registry.Ptr("video/quicktime"),
	})
	if asset.ClipType != registry.ClipUnknown {
		t.Fatalf("expected clip type unknown, got %q", asset.ClipType)
	}
	if asset.Job.Status != registry.JobNone {
		t.Fatalf("expected job none, got %q", asset.Job.Status)
	}
	if asset.LastStage != registry.StageNone {
		t.Fatalf("expected stage none, got %q", asset.LastStage)
	}
	if asset.SyncOffsetFrames != 0 {
		t.Fatalf("expected zero offset, got %d", asset.SyncOffsetFrames)
	}
	if asset.CreatedAt.IsZero() || asset.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	patch := testsupport.PatchOf(testsupport.InterviewAngle("cam-a", "A001.mov", 25, 1500, 120))
	first := testsupport.MustUpsert(t, store, "cam-a", patch)
	second := testsupport.MustUpsert(t, store, "cam-a", patch)

	if !first.UpdatedAt.Equal(second.UpdatedAt) {
		t.Fatalf("updated_at moved on identical upsert: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	stored := testsupport.MustGet(t, store, "cam-a")
	if stored.Tech == nil || stored.Tech.TotalFrames != 1500 || stored.Tech.FrameRate != 25 {
		t.Fatalf("unexpected tech after round trip: %+v", stored.Tech)
	}
	if stored.SyncOffsetFrames != 120 {
		t.Fatalf("expected offset 120, got %d", stored.SyncOffsetFrames)
	}
}

func TestUpsertMergesFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{
		Filename:      registry.Ptr("A001.mov"),
		MediaCategory: registry.Ptr(registry.CategoryVideo),
	})
	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{
		ClipType:  registry.Ptr(registry.ClipInterview),
		Job:       registry.Ptr(registry.LightCompleted()),
		LastStage: registry.Ptr(registry.StageLight),
	})
	// Rediscovery carries identity fields only.
	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{
		Filename:  registry.Ptr("A001.mov"),
		SizeBytes: registry.Ptr(int64(4096)),
	})

	stored := testsupport.MustGet(t, store, "cam-a")
	if stored.ClipType != registry.ClipInterview {
		t.Fatalf("classification clobbered: %q", stored.ClipType)
	}
	if stored.Job.Status != registry.JobLightComplete {
		t.Fatalf("job clobbered: %q", stored.Job.Status)
	}
	if stored.SizeBytes != 4096 {
		t.Fatalf("expected size 4096, got %d", stored.SizeBytes)
	}
}

func TestJobStateNeverReturnsToNone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{Job: registry.Ptr(registry.InFlight("projects/p/operations/1"))})
	stored := testsupport.MustUpsert(t, store, "cam-a", registry.Patch{Job: registry.Ptr(registry.JobState{Status: registry.JobNone})})

	if stored.Job.Status != registry.JobInFlight || stored.Job.JobID != "projects/p/operations/1" {
		t.Fatalf("job regressed: %s", stored.Job)
	}

	stored = testsupport.MustUpsert(t, store, "cam-a", registry.Patch{Job: registry.Ptr(registry.JobState{Status: registry.JobComplete, JobID: "stale"})})
	if stored.Job.JobID != "" {
		t.Fatalf("terminal job kept id %q", stored.Job.JobID)
	}
}

func TestResolveJobIsConditional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{Job: registry.Ptr(registry.InFlight("job-1"))})

	applied, err := store.ResolveJob(ctx, "cam-a", "job-other", registry.JobComplete, "ignored")
	if err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}
	if applied {
		t.Fatal("expected mismatched job id to be ignored")
	}

	applied, err = store.ResolveJob(ctx, "cam-a", "job-1", registry.JobComplete, "transcript")
	if err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}
	if !applied {
		t.Fatal("expected resolve to apply")
	}

	applied, err = store.ResolveJob(ctx, "cam-a", "job-1", registry.JobError, "late")
	if err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}
	if applied {
		t.Fatal("expected terminal job to stay terminal")
	}

	stored := testsupport.MustGet(t, store, "cam-a")
	if stored.Job.Status != registry.JobComplete || stored.AnalysisContent != "transcript" {
		t.Fatalf("unexpected stored job: %s %q", stored.Job, stored.AnalysisContent)
	}

	if _, err := store.ResolveJob(ctx, "cam-a", "job-1", registry.JobInFlight, ""); err == nil {
		t.Fatal("expected non-terminal status to be rejected")
	}
}

func TestInFlightListsPendingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.MustUpsert(t, store, "b", registry.Patch{Job: registry.Ptr(registry.InFlight("job-b"))})
	testsupport.MustUpsert(t, store, "a", registry.Patch{Job: registry.Ptr(registry.InFlight("job-a"))})
	testsupport.MustUpsert(t, store, "c", registry.Patch{Job: registry.Ptr(registry.Completed())})

	pending, err := store.InFlight(context.Background())
	if err != nil {
		t.Fatalf("InFlight: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "b" {
		t.Fatalf("unexpected in-flight set: %+v", pending)
	}
}

func TestAllAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		testsupport.MustUpsert(t, store, id, registry.Patch{Filename: registry.Ptr(id + ".mov")})
	}
	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %v", ids(all))
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestUpsertRejectsBlankID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Upsert(context.Background(), "  ", registry.Patch{}); !errors.Is(err, registry.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := registry.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	_, err = registry.OpenPath(path)
	if !errors.Is(err, registry.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage marker, got %v", err)
	}
}

func ids(assets []*registry.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.ID)
	}
	return out
}
