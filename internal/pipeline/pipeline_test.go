package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"storygraph/internal/forensic"
	"storygraph/internal/pipeline"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/syncsvc"
	"storygraph/internal/testsupport"
	"storygraph/internal/timeline"
)

type scriptedExtractor struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   []string
	active  int
	maxSeen int
}

func (s *scriptedExtractor) Extract(_ context.Context, filename string) (registry.RawTechMetadata, error) {
	s.mu.Lock()
	s.calls = append(s.calls, filename)
	s.active++
	s.maxSeen = max(s.maxSeen, s.active)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()
	if s.fail[filename] {
		return registry.RawTechMetadata{}, services.Wrap(services.ErrRemoteService, "extractor", "extract", "status 500", nil)
	}
	return registry.RawTechMetadata{StartTimecode: "01:00:00:00", FrameRateFraction: "25", TotalFrames: "250"}, nil
}

type countingAligner struct {
	calls int
}

func (c *countingAligner) Offset(context.Context, syncsvc.Request, float64) (syncsvc.Result, error) {
	c.calls++
	return syncsvc.Result{Frames: 75, Field: "offset_frames"}, nil
}

func newOrchestrator(t *testing.T, store *registry.Store, deps forensic.Deps, lease *pipeline.Lease) *pipeline.Orchestrator {
	t.Helper()
	deps.Store = store
	d := forensic.New(deps, forensic.Options{ConfidenceThreshold: 0.8, InitialWindowSeconds: 15, RetryWindowSeconds: 30}, nil)
	return pipeline.New(store, d, lease, nil, pipeline.Options{
		Timeline:   timeline.Options{DefaultFrameRate: 25},
		ExportPath: filepath.Join(t.TempDir(), "export", "timeline.xml"),
	}, nil)
}

func TestRunPhaseIsolatesFailures(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	for _, name := range []string{"a.mov", "b.mov", "c.mov"} {
		testsupport.MustUpsert(t, store, strings.TrimSuffix(name, ".mov"), registry.Patch{Filename: registry.Ptr(name)})
	}
	extractor := &scriptedExtractor{fail: map[string]bool{"b.mov": true}}
	orch := newOrchestrator(t, store, forensic.Deps{Extractor: extractor}, nil)

	report, err := orch.RunPhase(context.Background(), pipeline.PhaseTech, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	if report.Eligible != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Failures[0].AssetID != "b" || !errors.Is(report.Failures[0].Err, services.ErrRemoteService) {
		t.Fatalf("unexpected failure %+v", report.Failures[0])
	}
	if extractor.maxSeen != 1 {
		t.Fatalf("assets ran concurrently: %d", extractor.maxSeen)
	}
	if got := strings.Join(extractor.calls, ","); got != "a.mov,b.mov,c.mov" {
		t.Fatalf("unexpected call order %s", got)
	}

	failed := testsupport.MustGet(t, store, "b")
	if failed.Job.Status != registry.JobError {
		t.Fatalf("failure not recorded: %s", failed.Job)
	}

	// Only the failed asset is still eligible on the next run.
	report, err = orch.RunPhase(context.Background(), pipeline.PhaseTech, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	if report.Eligible != 1 {
		t.Fatalf("expected 1 eligible asset on rerun, got %d", report.Eligible)
	}
}

func TestRunPhaseRejectsConcurrentBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lease := pipeline.NewLease(cfg.LockPath())
	orch := newOrchestrator(t, store, forensic.Deps{Extractor: &scriptedExtractor{}}, lease)

	release, err := lease.Acquire("sync")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := orch.RunPhase(context.Background(), pipeline.PhaseTech, pipeline.RunOptions{}); !errors.Is(err, services.ErrPhaseActive) {
		t.Fatalf("expected ErrPhaseActive, got %v", err)
	}
	release()
	release()

	if _, err := orch.RunPhase(context.Background(), pipeline.PhaseTech, pipeline.RunOptions{}); err != nil {
		t.Fatalf("RunPhase after release: %v", err)
	}
}

func TestLeaseExcludesOtherHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phase.lock")
	first := pipeline.NewLease(path)
	second := pipeline.NewLease(path)

	release, err := first.Acquire("tech")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first.Holder() != "tech" {
		t.Fatalf("unexpected holder %q", first.Holder())
	}
	if _, err := second.Acquire("sync"); !errors.Is(err, services.ErrPhaseActive) {
		t.Fatalf("expected ErrPhaseActive from second lease, got %v", err)
	}
	release()
	release2, err := second.Acquire("sync")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestSyncWithoutMasterFailsBeforeRemoteCalls(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.Seed(t, store, testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 0))
	aligner := &countingAligner{}
	orch := newOrchestrator(t, store, forensic.Deps{Aligner: aligner}, nil)

	_, err := orch.RunPhase(context.Background(), pipeline.PhaseSync, pipeline.RunOptions{})
	if !errors.Is(err, services.ErrMissingMaster) {
		t.Fatalf("expected ErrMissingMaster, got %v", err)
	}
	if aligner.calls != 0 {
		t.Fatalf("expected no sync calls, got %d", aligner.calls)
	}
}

func TestSyncAcceptsLoneAudioSpineWhateverItsClipType(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	spine := testsupport.MasterAudio("master", "mix.wav", 4000)
	spine.ClipType = registry.ClipBRoll
	testsupport.Seed(t, store, spine, testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 0))
	aligner := &countingAligner{}
	orch := newOrchestrator(t, store, forensic.Deps{Aligner: aligner}, nil)

	report, err := orch.RunPhase(context.Background(), pipeline.PhaseSync, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	if report.Succeeded != 1 || aligner.calls != 1 {
		t.Fatalf("expected one synced angle, got %+v with %d calls", report, aligner.calls)
	}
	if got := testsupport.MustGet(t, store, "cam-a").SyncOffsetFrames; got != 75 {
		t.Fatalf("expected offset 75, got %d", got)
	}
}

func TestSyncSkipsSyncedAnglesUnlessForced(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	pending := testsupport.InterviewAngle("cam-b", "B001.mov", 25, 100, 0)
	pending.LastStage = registry.StageLight
	testsupport.Seed(t, store,
		testsupport.MasterAudio("master", "mix.wav", 4000),
		testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 12),
		pending,
	)
	aligner := &countingAligner{}
	orch := newOrchestrator(t, store, forensic.Deps{Aligner: aligner}, nil)

	report, err := orch.RunPhase(context.Background(), pipeline.PhaseSync, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	if report.Eligible != 1 || aligner.calls != 1 {
		t.Fatalf("expected one pending angle, got eligible=%d calls=%d", report.Eligible, aligner.calls)
	}
	if got := testsupport.MustGet(t, store, "cam-b").SyncOffsetFrames; got != 75 {
		t.Fatalf("expected offset 75, got %d", got)
	}

	report, err = orch.RunPhase(context.Background(), pipeline.PhaseSync, pipeline.RunOptions{Force: true})
	if err != nil {
		t.Fatalf("RunPhase forced: %v", err)
	}
	if report.Eligible != 2 {
		t.Fatalf("forced sync should cover both angles, got %d", report.Eligible)
	}
}

func TestRunPhaseStopsOnCancellation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustUpsert(t, store, "a", registry.Patch{Filename: registry.Ptr("a.mov")})
	extractor := &scriptedExtractor{}
	orch := newOrchestrator(t, store, forensic.Deps{Extractor: extractor}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := orch.RunPhase(ctx, pipeline.PhaseTech, pipeline.RunOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(extractor.calls) != 0 {
		t.Fatalf("expected no remote calls, got %v", extractor.calls)
	}
}

func TestRunPhaseRequiresConfiguredService(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	orch := newOrchestrator(t, store, forensic.Deps{}, nil)
	if _, err := orch.RunPhase(context.Background(), pipeline.PhaseCategorize, pipeline.RunOptions{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestExport(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.Seed(t, store,
		testsupport.MasterAudio("master", "mix.wav", 4000),
		testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 0),
	)
	orch := newOrchestrator(t, store, forensic.Deps{}, nil)

	if _, err := orch.Export(context.Background(), pipeline.ExportOptions{}); !errors.Is(err, pipeline.ErrNoSyncOffsets) {
		t.Fatalf("expected ErrNoSyncOffsets, got %v", err)
	}

	testsupport.MustUpsert(t, store, "cam-a", registry.Patch{SyncOffsetFrames: registry.Ptr(int64(30))})
	out := filepath.Join(t.TempDir(), "nested", "scene.xml")
	result, err := orch.Export(context.Background(), pipeline.ExportOptions{Output: out, SequenceName: "Scene 4"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Path != out || result.Document.Angles[0].Start != 30 {
		t.Fatalf("unexpected result %+v", result)
	}
	data := testsupport.ReadFile(t, out)
	if !strings.Contains(string(data), "<name>Scene 4</name>") {
		t.Fatal("sequence name override not written")
	}
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the exported file, found %d entries", len(entries))
	}
}

func TestPredicates(t *testing.T) {
	angle := testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 0)
	broll := &registry.Asset{MediaCategory: registry.CategoryVideo, ClipType: registry.ClipBRoll, Job: registry.LightCompleted()}
	inFlight := &registry.Asset{MediaCategory: registry.CategoryVideo, ClipType: registry.ClipBRoll, Job: registry.InFlight("op")}
	audio := testsupport.MasterAudio("m", "mix.wav", 1000)

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"tech absent", pipeline.NeedsTech(&registry.Asset{}), true},
		{"tech present", pipeline.NeedsTech(angle), false},
		{"unknown clip", pipeline.NeedsCategorization(&registry.Asset{ClipType: registry.ClipUnknown}), true},
		{"classified clip", pipeline.NeedsCategorization(angle), false},
		{"synced angle", pipeline.NeedsSync(angle, false), false},
		{"synced angle forced", pipeline.NeedsSync(angle, true), true},
		{"master never syncs", pipeline.NeedsSync(audio, true), false},
		{"b-roll deep", pipeline.NeedsDeepAnalysis(broll), true},
		{"in flight deep", pipeline.NeedsDeepAnalysis(inFlight), false},
		{"audio deep", pipeline.NeedsDeepAnalysis(audio), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	for raw, want := range map[string]pipeline.Phase{"tech": pipeline.PhaseTech, "1": pipeline.PhaseCategorize, "SYNC": pipeline.PhaseSync, "deep": pipeline.PhaseAnalyze} {
		got, err := pipeline.ParsePhase(raw)
		if err != nil || got != want {
			t.Fatalf("ParsePhase(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := pipeline.ParsePhase("render"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
