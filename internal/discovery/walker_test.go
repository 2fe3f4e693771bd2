package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storygraph/internal/registry"
	"storygraph/internal/testsupport"
)

type fakeLister struct {
	pages map[string][]Page
	fail  map[string]error
	calls []string
}

func (f *fakeLister) List(_ context.Context, folderID, pageToken string) (Page, error) {
	f.calls = append(f.calls, folderID+"#"+pageToken)
	if err := f.fail[folderID]; err != nil {
		return Page{}, err
	}
	pages := f.pages[folderID]
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return Page{}, nil
	}
	return pages[idx], nil
}

func treeLister() *fakeLister {
	return &fakeLister{pages: map[string][]Page{
		"root": {
			{Entries: []Entry{
				{ID: "day1", Name: "Day 1", MimeType: FolderMimeType},
				{ID: "m1", Name: "master.wav", MimeType: "application/octet-stream"},
			}, NextPageToken: "page-1"},
			{Entries: []Entry{
				{ID: "notes", Name: "notes.pdf", MimeType: "application/pdf"},
				{ID: "day2", Name: "Day 2", MimeType: FolderMimeType},
			}},
		},
		"day1": {{Entries: []Entry{
			{ID: "a1", Name: "A001.mov", MimeType: "video/quicktime"},
			{ID: "cams", Name: "Cams", MimeType: FolderMimeType},
		}}},
		"day2": {{Entries: []Entry{{ID: "b1", Name: "B001.mp4", MimeType: "video/mp4"}}}},
		"cams": {{Entries: []Entry{{ID: "c1", Name: "Café.mov", MimeType: "video/quicktime"}}}},
	}}
}

func TestWalkIsBreadthFirst(t *testing.T) {
	lister := treeLister()
	var got []string
	err := NewWalker(lister, nil).Walk(context.Background(), "root", func(f File) error {
		got = append(got, f.RelativePath+"|"+f.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"|master.wav", "Day 1|A001.mov", "Day 2|B001.mp4", "Day 1/Cams|Café.mov"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWalkSkipsFailedFolders(t *testing.T) {
	lister := treeLister()
	lister.fail = map[string]error{"day1": errors.New("forbidden")}

	var count int
	err := NewWalker(lister, nil).Walk(context.Background(), "root", func(File) error {
		count++
		return nil
	})
	if err == nil {
		t.Fatal("expected joined listing error")
	}
	if count != 2 {
		t.Fatalf("expected 2 files outside the failed folder, got %d", count)
	}
}

func TestIngestWritesIdentityPatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.MustUpsert(t, store, "a1", registry.Patch{
		ClipType:         registry.Ptr(registry.ClipInterview),
		SyncOffsetFrames: registry.Ptr(int64(75)),
	})

	report, err := Ingest(context.Background(), NewWalker(treeLister(), nil), store, "root", nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Discovered != 4 || report.Audio != 1 || report.Video != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	master := testsupport.MustGet(t, store, "m1")
	if master.MediaCategory != registry.CategoryAudio {
		t.Fatalf("expected .wav to be audio, got %q", master.MediaCategory)
	}
	angle := testsupport.MustGet(t, store, "a1")
	if angle.ClipType != registry.ClipInterview || angle.SyncOffsetFrames != 75 {
		t.Fatalf("rediscovery clobbered state: %+v", angle)
	}
	if angle.RelativePath != "Day 1" {
		t.Fatalf("unexpected relative path %q", angle.RelativePath)
	}
}
