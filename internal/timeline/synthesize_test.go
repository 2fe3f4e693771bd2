package timeline

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/testsupport"
)

func multicamSet() []*registry.Asset {
	camB := testsupport.InterviewAngle("cam-b", "B001.mov", 25, 1500, -40)
	camB.RelativePath = "Day 1"
	return []*registry.Asset{
		testsupport.MasterAudio("master", "mix.wav", 62000),
		testsupport.InterviewAngle("cam-a", "A001.mov", 25, 1500, 120),
		camB,
		{ID: "broll", Filename: "R001.mov", MediaCategory: registry.CategoryVideo, ClipType: registry.ClipBRoll},
	}
}

func TestSynthesizePlacements(t *testing.T) {
	doc, err := Synthesize(multicamSet(), Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if doc.Timebase != 25 || doc.Anchor != 90000 {
		t.Fatalf("unexpected rate/anchor %d/%d", doc.Timebase, doc.Anchor)
	}
	if doc.SequenceName != DefaultSequenceName {
		t.Fatalf("unexpected name %q", doc.SequenceName)
	}
	if len(doc.Angles) != 2 {
		t.Fatalf("expected 2 angles, got %d", len(doc.Angles))
	}
	// Ordering is by relative path first: "" sorts before "Day 1".
	if doc.Angles[0].AssetID != "cam-a" || doc.Angles[1].AssetID != "cam-b" {
		t.Fatalf("unexpected order %s, %s", doc.Angles[0].AssetID, doc.Angles[1].AssetID)
	}
	if doc.Lead != 40 {
		t.Fatalf("expected lead 40, got %d", doc.Lead)
	}
	if got := doc.Angles[1].Start; got != 0 {
		t.Fatalf("negative offset should start at zero after lead, got %d", got)
	}
	if got := doc.Angles[0].Start; got != 160 {
		t.Fatalf("expected cam-a start 160, got %d", got)
	}
	if doc.Master.Start != 40 || doc.Master.Duration != 1550 {
		t.Fatalf("unexpected master placement %+v", doc.Master)
	}
	if doc.Duration != 1660 {
		t.Fatalf("expected sequence duration 1660, got %d", doc.Duration)
	}
	for _, p := range append([]Placement{doc.Master}, doc.Angles...) {
		if p.Duration < 0 || p.End != p.Start+p.Duration || p.Start < 0 {
			t.Fatalf("invalid placement %+v", p)
		}
	}
}

func TestSynthesizeConvertsAcrossRates(t *testing.T) {
	assets := []*registry.Asset{
		testsupport.MasterAudio("master", "mix.wav", 2000),
		testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 0),
		testsupport.InterviewAngle("cam-b", "B001.mov", 24, 48, 0),
	}
	doc, err := Synthesize(assets, Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if doc.Lead != 0 || doc.Master.Start != 0 {
		t.Fatalf("master should stay at zero without negative offsets, got lead %d start %d", doc.Lead, doc.Master.Start)
	}
	if doc.Angles[1].Duration != 50 {
		t.Fatalf("expected 48 frames at 24fps to become 50, got %d", doc.Angles[1].Duration)
	}
	if doc.Angles[1].NativeDuration != 48 || doc.Angles[1].NativeTimebase != 24 {
		t.Fatalf("native descriptors lost: %+v", doc.Angles[1])
	}
}

func TestClipDurationFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		asset *registry.Asset
		want  int64
	}{
		{"frames", &registry.Asset{Tech: &registry.TechMetadata{FrameRate: 50, TotalFrames: 100}}, 50},
		{"duration", &registry.Asset{DurationMs: 4000}, 100},
		{"tech duration", &registry.Asset{Tech: &registry.TechMetadata{DurationMs: 1000}}, 25},
		{"placeholder", &registry.Asset{}, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClipDuration(tt.asset, 25, 250); got != tt.want {
				t.Fatalf("ClipDuration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSynthesizeMissingMaster(t *testing.T) {
	assets := []*registry.Asset{testsupport.InterviewAngle("cam-a", "A001.mov", 25, 100, 10)}
	doc, err := Synthesize(assets, Options{})
	if !errors.Is(err, services.ErrMissingMaster) {
		t.Fatalf("expected ErrMissingMaster, got %v", err)
	}
	if doc != nil {
		t.Fatal("expected no document")
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	opts := Options{SequenceName: "Scene 4", MediaRoot: "/Volumes/Media/Proxies 2"}
	first, err := Synthesize(multicamSet(), opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	reversed := multicamSet()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	second, err := Synthesize(reversed, opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	a, err := first.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	b, err := second.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("documents differ for identical asset sets")
	}
}

func TestEncodeStructure(t *testing.T) {
	doc, err := Synthesize(multicamSet(), Options{MediaRoot: "/Volumes/Media/Proxies 2"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, xml.Header+"<!DOCTYPE xmeml>\n<xmeml version=\"5\">") {
		t.Fatalf("unexpected prologue: %q", text[:80])
	}
	for _, want := range []string{
		"<string>01:00:00:00</string>",
		"<frame>90000</frame>",
		"<pathurl>file:///Volumes/Media/Proxies%202/Day%201/B001.mov</pathurl>",
		"<name>Basic Motion</name>",
		"<linkclipref>angle-1-audio</linkclipref>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("document missing %q", want)
		}
	}

	var parsed xmeml
	if err := xml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("document does not parse: %v", err)
	}
	audio := parsed.Sequence.Media.Audio.Tracks
	if len(parsed.Sequence.Media.Video.Tracks) != 2 || len(audio) != 3 {
		t.Fatalf("unexpected track counts video=%d audio=%d", len(parsed.Sequence.Media.Video.Tracks), len(audio))
	}
	last := audio[len(audio)-1].Clip
	if last.Name != "mix.wav" || len(last.Links) != 0 {
		t.Fatalf("master must be the last, unlinked audio track: %+v", last)
	}
	if audio[0].Clip.Links[0].ClipRef != "angle-1-video" {
		t.Fatalf("camera audio not linked to picture: %+v", audio[0].Clip.Links)
	}
}

func TestFileURL(t *testing.T) {
	tests := []struct {
		root, rel, name, want string
	}{
		{"file://localhost/Volumes/Media/", "Day 1", "A001.mov", "file://localhost/Volumes/Media/Day%201/A001.mov"},
		{"file://localhost/My%20Drive/Proxies/", "", "A001.mov", "file://localhost/My%20Drive/Proxies/A001.mov"},
		{"/mnt/media", "cams/b", "B 001.mov", "file:///mnt/media/cams/b/B%20001.mov"},
		{"", "", "mix.wav", "file:///mix.wav"},
	}
	for _, tt := range tests {
		if got := FileURL(tt.root, tt.rel, tt.name); got != tt.want {
			t.Errorf("FileURL(%q, %q, %q) = %q, want %q", tt.root, tt.rel, tt.name, got, tt.want)
		}
	}
}
