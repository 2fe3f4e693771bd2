package timeline

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"storygraph/internal/registry"
	"storygraph/internal/timecode"
)

// Role distinguishes picture angles from the audio spine.
type Role string

const (
	RoleAngle  Role = "angle"
	RoleMaster Role = "master"
)

// Placement is one clip on the timeline. Start, End and Duration are timeline
// frames relative to the sequence anchor; the Native fields describe the source
// file in its own rate.
type Placement struct {
	AssetID  string
	Filename string
	Role     Role

	Start    int64
	End      int64
	Duration int64
	// Offset is the stored sync offset the placement was derived from.
	Offset int64

	NativeDuration      int64
	NativeTimebase      int64
	NativeStartTimecode string
	NativeStartFrame    int64
	PathURL             string

	Width    int
	Height   int
	Channels int
}

// Document is a synthesized multicam sequence.
type Document struct {
	SequenceName string
	// Timebase is the integer timeline rate.
	Timebase int64
	// Anchor is the frame number of the sequence start, one hour in.
	Anchor int64
	// Duration is the largest placement end.
	Duration int64
	// Lead is the shift applied to every placement so that a negative sync
	// offset still starts at or after frame zero. The master moves with the
	// angles: it starts at Lead, which is zero unless some offset is negative.
	Lead   int64
	Angles []Placement
	Master Placement
}

// Synthesize builds the multicam document for assets. The master is the single
// audio interview asset; its absence is registry.ResolveMaster's error.
func Synthesize(assets []*registry.Asset, opts Options) (*Document, error) {
	opts = opts.withDefaults()

	master, err := registry.ResolveMaster(assets)
	if err != nil {
		return nil, err
	}
	angles := registry.Satellites(assets)
	sortAssets(angles)

	tb := TimelineTimebase(assets, opts.DefaultFrameRate)
	fps := float64(tb)

	doc := &Document{
		SequenceName: opts.SequenceName,
		Timebase:     tb,
		Anchor:       3600 * tb,
	}
	for _, a := range angles {
		if -a.SyncOffsetFrames > doc.Lead {
			doc.Lead = -a.SyncOffsetFrames
		}
	}

	for _, a := range angles {
		p := place(a, RoleAngle, a.SyncOffsetFrames, fps, opts)
		doc.Angles = append(doc.Angles, p)
	}
	doc.Master = place(master, RoleMaster, 0, fps, opts)

	for _, p := range append([]Placement{doc.Master}, doc.Angles...) {
		if p.End > doc.Duration {
			doc.Duration = p.End
		}
	}
	doc.shift()
	return doc, nil
}

func (d *Document) shift() {
	if d.Lead == 0 {
		return
	}
	d.Master.Start += d.Lead
	d.Master.End += d.Lead
	for i := range d.Angles {
		d.Angles[i].Start += d.Lead
		d.Angles[i].End += d.Lead
	}
	d.Duration += d.Lead
}

// TimelineTimebase returns the nominal rate of the first video asset with
// technical metadata, in (relative path, filename, id) order, or fallback.
func TimelineTimebase(assets []*registry.Asset, fallback float64) int64 {
	videos := make([]*registry.Asset, 0, len(assets))
	for _, a := range assets {
		if a.IsVideo() && a.HasTech() {
			videos = append(videos, a)
		}
	}
	sortAssets(videos)
	if len(videos) > 0 {
		return timecode.Timebase(videos[0].Tech.FrameRate)
	}
	return timecode.Timebase(fallback)
}

// ClipDuration returns the length of a in timeline frames: native frames
// converted across rates, else the known duration, else the placeholder.
func ClipDuration(a *registry.Asset, timelineFPS float64, placeholder int64) int64 {
	if a.Tech != nil && a.Tech.TotalFrames > 0 {
		return timecode.Convert(a.Tech.TotalFrames, a.Tech.FrameRate, timelineFPS)
	}
	if ms := durationMs(a); ms > 0 {
		return timecode.FromMillis(ms, timelineFPS)
	}
	return placeholder
}

func place(a *registry.Asset, role Role, offset int64, fps float64, opts Options) Placement {
	duration := max(ClipDuration(a, fps, opts.DefaultDurationFrames), 0)
	p := Placement{
		AssetID:             a.ID,
		Filename:            a.Filename,
		Role:                role,
		Start:               offset,
		End:                 offset + duration,
		Duration:            duration,
		Offset:              offset,
		NativeDuration:      duration,
		NativeTimebase:      int64(fps),
		NativeStartTimecode: timecode.Zero,
		PathURL:             FileURL(opts.MediaRoot, a.RelativePath, a.Filename),
		Width:               1920,
		Height:              1080,
		Channels:            2,
	}
	if a.Tech == nil {
		return p
	}
	if a.Tech.TotalFrames > 0 {
		p.NativeDuration = a.Tech.TotalFrames
	}
	p.NativeTimebase = timecode.Timebase(a.Tech.FrameRate)
	if _, err := timecode.Parse(a.Tech.StartTimecode); err == nil {
		p.NativeStartTimecode = a.Tech.StartTimecode
	}
	if frame, err := timecode.ToFrame(p.NativeStartTimecode, a.Tech.FrameRate); err == nil {
		p.NativeStartFrame = frame
	}
	if a.Tech.Width > 0 && a.Tech.Height > 0 {
		p.Width, p.Height = a.Tech.Width, a.Tech.Height
	}
	if a.Tech.Channels != nil && *a.Tech.Channels > 0 {
		p.Channels = *a.Tech.Channels
	}
	return p
}

// FileURL builds the file URL of a clip below root. root is either a URL
// prefix such as file://localhost/Volumes/Media/ or a plain directory path.
func FileURL(root, relativePath, filename string) string {
	root = strings.TrimSpace(root)
	u := url.URL{Scheme: "file"}
	base := root
	if strings.Contains(root, "://") {
		if parsed, err := url.Parse(root); err == nil {
			u = *parsed
			base = parsed.Path
		}
	}
	u.Path = path.Join("/", filepathToSlash(base), filepathToSlash(relativePath), filename)
	u.RawPath = ""
	return u.String()
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
}

func durationMs(a *registry.Asset) int64 {
	if a.Tech != nil && a.Tech.DurationMs > 0 {
		return a.Tech.DurationMs
	}
	return a.DurationMs
}

func sortAssets(assets []*registry.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		a, b := assets[i], assets[j]
		if a.RelativePath != b.RelativePath {
			return a.RelativePath < b.RelativePath
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.ID < b.ID
	})
}
