package timeline

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"storygraph/internal/timecode"
)

const header = xml.Header + "<!DOCTYPE xmeml>\n"

const (
	xTrue  = "TRUE"
	xFalse = "FALSE"
)

// Encode writes the document as indented XMEML.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(d.xmeml()); err != nil {
		return fmt.Errorf("encode xmeml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush xmeml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Bytes returns the encoded document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) xmeml() xmeml {
	seqRate := rate{Timebase: d.Timebase, NTSC: xFalse}
	doc := xmeml{
		Version: "5",
		Sequence: sequence{
			Name:     d.SequenceName,
			Duration: d.Duration,
			Rate:     seqRate,
			In:       -1,
			Out:      -1,
			Timecode: tcElement{
				String:        timecode.FromFrame(d.Anchor, float64(d.Timebase)),
				Frame:         d.Anchor,
				DisplayFormat: "NDF",
				Rate:          seqRate,
			},
		},
	}

	media := &doc.Sequence.Media
	for i, p := range d.Angles {
		ids := angleIDs(i)
		media.Video.Tracks = append(media.Video.Tracks, track{
			Clip:    d.pictureClip(p, ids),
			Enabled: xTrue,
			Locked:  xFalse,
		})
	}
	media.Video.Format = format{SampleCharacteristics: formatCharacteristics{
		Width:            1920,
		Height:           1080,
		PixelAspectRatio: "square",
		Rate:             seqRate,
		Codec: codec{AppSpecificData: appSpecificData{
			AppName:         "Final Cut Pro",
			AppManufacturer: "Apple Inc.",
		}},
	}}
	for i, p := range d.Angles {
		ids := angleIDs(i)
		media.Audio.Tracks = append(media.Audio.Tracks, track{
			Clip:    d.cameraAudioClip(p, ids),
			Enabled: xTrue,
			Locked:  xFalse,
		})
	}
	media.Audio.Tracks = append(media.Audio.Tracks, track{
		Clip:    d.masterClip(d.Master),
		Enabled: xTrue,
		Locked:  xFalse,
	})
	return doc
}

type clipIDs struct {
	picture string
	audio   string
	file    string
}

func angleIDs(index int) clipIDs {
	n := index + 1
	return clipIDs{
		picture: fmt.Sprintf("angle-%d-video", n),
		audio:   fmt.Sprintf("angle-%d-audio", n),
		file:    fmt.Sprintf("angle-%d-file", n),
	}
}

func (d *Document) clip(id string, p Placement) clipItem {
	return clipItem{
		ID:       id,
		Name:     p.Filename,
		Duration: p.Duration,
		Rate:     rate{Timebase: d.Timebase, NTSC: xFalse},
		Start:    p.Start,
		End:      p.End,
		Enabled:  xTrue,
		In:       0,
		Out:      p.Duration,
	}
}

func fileDefinition(id string, p Placement, media fileMedia) fileElement {
	native := rate{Timebase: p.NativeTimebase, NTSC: xFalse}
	duration := p.NativeDuration
	return fileElement{
		ID:       id,
		Duration: &duration,
		Rate:     &native,
		Name:     p.Filename,
		PathURL:  p.PathURL,
		Timecode: &tcElement{
			String:        p.NativeStartTimecode,
			Frame:         p.NativeStartFrame,
			DisplayFormat: "NDF",
			Rate:          native,
		},
		Media: &media,
	}
}

func (d *Document) pictureClip(p Placement, ids clipIDs) clipItem {
	item := d.clip(ids.picture, p)
	item.File = fileDefinition(ids.file, p, fileMedia{
		Video: &fileVideo{
			Duration:              p.NativeDuration,
			SampleCharacteristics: sampleCharacteristics{Width: p.Width, Height: p.Height},
		},
		Audio: &fileAudio{ChannelCount: p.Channels},
	})
	item.CompositeMode = "normal"
	item.Filters = []filter{
		videoFilter(p.Duration, basicMotion()),
		videoFilter(p.Duration, crop()),
		videoFilter(p.Duration, opacity()),
	}
	item.Links = []link{{ClipRef: ids.picture}, {ClipRef: ids.audio}}
	return item
}

func (d *Document) cameraAudioClip(p Placement, ids clipIDs) clipItem {
	item := d.clip(ids.audio, p)
	item.File = fileElement{ID: ids.file}
	item.SourceTrack = &sourceTrack{MediaType: "audio", TrackIndex: 1}
	item.Filters = audioFilters(p.Duration)
	item.Links = []link{{ClipRef: ids.picture, MediaType: "video"}, {ClipRef: ids.audio}}
	return item
}

// masterClip carries no links: the spine never moves with a picture track.
func (d *Document) masterClip(p Placement) clipItem {
	item := d.clip("master-audio", p)
	item.File = fileDefinition("master-file", p, fileMedia{
		Audio: &fileAudio{ChannelCount: p.Channels},
	})
	item.SourceTrack = &sourceTrack{MediaType: "audio", TrackIndex: 1}
	item.Filters = audioFilters(p.Duration)
	return item
}

func videoFilter(duration int64, e effect) filter {
	return filter{Enabled: xTrue, Start: 0, End: duration, Effect: e}
}

func audioFilters(duration int64) []filter {
	return []filter{
		{Enabled: xTrue, End: duration, Effect: effect{
			Name: "Audio Levels", EffectID: "audiolevels", EffectType: "audiolevels",
			MediaType: "audio", EffectCategory: "audiolevels",
			Parameters: []parameter{scalar("Level", "level", "1", "1e-05", "31.6228")},
		}},
		{Enabled: xTrue, End: duration, Effect: effect{
			Name: "Audio Pan", EffectID: "audiopan", EffectType: "audiopan",
			MediaType: "audio", EffectCategory: "audiopan",
			Parameters: []parameter{scalar("Pan", "pan", "0", "-1", "1")},
		}},
	}
}

func motionEffect(name, id string, params ...parameter) effect {
	return effect{
		Name: name, EffectID: id, EffectType: "motion",
		MediaType: "video", EffectCategory: "motion",
		Parameters: params,
	}
}

func basicMotion() effect {
	return motionEffect("Basic Motion", "basic",
		scalar("Scale", "scale", "100", "0", "10000"),
		point("Center", "center"),
		scalar("Rotation", "rotation", "0", "-100000", "100000"),
		point("Anchor Point", "centerOffset"),
	)
}

func crop() effect {
	return motionEffect("Crop", "crop",
		scalar("left", "left", "0", "0", "100"),
		scalar("right", "right", "0", "0", "100"),
		scalar("top", "top", "0", "0", "100"),
		scalar("bottom", "bottom", "0", "0", "100"),
	)
}

func opacity() effect {
	return motionEffect("Opacity", "opacity", scalar("opacity", "opacity", "100", "0", "100"))
}

func scalar(name, id, value, lo, hi string) parameter {
	return parameter{Name: name, ParameterID: id, Value: paramValue{Text: value}, ValueMin: lo, ValueMax: hi}
}

func point(name, id string) parameter {
	zero := 0
	return parameter{Name: name, ParameterID: id, Value: paramValue{Horiz: &zero, Vert: &zero}}
}
