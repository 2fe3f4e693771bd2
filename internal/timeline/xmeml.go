package timeline

import "encoding/xml"

type xmeml struct {
	XMLName  xml.Name `xml:"xmeml"`
	Version  string   `xml:"version,attr"`
	Sequence sequence `xml:"sequence"`
}

type sequence struct {
	Name     string    `xml:"name"`
	Duration int64     `xml:"duration"`
	Rate     rate      `xml:"rate"`
	In       int64     `xml:"in"`
	Out      int64     `xml:"out"`
	Timecode tcElement `xml:"timecode"`
	Media    seqMedia  `xml:"media"`
}

type rate struct {
	Timebase int64  `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type tcElement struct {
	String        string `xml:"string"`
	Frame         int64  `xml:"frame"`
	DisplayFormat string `xml:"displayformat"`
	Rate          rate   `xml:"rate"`
}

type seqMedia struct {
	Video videoSection `xml:"video"`
	Audio audioSection `xml:"audio"`
}

type videoSection struct {
	Tracks []track `xml:"track"`
	Format format  `xml:"format"`
}

type audioSection struct {
	Tracks []track `xml:"track"`
}

type track struct {
	Clip    clipItem `xml:"clipitem"`
	Enabled string   `xml:"enabled"`
	Locked  string   `xml:"locked"`
}

type clipItem struct {
	ID            string       `xml:"id,attr"`
	Name          string       `xml:"name"`
	Duration      int64        `xml:"duration"`
	Rate          rate         `xml:"rate"`
	Start         int64        `xml:"start"`
	End           int64        `xml:"end"`
	Enabled       string       `xml:"enabled"`
	In            int64        `xml:"in"`
	Out           int64        `xml:"out"`
	File          fileElement  `xml:"file"`
	SourceTrack   *sourceTrack `xml:"sourcetrack,omitempty"`
	CompositeMode string       `xml:"compositemode,omitempty"`
	Filters       []filter     `xml:"filter"`
	Links         []link       `xml:"link"`
	Comments      struct{}     `xml:"comments"`
}

// fileElement is either a full file definition or, with only ID set, a
// reference to one defined earlier in the document.
type fileElement struct {
	ID       string     `xml:"id,attr"`
	Duration *int64     `xml:"duration,omitempty"`
	Rate     *rate      `xml:"rate,omitempty"`
	Name     string     `xml:"name,omitempty"`
	PathURL  string     `xml:"pathurl,omitempty"`
	Timecode *tcElement `xml:"timecode,omitempty"`
	Media    *fileMedia `xml:"media,omitempty"`
}

type fileMedia struct {
	Video *fileVideo `xml:"video,omitempty"`
	Audio *fileAudio `xml:"audio,omitempty"`
}

type fileVideo struct {
	Duration              int64                 `xml:"duration"`
	SampleCharacteristics sampleCharacteristics `xml:"samplecharacteristics"`
}

type sampleCharacteristics struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
}

type fileAudio struct {
	ChannelCount int `xml:"channelcount"`
}

type sourceTrack struct {
	MediaType  string `xml:"mediatype"`
	TrackIndex int    `xml:"trackindex"`
}

type filter struct {
	Enabled string `xml:"enabled"`
	Start   int64  `xml:"start"`
	End     int64  `xml:"end"`
	Effect  effect `xml:"effect"`
}

type effect struct {
	Name           string      `xml:"name"`
	EffectID       string      `xml:"effectid"`
	EffectType     string      `xml:"effecttype"`
	MediaType      string      `xml:"mediatype"`
	EffectCategory string      `xml:"effectcategory"`
	Parameters     []parameter `xml:"parameter"`
}

type parameter struct {
	Name        string     `xml:"name"`
	ParameterID string     `xml:"parameterid"`
	Value       paramValue `xml:"value"`
	ValueMin    string     `xml:"valuemin,omitempty"`
	ValueMax    string     `xml:"valuemax,omitempty"`
}

type paramValue struct {
	Text  string `xml:",chardata"`
	Horiz *int   `xml:"horiz,omitempty"`
	Vert  *int   `xml:"vert,omitempty"`
}

type link struct {
	ClipRef   string `xml:"linkclipref"`
	MediaType string `xml:"mediatype,omitempty"`
}

type format struct {
	SampleCharacteristics formatCharacteristics `xml:"samplecharacteristics"`
}

type formatCharacteristics struct {
	Width            int    `xml:"width"`
	Height           int    `xml:"height"`
	PixelAspectRatio string `xml:"pixelaspectratio"`
	Rate             rate   `xml:"rate"`
	Codec            codec  `xml:"codec"`
}

type codec struct {
	AppSpecificData appSpecificData `xml:"appspecificdata"`
}

type appSpecificData struct {
	AppName         string  `xml:"appname"`
	AppManufacturer string  `xml:"appmanufacturer"`
	Data            appData `xml:"data"`
}

type appData struct {
	QTCodec struct{} `xml:"qtcodec"`
}
