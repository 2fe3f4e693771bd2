package jobstatus

import (
	"strconv"
	"strings"

	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Status is the reconciled state of one long-running job.
type Status struct {
	Done bool
	// Failed is set when the job finished with an error; Content then holds
	// the error message.
	Failed  bool
	Content string
}

// Pending reports an unfinished job.
func Pending() Status { return Status{} }

// Succeeded reports a finished job with formatted content.
func Succeeded(content string) Status { return Status{Done: true, Content: content} }

// Errored reports a finished job that failed.
func Errored(message string) Status {
	return Status{Done: true, Failed: true, Content: message}
}

const noSpeech = "No speech detected."

// FormatAnnotations renders a video annotation response as analysis content:
// one "[start] transcript" paragraph per speech transcription, or a
// "Visual Labels: a, b" line when the job detected labels instead.
func FormatAnnotations(resp *vipb.AnnotateVideoResponse) string {
	results := resp.GetAnnotationResults()
	if len(results) == 0 || results[0] == nil {
		return "Visual Labels: None"
	}
	first := results[0]
	if transcriptions := first.GetSpeechTranscriptions(); len(transcriptions) > 0 {
		return formatTranscripts(transcriptions)
	}
	labels := make([]string, 0, len(first.GetSegmentLabelAnnotations()))
	for _, label := range first.GetSegmentLabelAnnotations() {
		if desc := strings.TrimSpace(label.GetEntity().GetDescription()); desc != "" {
			labels = append(labels, desc)
		}
	}
	if len(labels) == 0 {
		return "Visual Labels: None"
	}
	return "Visual Labels: " + strings.Join(labels, ", ")
}

func formatTranscripts(transcriptions []*vipb.SpeechTranscription) string {
	parts := make([]string, 0, len(transcriptions))
	for _, tr := range transcriptions {
		alts := tr.GetAlternatives()
		if len(alts) == 0 || alts[0] == nil {
			parts = append(parts, "[0s] ")
			continue
		}
		alt := alts[0]
		start := "0s"
		if words := alt.GetWords(); len(words) > 0 && words[0] != nil {
			start = formatOffset(words[0].GetStartTime())
		}
		parts = append(parts, "["+start+"] "+alt.GetTranscript())
	}
	if len(parts) == 0 {
		return noSpeech
	}
	return strings.Join(parts, "\n\n")
}

func formatOffset(d *durationpb.Duration) string {
	if d == nil {
		return "0s"
	}
	return strconv.FormatFloat(d.AsDuration().Seconds(), 'f', -1, 64) + "s"
}
