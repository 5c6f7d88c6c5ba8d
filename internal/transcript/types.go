package transcript

import (
	"fmt"
	"strings"
)

// SpeakerUnknown labels segments whose speaker the service did not identify.
const SpeakerUnknown = "SPEAKER_UNKNOWN"

// Segment is the single internal representation for a timestamped span of
// speech. External service payloads are mapped into it by the adapters in
// normalize.go; nothing downstream touches a raw provider shape.
// Start and End are seconds and nil when the boundary is unknown.
type Segment struct {
	Speaker string   `json:"speaker"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Text    string   `json:"text"`
}

// ChunkResult carries one chunk's transcription output plus its position on
// the original file's timeline.
type ChunkResult struct {
	Index            int
	StartSeconds     float64
	Text             string
	Segments         []Segment
	DiarizedText     string
	DiarizedSegments []Segment
}

// Merged is the session-level view assembled from chunk results. Segment
// timestamps are absolute.
type Merged struct {
	Text             string
	Segments         []Segment
	DiarizedText     string
	DiarizedSegments []Segment
	DurationSeconds  *float64
}

// NormalizeSpeaker maps provider speaker labels onto the SPEAKER_<id> form.
func NormalizeSpeaker(raw any) string {
	switch v := raw.(type) {
	case nil:
		return SpeakerUnknown
	case float64:
		return fmt.Sprintf("SPEAKER_%d", int(v))
	case int:
		return fmt.Sprintf("SPEAKER_%d", v)
	case string:
		if v == "" {
			return SpeakerUnknown
		}
		if strings.HasPrefix(v, "SPEAKER_") {
			return v
		}
		return "SPEAKER_" + v
	default:
		return SpeakerUnknown
	}
}

// Duration returns the maximum end timestamp across segments, or nil when no
// segment carries one.
func Duration(segments []Segment) *float64 {
	var max *float64
	for _, seg := range segments {
		if seg.End == nil {
			continue
		}
		if max == nil || *seg.End > *max {
			end := *seg.End
			max = &end
		}
	}
	return max
}
