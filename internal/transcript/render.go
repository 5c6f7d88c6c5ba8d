package transcript

import "strings"

// RenderDiarized renders speaker-attributed segments as one line per
// segment, "SPEAKER_0: text". Segments with empty text are skipped.
func RenderDiarized(segments []Segment) string {
	var lines []string
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, seg.Speaker+": "+text)
	}
	return strings.Join(lines, "\n")
}
