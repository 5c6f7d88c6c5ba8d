package transcript

import (
	"sort"
	"strings"
)

// OffsetSegments returns a copy of segments with every present start/end
// shifted by offset seconds. Absent boundaries stay absent.
func OffsetSegments(segments []Segment, offset float64) []Segment {
	if len(segments) == 0 {
		return nil
	}
	shifted := make([]Segment, len(segments))
	for i, seg := range segments {
		out := seg
		if seg.Start != nil {
			start := *seg.Start + offset
			out.Start = &start
		}
		if seg.End != nil {
			end := *seg.End + offset
			out.End = &end
		}
		shifted[i] = out
	}
	return shifted
}

// MergeTexts trims each chunk text, drops empty ones, and joins the rest with
// single newlines.
func MergeTexts(texts []string) string {
	var kept []string
	for _, text := range texts {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

// Merge reassembles chunk-local results into one session-level transcript.
// Chunks are ordered by index, every timestamp is shifted by its chunk's
// absolute start, and texts are concatenated in index order. The result
// depends only on chunk indices, never on the order results arrived in.
func Merge(chunks []ChunkResult) Merged {
	ordered := make([]ChunkResult, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var texts, diarizedTexts []string
	var segments, diarizedSegments []Segment

	for _, chunk := range ordered {
		offset := chunk.StartSeconds
		if chunk.Text != "" {
			texts = append(texts, chunk.Text)
		}
		if len(chunk.Segments) > 0 {
			segments = append(segments, OffsetSegments(chunk.Segments, offset)...)
		}
		if chunk.DiarizedText != "" {
			diarizedTexts = append(diarizedTexts, chunk.DiarizedText)
		}
		if len(chunk.DiarizedSegments) > 0 {
			diarizedSegments = append(diarizedSegments, OffsetSegments(chunk.DiarizedSegments, offset)...)
		}
	}

	merged := Merged{
		Text:             MergeTexts(texts),
		Segments:         segments,
		DiarizedText:     MergeTexts(diarizedTexts),
		DiarizedSegments: diarizedSegments,
	}
	if merged.DiarizedText == "" {
		merged.DiarizedText = merged.Text
	}
	if len(diarizedSegments) > 0 {
		merged.DurationSeconds = Duration(diarizedSegments)
	} else {
		merged.DurationSeconds = Duration(segments)
	}
	return merged
}
