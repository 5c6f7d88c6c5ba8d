package transcript

import (
	"strings"
)

// FromServicePayload maps a decoded speech-service response onto the internal
// text + segment representation. Provider payloads vary in key naming, so the
// adapter probes the known shapes and fails closed: an unrecognized payload
// yields empty results rather than guessed ones.
func FromServicePayload(data map[string]any) (string, []Segment) {
	if data == nil {
		return "", nil
	}
	text := extractText(data)
	segments := extractSegments(data)
	if text == "" && len(segments) > 0 {
		var parts []string
		for _, seg := range segments {
			if strings.TrimSpace(seg.Text) != "" {
				parts = append(parts, seg.Text)
			}
		}
		text = strings.TrimSpace(strings.Join(parts, " "))
	}
	return text, segments
}

func extractText(data map[string]any) string {
	for _, key := range []string{"transcript", "text", "full_text", "translation", "output"} {
		if value, ok := data[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	if nested, ok := data["result"].(map[string]any); ok {
		return extractText(nested)
	}
	return ""
}

func extractSegments(data map[string]any) []Segment {
	if diarized, ok := data["diarized_transcript"].(map[string]any); ok {
		if entries, ok := diarized["entries"].([]any); ok {
			return normalizeDiarizedEntries(entries)
		}
	}
	for _, key := range []string{"segments", "utterances", "diarized_segments", "speaker_segments"} {
		if value, ok := data[key].([]any); ok {
			return normalizeSegments(value)
		}
	}
	if diarization, ok := data["diarization"].(map[string]any); ok {
		for _, key := range []string{"segments", "utterances"} {
			if value, ok := diarization[key].([]any); ok {
				return normalizeSegments(value)
			}
		}
	}
	return nil
}

func normalizeSegments(raw []any) []Segment {
	var segments []Segment
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := firstString(entry, "text", "utterance", "transcript")
		var speaker any
		for _, key := range []string{"speaker", "speaker_label", "speaker_id", "speaker_name"} {
			if v, ok := entry[key]; ok && v != nil {
				speaker = v
				break
			}
		}
		segments = append(segments, Segment{
			Speaker: NormalizeSpeaker(speaker),
			Start:   extractTime(entry, "start"),
			End:     extractTime(entry, "end"),
			Text:    text,
		})
	}
	return segments
}

// normalizeDiarizedEntries handles the diarized_transcript.entries shape,
// which uses start_time_seconds/end_time_seconds and speaker_id.
func normalizeDiarizedEntries(entries []any) []Segment {
	var segments []Segment
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := firstString(entry, "transcript", "text")
		segments = append(segments, Segment{
			Speaker: NormalizeSpeaker(entry["speaker_id"]),
			Start:   floatValue(entry["start_time_seconds"]),
			End:     floatValue(entry["end_time_seconds"]),
			Text:    text,
		})
	}
	return segments
}

// extractTime probes the timestamp key variants providers use. Keys carrying
// an "ms" suffix are converted to seconds. A nested timestamp object is
// checked first.
func extractTime(entry map[string]any, prefix string) *float64 {
	if ts, ok := entry["timestamp"].(map[string]any); ok {
		if v := floatValue(ts[prefix]); v != nil {
			return v
		}
	}
	for _, key := range []string{prefix + "_ms", prefix + "_time_ms", prefix + "_time", prefix + "Time", prefix} {
		value, ok := entry[key]
		if !ok {
			continue
		}
		v := floatValue(value)
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(key), "ms") {
			seconds := *v / 1000.0
			return &seconds
		}
		return v
	}
	return nil
}

// floatValue rejects negative values along with non-numeric ones: timestamps
// are never negative, so a negative provider value is dropped rather than
// passed through.
func floatValue(raw any) *float64 {
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return nil
		}
		return &v
	case int:
		if v < 0 {
			return nil
		}
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
