package transcript

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return data
}

func TestFromServicePayloadDiarizedEntries(t *testing.T) {
	data := decode(t, `{
		"transcript": "hello world",
		"diarized_transcript": {
			"entries": [
				{"speaker_id": "1", "start_time_seconds": 0.5, "end_time_seconds": 4.2, "transcript": "hello"},
				{"speaker_id": 2, "start_time_seconds": 4.5, "transcript": "world"}
			]
		}
	}`)
	text, segments := FromServicePayload(data)
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Speaker != "SPEAKER_1" {
		t.Fatalf("unexpected speaker %q", segments[0].Speaker)
	}
	if *segments[0].Start != 0.5 || *segments[0].End != 4.2 {
		t.Fatalf("unexpected timestamps %v/%v", segments[0].Start, segments[0].End)
	}
	if segments[1].Speaker != "SPEAKER_2" {
		t.Fatalf("unexpected speaker %q", segments[1].Speaker)
	}
	if segments[1].End != nil {
		t.Fatal("expected absent end to stay absent")
	}
}

func TestFromServicePayloadMillisecondKeys(t *testing.T) {
	data := decode(t, `{
		"text": "ms payload",
		"segments": [
			{"speaker": 0, "start_ms": 1500, "end_ms": 3000, "text": "ms payload"}
		]
	}`)
	_, segments := FromServicePayload(data)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if *segments[0].Start != 1.5 || *segments[0].End != 3.0 {
		t.Fatalf("expected ms conversion, got %v/%v", *segments[0].Start, *segments[0].End)
	}
}

func TestFromServicePayloadNestedTimestamp(t *testing.T) {
	data := decode(t, `{
		"text": "nested",
		"utterances": [
			{"speaker_label": "agent", "timestamp": {"start": 2, "end": 6}, "utterance": "nested"}
		]
	}`)
	_, segments := FromServicePayload(data)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Speaker != "SPEAKER_agent" {
		t.Fatalf("unexpected speaker %q", segments[0].Speaker)
	}
	if *segments[0].Start != 2 || *segments[0].End != 6 {
		t.Fatalf("unexpected timestamps %v/%v", *segments[0].Start, *segments[0].End)
	}
}

func TestFromServicePayloadTextFallsBackToSegments(t *testing.T) {
	data := decode(t, `{
		"segments": [
			{"speaker": "SPEAKER_0", "text": "joined"},
			{"speaker": "SPEAKER_1", "text": "from segments"}
		]
	}`)
	text, _ := FromServicePayload(data)
	if text != "joined from segments" {
		t.Fatalf("unexpected fallback text %q", text)
	}
}

func TestFromServicePayloadFailsClosed(t *testing.T) {
	text, segments := FromServicePayload(decode(t, `{"weird_key": [1, 2, 3]}`))
	if text != "" || segments != nil {
		t.Fatalf("expected empty result for unknown shape, got %q / %v", text, segments)
	}
	text, segments = FromServicePayload(nil)
	if text != "" || segments != nil {
		t.Fatal("expected empty result for nil payload")
	}
}

func TestNormalizeSpeaker(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "SPEAKER_UNKNOWN"},
		{float64(3), "SPEAKER_3"},
		{"SPEAKER_7", "SPEAKER_7"},
		{"alice", "SPEAKER_alice"},
		{"", "SPEAKER_UNKNOWN"},
		{true, "SPEAKER_UNKNOWN"},
	}
	for _, tc := range cases {
		if got := NormalizeSpeaker(tc.in); got != tc.want {
			t.Fatalf("NormalizeSpeaker(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFromServicePayloadDropsNegativeTimestamps(t *testing.T) {
	_, segments := FromServicePayload(decode(t, `{
		"segments": [
			{"text": "hello", "start": -2.5, "end": 4.0},
			{"text": "world", "start_ms": -1500, "end_ms": 6000}
		]
	}`))
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[0].Start != nil {
		t.Fatalf("negative start kept: %v", *segments[0].Start)
	}
	if segments[0].End == nil || *segments[0].End != 4.0 {
		t.Fatalf("end = %v, want 4.0", segments[0].End)
	}
	if segments[1].Start != nil {
		t.Fatalf("negative start_ms kept: %v", *segments[1].Start)
	}
	if segments[1].End == nil || *segments[1].End != 6.0 {
		t.Fatalf("end = %v, want 6.0", segments[1].End)
	}
}
