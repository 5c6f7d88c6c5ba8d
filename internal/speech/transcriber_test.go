package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ambiware-labs/scribed/internal/config"
)

func TestNewTranscriberModes(t *testing.T) {
	if _, err := NewTranscriber(config.SpeechConfig{Mode: "mock"}); err != nil {
		t.Fatalf("mock mode: %v", err)
	}
	if _, err := NewTranscriber(config.SpeechConfig{Mode: "exec", Command: "whisper-cli --json"}); err != nil {
		t.Fatalf("exec mode: %v", err)
	}
	if _, err := NewTranscriber(config.SpeechConfig{Mode: "carrier-pigeon"}); err == nil {
		t.Fatal("unknown mode should fail")
	}
}

func TestResultFromPayloadRoutesDiarization(t *testing.T) {
	diarized := resultFromPayload(map[string]any{
		"transcript": "hello there",
		"diarized_transcript": map[string]any{
			"entries": []any{
				map[string]any{"transcript": "hello there", "speaker_id": "0", "start_time_seconds": 0.0, "end_time_seconds": 2.0},
			},
		},
	})
	if len(diarized.DiarizedSegments) != 1 || len(diarized.Segments) != 0 {
		t.Fatalf("diarized routing wrong: %+v", diarized)
	}
	if diarized.DiarizedText != "SPEAKER_0: hello there" {
		t.Fatalf("diarized text = %q", diarized.DiarizedText)
	}

	plain := resultFromPayload(map[string]any{
		"text": "hello there",
		"segments": []any{
			map[string]any{"text": "hello there", "start": 0.0, "end": 2.0},
		},
	})
	if len(plain.Segments) != 1 || len(plain.DiarizedSegments) != 0 {
		t.Fatalf("plain routing wrong: %+v", plain)
	}
}

func TestSarvamTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-subscription-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "saaras:v2.5" {
			t.Errorf("model = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transcript":"namaste","diarized_transcript":{"entries":[{"transcript":"namaste","speaker_id":"1","start_time_seconds":0,"end_time_seconds":1.5}]}}`))
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "chunk_00000.mp3")
	if err := os.WriteFile(audio, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	tr := NewSarvamTranscriber(config.SpeechConfig{
		Mode: "sarvam", Endpoint: server.URL, APIKey: "secret", Model: "saaras:v2.5",
	})
	res, err := tr.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "namaste" {
		t.Fatalf("text = %q", res.Text)
	}
	if len(res.DiarizedSegments) != 1 || res.DiarizedSegments[0].Speaker != "SPEAKER_1" {
		t.Fatalf("diarized segments = %+v", res.DiarizedSegments)
	}
}

func TestSarvamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "chunk_00000.mp3")
	if err := os.WriteFile(audio, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	tr := NewSarvamTranscriber(config.SpeechConfig{Mode: "sarvam", Endpoint: server.URL})
	_, err := tr.Transcribe(context.Background(), audio)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if !statusErr.Temporary() {
		t.Fatal("429 should be temporary")
	}

	permanent := &StatusError{Code: http.StatusBadRequest}
	if permanent.Temporary() {
		t.Fatal("400 should not be temporary")
	}
}
