package speech

import (
	"context"
	"fmt"

	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/transcript"
)

// Result captures speech-service output for one audio chunk. Plain and
// diarized views are populated according to what the backend returned.
type Result struct {
	Text             string
	Segments         []transcript.Segment
	DiarizedText     string
	DiarizedSegments []transcript.Segment
}

// Transcriber abstracts speech-to-text backends. The single call returns
// both transcription and speaker attribution when the backend provides it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// NewTranscriber builds the backend selected by config.
func NewTranscriber(cfg config.SpeechConfig) (Transcriber, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockTranscriber(), nil
	case "exec":
		return NewExecTranscriber(cfg)
	case "sarvam":
		return NewSarvamTranscriber(cfg), nil
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.Mode)
	}
}

// StatusError reports a non-success HTTP response from a speech service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech service returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// resultFromPayload maps a decoded provider payload onto a Result. Payloads
// carrying speaker attribution land in the diarized fields; everything else
// is treated as a plain transcript.
func resultFromPayload(data map[string]any) Result {
	text, segments := transcript.FromServicePayload(data)
	res := Result{Text: text}
	if hasDiarization(data) {
		res.DiarizedSegments = segments
		res.DiarizedText = transcript.RenderDiarized(segments)
	} else {
		res.Segments = segments
	}
	return res
}

func hasDiarization(data map[string]any) bool {
	for _, key := range []string{"diarized_transcript", "diarization", "diarized_segments", "speaker_segments"} {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}
