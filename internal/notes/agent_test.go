package notes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/ambiware-labs/scribed/internal/transcript"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestGenerateNoteParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{response: "Here you go:\n```json\n{\"summary\":\"recap\",\"key_points\":[\"a\",\"b\"],\"action_items\":[\"do x\"],\"risk_flags\":[],\"note_markdown\":\"# Notes\\nrecap\"}\n```"}
	agent := NewAgent(gen, "llama3.2:latest", slog.Default())

	note, err := agent.GenerateNote(context.Background(), "transcript text", nil)
	if err != nil {
		t.Fatalf("generate note: %v", err)
	}
	if note.Summary == nil || *note.Summary != "recap" {
		t.Fatalf("summary = %v", note.Summary)
	}
	if len(note.KeyPoints) != 2 || note.KeyPoints[1] != "b" {
		t.Fatalf("key points = %v", note.KeyPoints)
	}
	if note.Markdown != "# Notes\nrecap" {
		t.Fatalf("markdown = %q", note.Markdown)
	}
	if note.Model != "llama3.2:latest" || note.Version != "v1" {
		t.Fatalf("model/version = %q/%q", note.Model, note.Version)
	}
}

func TestGenerateNoteRendersMissingMarkdown(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"recap","key_points":["one"],"action_items":[],"risk_flags":["deadline slip"]}`}
	agent := NewAgent(gen, "llama3.2:latest", slog.Default())

	note, err := agent.GenerateNote(context.Background(), "transcript text", nil)
	if err != nil {
		t.Fatalf("generate note: %v", err)
	}
	for _, want := range []string{"# Session Notes", "recap", "## Key Points", "- one", "## Risks", "- deadline slip"} {
		if !strings.Contains(note.Markdown, want) {
			t.Fatalf("markdown missing %q:\n%s", want, note.Markdown)
		}
	}
	if strings.Contains(note.Markdown, "## Action Items") {
		t.Fatal("empty section should be omitted")
	}
}

func TestGenerateNotePromptSamplesSegments(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"recap","note_markdown":"# Notes"}`}
	agent := NewAgent(gen, "llama3.2:latest", slog.Default())

	segments := make([]transcript.Segment, 20)
	for i := range segments {
		start, end := float64(i*10), float64(i*10+5)
		segments[i] = transcript.Segment{
			Speaker: fmt.Sprintf("SPEAKER_%d", i%2),
			Start:   &start,
			End:     &end,
			Text:    fmt.Sprintf("line %d", i),
		}
	}

	if _, err := agent.GenerateNote(context.Background(), "transcript text", segments); err != nil {
		t.Fatalf("generate note: %v", err)
	}
	if !strings.Contains(gen.prompt, "Speaker timeline") {
		t.Fatalf("prompt missing timeline:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "[0.0s-5.0s] SPEAKER_0: line 0") {
		t.Fatalf("prompt missing first segment:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "line 11") {
		t.Fatal("prompt should include the twelfth segment")
	}
	if strings.Contains(gen.prompt, "line 12") {
		t.Fatal("sample should stop at twelve segments")
	}
}

func TestGenerateNoteNoSegmentsOmitsTimeline(t *testing.T) {
	gen := &fakeGenerator{response: `{"summary":"recap","note_markdown":"# Notes"}`}
	agent := NewAgent(gen, "llama3.2:latest", slog.Default())

	if _, err := agent.GenerateNote(context.Background(), "transcript text", nil); err != nil {
		t.Fatalf("generate note: %v", err)
	}
	if strings.Contains(gen.prompt, "Speaker timeline") {
		t.Fatal("timeline section should be omitted without segments")
	}
}

func TestGenerateNoteRejectsNonJSON(t *testing.T) {
	gen := &fakeGenerator{response: "I could not produce notes."}
	agent := NewAgent(gen, "llama3.2:latest", slog.Default())

	if _, err := agent.GenerateNote(context.Background(), "transcript text", nil); err == nil {
		t.Fatal("non-JSON response should fail")
	}
}

func TestNewGeneratorModes(t *testing.T) {
	if _, err := NewGenerator(configFor("mock")); err != nil {
		t.Fatalf("mock mode: %v", err)
	}
	if _, err := NewGenerator(configFor("ollama")); err != nil {
		t.Fatalf("ollama mode: %v", err)
	}
	if _, err := NewGenerator(configFor("telepathy")); err == nil {
		t.Fatal("unknown mode should fail")
	}
}
