package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ambiware-labs/scribed/internal/transcript"
)

// NoteVersion tags the structured note schema.
const NoteVersion = "v1"

// maxPromptSegments bounds the diarized sample embedded in the prompt so a
// long session does not blow up the context window.
const maxPromptSegments = 12

// Note is a structured summarization of a session transcript.
type Note struct {
	Markdown    string
	Summary     *string
	KeyPoints   []string
	ActionItems []string
	RiskFlags   []string
	Model       string
	Version     string
}

// Agent turns a merged transcript into a structured note using a Generator.
type Agent struct {
	gen   Generator
	model string
	log   *slog.Logger
}

func NewAgent(gen Generator, model string, log *slog.Logger) *Agent {
	return &Agent{
		gen:   gen,
		model: model,
		log:   log.With(slog.String("component", "notes")),
	}
}

const promptTemplate = `You are a meticulous meeting scribe. Read the transcript below and respond with a single JSON object and nothing else. The object must have these keys:
  "summary": one-paragraph summary of the session
  "key_points": array of the most important points
  "action_items": array of concrete follow-ups, empty if none
  "risk_flags": array of risks or concerns raised, empty if none
  "note_markdown": the full note rendered as markdown

Transcript:
%s`

func buildPrompt(transcriptText string, segments []transcript.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptTemplate, transcriptText)
	if len(segments) == 0 {
		return b.String()
	}
	sample := segments
	if len(sample) > maxPromptSegments {
		sample = sample[:maxPromptSegments]
	}
	b.WriteString("\n\nSpeaker timeline (sample):\n")
	for _, seg := range sample {
		if seg.Start != nil && seg.End != nil {
			fmt.Fprintf(&b, "[%.1fs-%.1fs] ", *seg.Start, *seg.End)
		}
		b.WriteString(seg.Speaker + ": " + seg.Text + "\n")
	}
	return b.String()
}

// GenerateNote prompts the model with the transcript plus a bounded sample of
// the diarized timeline and parses its JSON response. A response that cannot
// be parsed is an error; callers decide whether to retry.
func (a *Agent) GenerateNote(ctx context.Context, transcriptText string, segments []transcript.Segment) (Note, error) {
	raw, err := a.gen.Complete(ctx, buildPrompt(transcriptText, segments))
	if err != nil {
		return Note{}, fmt.Errorf("notes generation: %w", err)
	}

	payload, err := parsePayload(raw)
	if err != nil {
		return Note{}, err
	}

	note := Note{
		Markdown:    payload.NoteMarkdown,
		KeyPoints:   payload.KeyPoints,
		ActionItems: payload.ActionItems,
		RiskFlags:   payload.RiskFlags,
		Model:       a.model,
		Version:     NoteVersion,
	}
	if strings.TrimSpace(payload.Summary) != "" {
		summary := payload.Summary
		note.Summary = &summary
	}
	if strings.TrimSpace(note.Markdown) == "" {
		note.Markdown = renderMarkdown(payload)
	}
	return note, nil
}

type notePayload struct {
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"key_points"`
	ActionItems  []string `json:"action_items"`
	RiskFlags    []string `json:"risk_flags"`
	NoteMarkdown string   `json:"note_markdown"`
}

func parsePayload(raw string) (notePayload, error) {
	extracted := extractJSON(raw)
	if extracted == "" {
		return notePayload{}, fmt.Errorf("notes response contains no JSON object")
	}
	var payload notePayload
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		return notePayload{}, fmt.Errorf("decode notes response: %w", err)
	}
	return payload, nil
}

// extractJSON strips any prose or markdown fencing the model wrapped around
// the JSON object.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func renderMarkdown(payload notePayload) string {
	var b strings.Builder
	b.WriteString("# Session Notes\n")
	if strings.TrimSpace(payload.Summary) != "" {
		b.WriteString("\n" + payload.Summary + "\n")
	}
	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n## " + title + "\n")
		for _, item := range items {
			b.WriteString("- " + item + "\n")
		}
	}
	writeSection("Key Points", payload.KeyPoints)
	writeSection("Action Items", payload.ActionItems)
	writeSection("Risks", payload.RiskFlags)
	return b.String()
}
