package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ambiware-labs/scribed/internal/catalog"
	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/notes"
	"github.com/ambiware-labs/scribed/internal/segmenter"
	"github.com/ambiware-labs/scribed/internal/speech"
	"github.com/ambiware-labs/scribed/internal/transcript"
)

type fakeSplitter struct {
	chunks       int
	chunkSeconds int
}

func (f *fakeSplitter) Split(_ context.Context, _ string, outputDir string) ([]segmenter.Chunk, error) {
	var out []segmenter.Chunk
	for i := 0; i < f.chunks; i++ {
		out = append(out, segmenter.Chunk{
			Index:        i,
			Path:         filepath.Join(outputDir, fmt.Sprintf("chunk_%05d.mp3", i)),
			StartSeconds: float64(i * f.chunkSeconds),
			EndSeconds:   float64((i + 1) * f.chunkSeconds),
		})
	}
	return out, nil
}

func (f *fakeSplitter) ChunkSeconds() int { return f.chunkSeconds }

// fakeTranscriber fails the listed chunk indexes permanently and can be told
// to fail a chunk transiently for its first N calls.
type fakeTranscriber struct {
	mu            sync.Mutex
	fail          map[int]bool
	transientHits map[int]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func chunkIndexFromPath(path string) int {
	var idx int
	fmt.Sscanf(filepath.Base(path), "chunk_%05d.mp3", &idx)
	return idx
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (speech.Result, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if current <= max || f.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}

	idx := chunkIndexFromPath(audioPath)
	f.mu.Lock()
	if n := f.transientHits[idx]; n > 0 {
		f.transientHits[idx] = n - 1
		f.mu.Unlock()
		return speech.Result{}, Transient(errors.New("transient backend failure"))
	}
	shouldFail := f.fail[idx]
	f.mu.Unlock()
	if shouldFail {
		return speech.Result{}, Permanent(errors.New("backend rejected chunk"))
	}

	start, end := 1.0, 3.0
	return speech.Result{
		Text:         fmt.Sprintf("chunk %d text", idx),
		DiarizedText: fmt.Sprintf("SPEAKER_0: chunk %d text", idx),
		DiarizedSegments: []transcript.Segment{{
			Speaker: "SPEAKER_0",
			Start:   &start,
			End:     &end,
			Text:    fmt.Sprintf("chunk %d text", idx),
		}},
	}, nil
}

type fakeNoteGen struct {
	mu         sync.Mutex
	failures   int
	calls      int
	lastPrompt string
}

func (f *fakeNoteGen) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	if f.failures > 0 {
		f.failures--
		return "", errors.New("model unavailable")
	}
	return `{"summary":"recap","key_points":["p"],"action_items":[],"risk_flags":[],"note_markdown":"# Notes"}`, nil
}

type fixture struct {
	store       *catalog.Store
	orch        *Orchestrator
	transcriber *fakeTranscriber
	noteGen     *fakeNoteGen
	session     catalog.Session
	audio       catalog.AudioFile
}

func newFixture(t *testing.T, chunks int, transcriber *fakeTranscriber, noteGen *fakeNoteGen) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := catalog.Open(ctx, config.CatalogConfig{Path: filepath.Join(t.TempDir(), "catalog.db")}, slog.Default())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sess, err := store.CreateSession(ctx, "weekly sync")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	audio, err := store.CreateAudioFile(ctx, &sess.ID, "uploads/sync.mp3", "sync.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("create audio: %v", err)
	}

	if transcriber == nil {
		transcriber = &fakeTranscriber{}
	}
	if noteGen == nil {
		noteGen = &fakeNoteGen{}
	}

	dataDir := t.TempDir()
	cfg := config.PipelineConfig{
		ChunkSeconds:        600,
		MinChunkSeconds:     5,
		MaxChunkSeconds:     900,
		Concurrency:         2,
		ChunkRetryAttempts:  3,
		ChunkRetryDelayMS:   1,
		NotesRetryAttempts:  3,
		NotesRetryDelayMS:   1,
		RetryJitterFraction: 0,
		StageTimeoutSeconds: 60,
	}
	storage := config.StorageConfig{
		UploadDir: filepath.Join(dataDir, "uploads"),
		ChunkDir:  filepath.Join(dataDir, "chunks"),
	}

	orch := NewOrchestrator(
		store,
		&fakeSplitter{chunks: chunks, chunkSeconds: 600},
		transcriber,
		notes.NewAgent(noteGen, "llama3.2:latest", slog.Default()),
		nil,
		cfg,
		storage,
		slog.Default(),
	)
	return &fixture{store: store, orch: orch, transcriber: transcriber, noteGen: noteGen, session: sess, audio: audio}
}

func TestProcessSessionHappyPath(t *testing.T) {
	f := newFixture(t, 3, nil, nil)
	ctx := context.Background()

	outcome, err := f.orch.ProcessSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Status != catalog.StatusNoted || outcome.NotesStatus != NotesStatusReady {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Chunks != 3 || len(outcome.FailedChunks) != 0 {
		t.Fatalf("chunks/failed = %d/%d", outcome.Chunks, len(outcome.FailedChunks))
	}

	sess, err := f.store.GetSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != catalog.StatusNoted {
		t.Fatalf("status = %q", sess.Status)
	}

	tr, err := f.store.GetTranscript(ctx, f.audio.ID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if tr.Text != "chunk 0 text\nchunk 1 text\nchunk 2 text" {
		t.Fatalf("merged text = %q", tr.Text)
	}
	if len(tr.DiarizedSegments) != 3 {
		t.Fatalf("diarized segments = %d", len(tr.DiarizedSegments))
	}
	// Chunk 2 starts at 1200s, its segment at 1s into the chunk.
	last := tr.DiarizedSegments[2]
	if last.Start == nil || *last.Start != 1201 {
		t.Fatalf("last segment start = %v, want 1201", last.Start)
	}
	if tr.DurationSeconds == nil || *tr.DurationSeconds != 1203 {
		t.Fatalf("duration = %v, want 1203", tr.DurationSeconds)
	}

	note, err := f.store.GetSessionNote(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if note.NoteMarkdown != "# Notes" || note.Version != "v1" {
		t.Fatalf("note = %+v", note)
	}

	// The summarizer sees the diarized timeline, not just raw text.
	if !strings.Contains(f.noteGen.lastPrompt, "Speaker timeline (sample):") {
		t.Fatalf("note prompt missing timeline section:\n%s", f.noteGen.lastPrompt)
	}
	if !strings.Contains(f.noteGen.lastPrompt, "[1.0s-3.0s] SPEAKER_0: chunk 0 text") {
		t.Fatalf("note prompt missing diarized sample:\n%s", f.noteGen.lastPrompt)
	}
}

func TestChunkDuration(t *testing.T) {
	job := chunkJob{startSeconds: 600, endSeconds: 1200}
	end1, end2 := 7.5, 12.5

	d := chunkDuration(speech.Result{
		Segments:         []transcript.Segment{{End: &end1}},
		DiarizedSegments: []transcript.Segment{{End: &end2}},
	}, job)
	if d == nil || *d != 12.5 {
		t.Fatalf("duration = %v, want 12.5", d)
	}

	d = chunkDuration(speech.Result{Segments: []transcript.Segment{{End: &end1}}}, job)
	if d == nil || *d != 7.5 {
		t.Fatalf("duration = %v, want 7.5", d)
	}

	// No timestamps at all: fall back to the nominal chunk length.
	d = chunkDuration(speech.Result{Text: "words"}, job)
	if d == nil || *d != 600 {
		t.Fatalf("duration = %v, want 600", d)
	}
}

func TestProcessSessionBoundedConcurrency(t *testing.T) {
	f := newFixture(t, 8, nil, nil)

	if _, err := f.orch.ProcessSession(context.Background(), f.session.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	if max := f.transcriber.maxInFlight.Load(); max > 2 {
		t.Fatalf("max in-flight = %d, want <= 2", max)
	}
}

func TestProcessSessionPartialFailure(t *testing.T) {
	tr := &fakeTranscriber{fail: map[int]bool{1: true}}
	f := newFixture(t, 3, tr, nil)
	ctx := context.Background()

	outcome, err := f.orch.ProcessSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(outcome.FailedChunks) != 1 || outcome.Status != catalog.StatusNoted {
		t.Fatalf("outcome = %+v", outcome)
	}
	failure := outcome.FailedChunks[0]
	if failure.Index != 1 || !strings.Contains(failure.Reason, "backend rejected chunk") {
		t.Fatalf("chunk failure = %+v", failure)
	}

	merged, err := f.store.GetTranscript(ctx, f.audio.ID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if merged.Text != "chunk 0 text\nchunk 2 text" {
		t.Fatalf("merged text = %q", merged.Text)
	}
	// Surviving chunk keeps its absolute offset.
	if len(merged.DiarizedSegments) != 2 || *merged.DiarizedSegments[1].Start != 1201 {
		t.Fatalf("segments = %+v", merged.DiarizedSegments)
	}
}

func TestProcessSessionAllChunksFail(t *testing.T) {
	tr := &fakeTranscriber{fail: map[int]bool{0: true, 1: true}}
	f := newFixture(t, 2, tr, nil)
	ctx := context.Background()

	if _, err := f.orch.ProcessSession(ctx, f.session.ID); err == nil {
		t.Fatal("expected error when every chunk fails")
	}

	sess, err := f.store.GetSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != catalog.StatusProcessing {
		t.Fatalf("status = %q, want processing", sess.Status)
	}
	if _, err := f.store.GetTranscript(ctx, f.audio.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("transcript err = %v, want ErrNotFound", err)
	}
}

func TestProcessSessionRetriesTransientChunk(t *testing.T) {
	tr := &fakeTranscriber{transientHits: map[int]int{0: 2}}
	f := newFixture(t, 1, tr, nil)

	outcome, err := f.orch.ProcessSession(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(outcome.FailedChunks) != 0 {
		t.Fatalf("failed chunks = %+v", outcome.FailedChunks)
	}
	if calls := tr.calls.Load(); calls != 3 {
		t.Fatalf("transcriber calls = %d, want 3", calls)
	}
}

func TestProcessSessionPermanentChunkSkipsRetry(t *testing.T) {
	tr := &fakeTranscriber{fail: map[int]bool{0: true}, transientHits: map[int]int{}}
	f := newFixture(t, 2, tr, nil)

	outcome, err := f.orch.ProcessSession(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(outcome.FailedChunks) != 1 || outcome.FailedChunks[0].Index != 0 {
		t.Fatalf("failed chunks = %+v", outcome.FailedChunks)
	}
	// One permanent failure plus one success, no retries.
	if calls := tr.calls.Load(); calls != 2 {
		t.Fatalf("transcriber calls = %d, want 2", calls)
	}
}

func TestProcessSessionNotesFailureKeepsTranscribed(t *testing.T) {
	f := newFixture(t, 1, nil, &fakeNoteGen{failures: 10})
	ctx := context.Background()

	outcome, err := f.orch.ProcessSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Status != catalog.StatusTranscribed || outcome.NotesStatus != NotesStatusFailed {
		t.Fatalf("outcome = %+v", outcome)
	}

	sess, err := f.store.GetSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != catalog.StatusTranscribed {
		t.Fatalf("status = %q, want transcribed", sess.Status)
	}
	if _, err := f.store.GetSessionNote(ctx, f.session.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("note err = %v, want ErrNotFound", err)
	}
}

func TestProcessSessionNotesRetry(t *testing.T) {
	gen := &fakeNoteGen{failures: 2}
	f := newFixture(t, 1, nil, gen)

	outcome, err := f.orch.ProcessSession(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.NotesStatus != NotesStatusReady {
		t.Fatalf("notes status = %q", outcome.NotesStatus)
	}
	if gen.calls != 3 {
		t.Fatalf("generator calls = %d, want 3", gen.calls)
	}
}

func TestProcessSessionRerunIsIdempotent(t *testing.T) {
	f := newFixture(t, 3, nil, nil)
	ctx := context.Background()

	if _, err := f.orch.ProcessSession(ctx, f.session.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second run with a shorter split must fully replace the chunk set.
	f.orch.splitter = &fakeSplitter{chunks: 2, chunkSeconds: 600}
	if _, err := f.orch.ProcessSession(ctx, f.session.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}

	chunks, err := f.store.ListChunks(ctx, f.audio.ID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks after rerun = %d, want 2", len(chunks))
	}
	merged, err := f.store.GetTranscript(ctx, f.audio.ID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if merged.Text != "chunk 0 text\nchunk 1 text" {
		t.Fatalf("merged text = %q", merged.Text)
	}
}

func TestProcessSessionUnknownSession(t *testing.T) {
	f := newFixture(t, 1, nil, nil)
	if _, err := f.orch.ProcessSession(context.Background(), 9999); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
