package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ambiware-labs/scribed/internal/catalog"
	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/notes"
	"github.com/ambiware-labs/scribed/internal/search"
	"github.com/ambiware-labs/scribed/internal/segmenter"
	"github.com/ambiware-labs/scribed/internal/speech"
	"github.com/ambiware-labs/scribed/internal/transcript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Notes stage outcomes reported alongside a pipeline run.
const (
	NotesStatusReady  = "ready"
	NotesStatusFailed = "failed"
)

// Splitter abstracts the audio segmentation stage.
type Splitter interface {
	Split(ctx context.Context, inputPath, outputDir string) ([]segmenter.Chunk, error)
	ChunkSeconds() int
}

// ChunkFailure records one chunk that produced no transcript and why, ordered
// by chunk index.
type ChunkFailure struct {
	Index  int
	Reason string
}

// Outcome summarizes one pipeline run.
type Outcome struct {
	SessionID    int64
	Status       string
	NotesStatus  string
	Chunks       int
	FailedChunks []ChunkFailure
}

// Orchestrator drives a session through segmentation, transcription, merge,
// and note generation, advancing the catalog status at each stage.
type Orchestrator struct {
	store       *catalog.Store
	splitter    Splitter
	transcriber speech.Transcriber
	agent       *notes.Agent
	indexer     *search.Indexer
	cfg         config.PipelineConfig
	storage     config.StorageConfig
	chunkRetry  RetryPolicy
	notesRetry  RetryPolicy
	log         *slog.Logger
	tracer      trace.Tracer
}

func NewOrchestrator(
	store *catalog.Store,
	splitter Splitter,
	transcriber speech.Transcriber,
	agent *notes.Agent,
	indexer *search.Indexer,
	cfg config.PipelineConfig,
	storage config.StorageConfig,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		splitter:    splitter,
		transcriber: transcriber,
		agent:       agent,
		indexer:     indexer,
		cfg:         cfg,
		storage:     storage,
		chunkRetry:  NewRetryPolicy(cfg.ChunkRetryAttempts, cfg.ChunkRetryDelayMS, cfg.RetryJitterFraction),
		notesRetry:  NewRetryPolicy(cfg.NotesRetryAttempts, cfg.NotesRetryDelayMS, cfg.RetryJitterFraction),
		log:         log.With(slog.String("component", "pipeline")),
		tracer:      otel.Tracer("scribed/pipeline"),
	}
}

type chunkJob struct {
	chunkID      int64
	index        int
	path         string
	startSeconds float64
	endSeconds   float64
}

// ProcessSession runs the full pipeline for one session. Reruns are
// idempotent: previous chunks and their transcripts are cleared first, and
// the merged transcript and note overwrite in place.
func (o *Orchestrator) ProcessSession(ctx context.Context, sessionID int64) (Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.process_session",
		trace.WithAttributes(attribute.Int64("session.id", sessionID)))
	defer span.End()

	sess, audio, err := o.store.GetSessionWithAudio(ctx, sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Outcome{SessionID: sessionID}, Permanent(fmt.Errorf("load session %d: %w", sessionID, err))
		}
		return Outcome{SessionID: sessionID}, fmt.Errorf("load session %d: %w", sessionID, err)
	}
	log := o.log.With(slog.Int64("session_id", sessionID))

	if err := o.store.UpdateSessionStatus(ctx, sessionID, catalog.StatusProcessing); err != nil {
		return Outcome{SessionID: sessionID}, err
	}

	jobs, err := o.segment(ctx, audio)
	if err != nil {
		return Outcome{SessionID: sessionID, Status: catalog.StatusProcessing}, err
	}

	failures := o.transcribeAll(ctx, log, jobs)
	if len(failures) == len(jobs) {
		return Outcome{SessionID: sessionID, Status: catalog.StatusProcessing, Chunks: len(jobs), FailedChunks: failures},
			fmt.Errorf("all %d chunks failed for session %d", len(jobs), sessionID)
	}
	if len(failures) > 0 {
		log.Warn("continuing with partial transcript",
			slog.Int("failed_chunks", len(failures)),
			slog.Int("total_chunks", len(jobs)))
	}

	merged, err := o.merge(ctx, audio.ID)
	if err != nil {
		return Outcome{SessionID: sessionID, Status: catalog.StatusProcessing, Chunks: len(jobs), FailedChunks: failures}, err
	}
	if err := o.store.UpdateSessionStatus(ctx, sessionID, catalog.StatusTranscribed); err != nil {
		return Outcome{SessionID: sessionID, Chunks: len(jobs), FailedChunks: failures}, err
	}

	outcome := Outcome{
		SessionID:    sessionID,
		Status:       catalog.StatusTranscribed,
		Chunks:       len(jobs),
		FailedChunks: failures,
	}

	if o.indexer.Enabled() {
		go o.indexer.IndexTranscript(context.WithoutCancel(ctx), sessionID, sess.Title, merged.Text)
	}

	noteText := merged.DiarizedText
	if noteText == "" {
		noteText = merged.Text
	}
	noteSegments := merged.DiarizedSegments
	if len(noteSegments) == 0 {
		noteSegments = merged.Segments
	}
	note, err := o.generateNote(ctx, noteText, noteSegments)
	if err != nil {
		// Transcription stands on its own; the session stays transcribed.
		log.Warn("note generation failed", slog.String("error", err.Error()))
		outcome.NotesStatus = NotesStatusFailed
		return outcome, nil
	}
	note.SessionID = sessionID
	if err := o.store.UpsertSessionNote(ctx, note); err != nil {
		return outcome, err
	}
	if err := o.store.UpdateSessionStatus(ctx, sessionID, catalog.StatusNoted); err != nil {
		return outcome, err
	}
	outcome.Status = catalog.StatusNoted
	outcome.NotesStatus = NotesStatusReady

	if o.indexer.Enabled() {
		go o.indexer.IndexNote(context.WithoutCancel(ctx), sessionID, sess.Title, note.NoteMarkdown)
	}

	log.Info("session processed",
		slog.Int("chunks", outcome.Chunks),
		slog.Int("failed_chunks", len(outcome.FailedChunks)),
		slog.String("status", outcome.Status))
	return outcome, nil
}

// segment clears prior chunk state and splits the audio fresh.
func (o *Orchestrator) segment(ctx context.Context, audio catalog.AudioFile) ([]chunkJob, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.segment")
	defer span.End()

	if err := o.store.DeleteChunks(ctx, audio.ID); err != nil {
		return nil, err
	}
	chunkDir := filepath.Join(o.storage.ChunkDir, fmt.Sprintf("audio_%d", audio.ID))
	if err := os.RemoveAll(chunkDir); err != nil {
		return nil, fmt.Errorf("clear chunk dir: %w", err)
	}

	inputPath := filepath.Join(o.storage.UploadDir, audio.FileKey)
	chunks, err := o.splitter.Split(ctx, inputPath, chunkDir)
	if err != nil {
		return nil, err
	}

	jobs := make([]chunkJob, 0, len(chunks))
	for _, chunk := range chunks {
		id, err := o.store.CreateChunk(ctx, catalog.AudioChunk{
			AudioFileID:  audio.ID,
			ChunkIndex:   chunk.Index,
			FilePath:     chunk.Path,
			StartSeconds: chunk.StartSeconds,
			EndSeconds:   chunk.EndSeconds,
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, chunkJob{
			chunkID:      id,
			index:        chunk.Index,
			path:         chunk.Path,
			startSeconds: chunk.StartSeconds,
			endSeconds:   chunk.EndSeconds,
		})
	}
	return jobs, nil
}

// transcribeAll fans chunk jobs out across a bounded worker pool and reports
// every chunk that ultimately failed with its reason.
func (o *Orchestrator) transcribeAll(ctx context.Context, log *slog.Logger, jobs []chunkJob) []ChunkFailure {
	concurrency := o.cfg.Concurrency
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}
	sema := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []ChunkFailure
	for _, job := range jobs {
		wg.Add(1)
		go func(job chunkJob) {
			defer wg.Done()
			sema <- struct{}{}
			defer func() { <-sema }()

			if err := o.transcribeChunk(ctx, job); err != nil {
				log.Error("chunk transcription failed",
					slog.Int("chunk_index", job.index),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, ChunkFailure{Index: job.index, Reason: err.Error()})
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()
	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	return failures
}

// transcribeChunk runs one chunk through the speech backend with the retry
// budget and persists the result before returning.
func (o *Orchestrator) transcribeChunk(ctx context.Context, job chunkJob) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.transcribe_chunk",
		trace.WithAttributes(attribute.Int("chunk.index", job.index)))
	defer span.End()

	var result speech.Result
	err := o.chunkRetry.Do(ctx, func() error {
		callCtx := ctx
		if o.cfg.StageTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.StageTimeoutSeconds)*time.Second)
			defer cancel()
		}
		var callErr error
		result, callErr = o.transcriber.Transcribe(callCtx, job.path)
		return callErr
	})
	if err != nil {
		return err
	}

	return o.store.UpsertChunkTranscript(ctx, catalog.ChunkTranscript{
		AudioChunkID:     job.chunkID,
		Text:             result.Text,
		Segments:         result.Segments,
		DiarizedText:     result.DiarizedText,
		DiarizedSegments: result.DiarizedSegments,
		DurationSeconds:  chunkDuration(result, job),
	})
}

// chunkDuration derives the chunk's spoken duration from its segment end
// times, falling back to the nominal chunk length when the backend returned
// no timestamps.
func chunkDuration(result speech.Result, job chunkJob) *float64 {
	if d := transcript.Duration(result.DiarizedSegments); d != nil {
		return d
	}
	if d := transcript.Duration(result.Segments); d != nil {
		return d
	}
	nominal := job.endSeconds - job.startSeconds
	if nominal <= 0 {
		return nil
	}
	return &nominal
}

// merge combines the committed chunk transcripts into the session transcript
// and writes it in one step.
func (o *Orchestrator) merge(ctx context.Context, audioFileID int64) (transcript.Merged, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.merge")
	defer span.End()

	results, err := o.store.ListChunkResults(ctx, audioFileID)
	if err != nil {
		return transcript.Merged{}, err
	}
	merged := transcript.Merge(results)
	if err := o.store.UpsertTranscript(ctx, audioFileID, merged); err != nil {
		return transcript.Merged{}, err
	}
	return merged, nil
}

func (o *Orchestrator) generateNote(ctx context.Context, transcriptText string, segments []transcript.Segment) (catalog.SessionNote, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.generate_note")
	defer span.End()

	var generated notes.Note
	err := o.notesRetry.Do(ctx, func() error {
		callCtx := ctx
		if o.cfg.StageTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.StageTimeoutSeconds)*time.Second)
			defer cancel()
		}
		var genErr error
		generated, genErr = o.agent.GenerateNote(callCtx, transcriptText, segments)
		return genErr
	})
	if err != nil {
		return catalog.SessionNote{}, err
	}
	return catalog.SessionNote{
		NoteMarkdown: generated.Markdown,
		Summary:      generated.Summary,
		KeyPoints:    generated.KeyPoints,
		ActionItems:  generated.ActionItems,
		RiskFlags:    generated.RiskFlags,
		Model:        generated.Model,
		Version:      generated.Version,
	}, nil
}
