package protocol

import "time"

// ProcessSessionJob asks a worker to run the transcription pipeline for one
// session. Published on SubjectSessionProcess.
type ProcessSessionJob struct {
	JobID       string    `json:"job_id"`
	SessionID   int64     `json:"session_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// ChunkFailure names one chunk that produced no transcript and why.
type ChunkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ProcessSessionResult reports a finished pipeline run.
type ProcessSessionResult struct {
	JobID        string         `json:"job_id"`
	SessionID    int64          `json:"session_id"`
	Status       string         `json:"status"`
	NotesStatus  string         `json:"notes_status,omitempty"`
	FailedChunks []ChunkFailure `json:"failed_chunks,omitempty"`
	Error        string         `json:"error,omitempty"`
	FinishedAt   time.Time      `json:"finished_at"`
}

const (
	SubjectSessionProcess = "sessions.process"
	SubjectSessionResult  = "sessions.result"

	// Queue group so redeliveries land on exactly one worker.
	QueueWorkers = "scribed-workers"

	StreamSessions = "SCRIBED_SESSIONS"
)
