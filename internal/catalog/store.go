package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/transcript"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("catalog: not found")

// Session statuses, in pipeline order.
const (
	StatusUploaded    = "uploaded"
	StatusProcessing  = "processing"
	StatusTranscribed = "transcribed"
	StatusNoted       = "noted"
)

type Session struct {
	ID        int64
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AudioFile struct {
	ID               int64
	SessionID        *int64
	FileKey          string
	OriginalFilename string
	ContentType      string
	CreatedAt        time.Time
}

type AudioChunk struct {
	ID           int64
	AudioFileID  int64
	ChunkIndex   int
	FilePath     string
	StartSeconds float64
	EndSeconds   float64
	CreatedAt    time.Time
}

type ChunkTranscript struct {
	ID               int64
	AudioChunkID     int64
	Text             string
	Segments         []transcript.Segment
	DiarizedText     string
	DiarizedSegments []transcript.Segment
	DurationSeconds  *float64
}

type Transcript struct {
	ID               int64
	AudioFileID      int64
	Text             string
	Segments         []transcript.Segment
	DiarizedText     string
	DiarizedSegments []transcript.Segment
	DurationSeconds  *float64
	UpdatedAt        time.Time
}

type SessionNote struct {
	ID           int64
	SessionID    int64
	NoteMarkdown string
	Summary      *string
	KeyPoints    []string
	ActionItems  []string
	RiskFlags    []string
	Model        string
	Version      string
	UpdatedAt    time.Time
}

// Store wraps the SQLite-backed catalog of sessions, audio files, chunks,
// transcripts, and notes.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the catalog according to config.
func Open(ctx context.Context, cfg config.CatalogConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	// busy_timeout makes concurrent chunk writers wait for the lock instead
	// of failing with SQLITE_BUSY.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'uploaded',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS audio_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    file_key TEXT NOT NULL UNIQUE,
    original_filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_audio_files_session
    ON audio_files(session_id) WHERE session_id IS NOT NULL;
CREATE TABLE IF NOT EXISTS audio_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    audio_file_id INTEGER NOT NULL REFERENCES audio_files(id),
    chunk_index INTEGER NOT NULL,
    file_path TEXT NOT NULL,
    start_seconds REAL NOT NULL,
    end_seconds REAL NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(audio_file_id, chunk_index)
);
CREATE TABLE IF NOT EXISTS chunk_transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    audio_chunk_id INTEGER NOT NULL UNIQUE REFERENCES audio_chunks(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    segments TEXT,
    diarized_text TEXT,
    diarized_segments TEXT,
    duration_seconds REAL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    audio_file_id INTEGER NOT NULL UNIQUE REFERENCES audio_files(id),
    text TEXT NOT NULL,
    segments TEXT,
    diarized_text TEXT,
    diarized_segments TEXT,
    duration_seconds REAL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS session_notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL UNIQUE REFERENCES sessions(id),
    note_markdown TEXT NOT NULL,
    summary TEXT,
    key_points TEXT,
    action_items TEXT,
    risk_flags TEXT,
    model TEXT NOT NULL,
    version TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func marshalSegments(segments []transcript.Segment) (any, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	return string(data), nil
}

func unmarshalSegments(raw sql.NullString) ([]transcript.Segment, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var segments []transcript.Segment
	if err := json.Unmarshal([]byte(raw.String), &segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	return segments, nil
}

func marshalStrings(values []string) (any, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	return values, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateSession inserts a session row in the uploaded state.
func (s *Store) CreateSession(ctx context.Context, title string) (Session, error) {
	now := s.clock().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(title, status, created_at, updated_at) VALUES(?, ?, ?, ?)`,
		title, StatusUploaded, now, now)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, Title: title, Status: StatusUploaded, CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession looks up one session by id.
func (s *Store) GetSession(ctx context.Context, id int64) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, created_at, updated_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("query session: %w", err)
	}
	return sess, nil
}

// GetSessionWithAudio returns a session together with its audio file.
func (s *Store) GetSessionWithAudio(ctx context.Context, sessionID int64) (Session, AudioFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.title, s.status, s.created_at, s.updated_at,
		        a.id, a.session_id, a.file_key, a.original_filename, a.content_type, a.created_at
		 FROM sessions s
		 JOIN audio_files a ON a.session_id = s.id
		 WHERE s.id = ?`, sessionID)
	var sess Session
	var audio AudioFile
	var audioSession sql.NullInt64
	err := row.Scan(&sess.ID, &sess.Title, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt,
		&audio.ID, &audioSession, &audio.FileKey, &audio.OriginalFilename, &audio.ContentType, &audio.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, AudioFile{}, ErrNotFound
		}
		return Session{}, AudioFile{}, fmt.Errorf("query session with audio: %w", err)
	}
	if audioSession.Valid {
		audio.SessionID = &audioSession.Int64
	}
	return sess, audio, nil
}

// UpdateSessionStatus advances the session status.
func (s *Store) UpdateSessionStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status, s.clock().UTC(), id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAudioFile inserts an audio file record. At most one audio file may
// reference a given session; the unique index rejects a second.
func (s *Store) CreateAudioFile(ctx context.Context, sessionID *int64, fileKey, originalFilename, contentType string) (AudioFile, error) {
	now := s.clock().UTC()
	var sessionValue any
	if sessionID != nil {
		sessionValue = *sessionID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_files(session_id, file_key, original_filename, content_type, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		sessionValue, fileKey, originalFilename, contentType, now)
	if err != nil {
		return AudioFile{}, fmt.Errorf("insert audio file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return AudioFile{}, err
	}
	return AudioFile{
		ID:               id,
		SessionID:        sessionID,
		FileKey:          fileKey,
		OriginalFilename: originalFilename,
		ContentType:      contentType,
		CreatedAt:        now,
	}, nil
}

// GetAudioFileByKey looks up an audio file by its file key.
func (s *Store) GetAudioFileByKey(ctx context.Context, fileKey string) (AudioFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, file_key, original_filename, content_type, created_at
		 FROM audio_files WHERE file_key = ?`, fileKey)
	var audio AudioFile
	var sessionID sql.NullInt64
	err := row.Scan(&audio.ID, &sessionID, &audio.FileKey, &audio.OriginalFilename, &audio.ContentType, &audio.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AudioFile{}, ErrNotFound
		}
		return AudioFile{}, fmt.Errorf("query audio file: %w", err)
	}
	if sessionID.Valid {
		audio.SessionID = &sessionID.Int64
	}
	return audio, nil
}

// DeleteChunks removes all chunks for an audio file, chunk transcripts first
// so a rerun never sees stale partial data.
func (s *Store) DeleteChunks(ctx context.Context, audioFileID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM chunk_transcripts WHERE audio_chunk_id IN (
			SELECT id FROM audio_chunks WHERE audio_file_id = ?
		)`, audioFileID); err != nil {
		return fmt.Errorf("delete chunk transcripts: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM audio_chunks WHERE audio_file_id = ?`, audioFileID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	err = tx.Commit()
	return err
}

// CreateChunk inserts one chunk row and returns its id.
func (s *Store) CreateChunk(ctx context.Context, chunk AudioChunk) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_chunks(audio_file_id, chunk_index, file_path, start_seconds, end_seconds, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		chunk.AudioFileID, chunk.ChunkIndex, chunk.FilePath, chunk.StartSeconds, chunk.EndSeconds, s.clock().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert chunk: %w", err)
	}
	return res.LastInsertId()
}

// ListChunks returns the chunk rows for an audio file ordered by index.
func (s *Store) ListChunks(ctx context.Context, audioFileID int64) ([]AudioChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, audio_file_id, chunk_index, file_path, start_seconds, end_seconds, created_at
		 FROM audio_chunks WHERE audio_file_id = ? ORDER BY chunk_index ASC`, audioFileID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []AudioChunk
	for rows.Next() {
		var c AudioChunk
		if err := rows.Scan(&c.ID, &c.AudioFileID, &c.ChunkIndex, &c.FilePath, &c.StartSeconds, &c.EndSeconds, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// UpsertChunkTranscript writes the transcription result for one chunk, keyed
// by the chunk id.
func (s *Store) UpsertChunkTranscript(ctx context.Context, ct ChunkTranscript) error {
	segments, err := marshalSegments(ct.Segments)
	if err != nil {
		return err
	}
	diarized, err := marshalSegments(ct.DiarizedSegments)
	if err != nil {
		return err
	}
	now := s.clock().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunk_transcripts(audio_chunk_id, text, segments, diarized_text, diarized_segments, duration_seconds, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(audio_chunk_id) DO UPDATE SET
		   text=excluded.text, segments=excluded.segments,
		   diarized_text=excluded.diarized_text, diarized_segments=excluded.diarized_segments,
		   duration_seconds=excluded.duration_seconds, updated_at=excluded.updated_at`,
		ct.AudioChunkID, ct.Text, segments, ct.DiarizedText, diarized, nullFloat(ct.DurationSeconds), now, now)
	if err != nil {
		return fmt.Errorf("upsert chunk transcript: %w", err)
	}
	return nil
}

// ListChunkResults joins chunks with their transcripts in chunk-index order.
// Chunks without a transcript (failed workers) are omitted.
func (s *Store) ListChunkResults(ctx context.Context, audioFileID int64) ([]transcript.ChunkResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.chunk_index, c.start_seconds, t.text, t.segments, t.diarized_text, t.diarized_segments
		 FROM audio_chunks c
		 JOIN chunk_transcripts t ON t.audio_chunk_id = c.id
		 WHERE c.audio_file_id = ?
		 ORDER BY c.chunk_index ASC`, audioFileID)
	if err != nil {
		return nil, fmt.Errorf("query chunk results: %w", err)
	}
	defer rows.Close()

	var results []transcript.ChunkResult
	for rows.Next() {
		var r transcript.ChunkResult
		var segments, diarizedSegments sql.NullString
		var diarizedText sql.NullString
		if err := rows.Scan(&r.Index, &r.StartSeconds, &r.Text, &segments, &diarizedText, &diarizedSegments); err != nil {
			return nil, err
		}
		if r.Segments, err = unmarshalSegments(segments); err != nil {
			return nil, err
		}
		if r.DiarizedSegments, err = unmarshalSegments(diarizedSegments); err != nil {
			return nil, err
		}
		r.DiarizedText = diarizedText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpsertTranscript writes the session-level merged transcript for an audio
// file, overwriting in place when one exists.
func (s *Store) UpsertTranscript(ctx context.Context, audioFileID int64, merged transcript.Merged) error {
	segments, err := marshalSegments(merged.Segments)
	if err != nil {
		return err
	}
	diarized, err := marshalSegments(merged.DiarizedSegments)
	if err != nil {
		return err
	}
	now := s.clock().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts(audio_file_id, text, segments, diarized_text, diarized_segments, duration_seconds, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(audio_file_id) DO UPDATE SET
		   text=excluded.text, segments=excluded.segments,
		   diarized_text=excluded.diarized_text, diarized_segments=excluded.diarized_segments,
		   duration_seconds=excluded.duration_seconds, updated_at=excluded.updated_at`,
		audioFileID, merged.Text, segments, merged.DiarizedText, diarized, nullFloat(merged.DurationSeconds), now, now)
	if err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

// GetTranscript returns the merged transcript for an audio file.
func (s *Store) GetTranscript(ctx context.Context, audioFileID int64) (Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, audio_file_id, text, segments, diarized_text, diarized_segments, duration_seconds, updated_at
		 FROM transcripts WHERE audio_file_id = ?`, audioFileID)
	var t Transcript
	var segments, diarizedSegments, diarizedText sql.NullString
	var duration sql.NullFloat64
	err := row.Scan(&t.ID, &t.AudioFileID, &t.Text, &segments, &diarizedText, &diarizedSegments, &duration, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcript{}, ErrNotFound
		}
		return Transcript{}, fmt.Errorf("query transcript: %w", err)
	}
	if t.Segments, err = unmarshalSegments(segments); err != nil {
		return Transcript{}, err
	}
	if t.DiarizedSegments, err = unmarshalSegments(diarizedSegments); err != nil {
		return Transcript{}, err
	}
	t.DiarizedText = diarizedText.String
	if duration.Valid {
		t.DurationSeconds = &duration.Float64
	}
	return t, nil
}

// UpsertSessionNote writes the structured note for a session, overwriting in
// place when one exists.
func (s *Store) UpsertSessionNote(ctx context.Context, note SessionNote) error {
	keyPoints, err := marshalStrings(note.KeyPoints)
	if err != nil {
		return err
	}
	actionItems, err := marshalStrings(note.ActionItems)
	if err != nil {
		return err
	}
	riskFlags, err := marshalStrings(note.RiskFlags)
	if err != nil {
		return err
	}
	var summary any
	if note.Summary != nil {
		summary = *note.Summary
	}
	now := s.clock().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_notes(session_id, note_markdown, summary, key_points, action_items, risk_flags, model, version, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   note_markdown=excluded.note_markdown, summary=excluded.summary,
		   key_points=excluded.key_points, action_items=excluded.action_items,
		   risk_flags=excluded.risk_flags, model=excluded.model,
		   version=excluded.version, updated_at=excluded.updated_at`,
		note.SessionID, note.NoteMarkdown, summary, keyPoints, actionItems, riskFlags, note.Model, note.Version, now, now)
	if err != nil {
		return fmt.Errorf("upsert session note: %w", err)
	}
	return nil
}

// GetSessionNote returns the note for a session.
func (s *Store) GetSessionNote(ctx context.Context, sessionID int64) (SessionNote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, note_markdown, summary, key_points, action_items, risk_flags, model, version, updated_at
		 FROM session_notes WHERE session_id = ?`, sessionID)
	var n SessionNote
	var summary, keyPoints, actionItems, riskFlags sql.NullString
	err := row.Scan(&n.ID, &n.SessionID, &n.NoteMarkdown, &summary, &keyPoints, &actionItems, &riskFlags, &n.Model, &n.Version, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionNote{}, ErrNotFound
		}
		return SessionNote{}, fmt.Errorf("query session note: %w", err)
	}
	if summary.Valid {
		n.Summary = &summary.String
	}
	if n.KeyPoints, err = unmarshalStrings(keyPoints); err != nil {
		return SessionNote{}, err
	}
	if n.ActionItems, err = unmarshalStrings(actionItems); err != nil {
		return SessionNote{}, err
	}
	if n.RiskFlags, err = unmarshalStrings(riskFlags); err != nil {
		return SessionNote{}, err
	}
	return n, nil
}

// ListSessions returns a page of sessions newest first, with availability
// flags for transcript and notes.
func (s *Store) ListSessions(ctx context.Context, page, pageSize int) ([]SessionSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.status, a.file_key, a.content_type,
		        t.duration_seconds, t.id IS NOT NULL, n.id IS NOT NULL
		 FROM sessions s
		 JOIN audio_files a ON a.session_id = s.id
		 LEFT JOIN transcripts t ON t.audio_file_id = a.id
		 LEFT JOIN session_notes n ON n.session_id = s.id
		 ORDER BY s.created_at DESC
		 LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var items []SessionSummary
	for rows.Next() {
		var item SessionSummary
		var duration sql.NullFloat64
		if err := rows.Scan(&item.SessionID, &item.Title, &item.Status, &item.FileKey, &item.ContentType,
			&duration, &item.TranscriptAvailable, &item.NotesAvailable); err != nil {
			return nil, 0, err
		}
		if duration.Valid {
			item.DurationSeconds = &duration.Float64
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID           int64    `json:"session_id"`
	Title               string   `json:"title"`
	Status              string   `json:"status"`
	FileKey             string   `json:"file_key"`
	ContentType         string   `json:"content_type"`
	DurationSeconds     *float64 `json:"duration_seconds"`
	TranscriptAvailable bool     `json:"transcript_available"`
	NotesAvailable      bool     `json:"notes_available"`
}
