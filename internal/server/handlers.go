package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ambiware-labs/scribed/internal/catalog"
	"github.com/google/uuid"
)

const maxUploadBytes = 1 << 30 // 1 GiB

type uploadResponse struct {
	FileKey          string `json:"file_key"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
}

type sessionResponse struct {
	SessionID int64  `json:"session_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	FileKey   string `json:"file_key,omitempty"`
}

type processResponse struct {
	JobID     string `json:"job_id"`
	SessionID int64  `json:"session_id"`
	Status    string `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	audio, status, err := s.saveUpload(r, nil)
	if err != nil {
		s.error(w, status, err)
		return
	}
	s.json(w, http.StatusCreated, uploadResponse{
		FileKey:          audio.FileKey,
		OriginalFilename: audio.OriginalFilename,
		ContentType:      audio.ContentType,
	})
}

// handleCreateSession creates a session and attaches the uploaded audio in
// one request.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		s.error(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	sess, err := s.store.CreateSession(r.Context(), title)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	audio, status, err := s.saveUpload(r, &sess.ID)
	if err != nil {
		s.error(w, status, err)
		return
	}
	s.json(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		Title:     sess.Title,
		Status:    sess.Status,
		FileKey:   audio.FileKey,
	})
}

// saveUpload validates and persists the "audio" form file, then records it
// in the catalog. The request must already be parsed as multipart.
func (s *Server) saveUpload(r *http.Request, sessionID *int64) (catalog.AudioFile, int, error) {
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return catalog.AudioFile{}, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err)
		}
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return catalog.AudioFile{}, http.StatusBadRequest, errors.New("audio file is required")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !s.contentTypeAllowed(contentType) {
		return catalog.AudioFile{}, http.StatusUnsupportedMediaType,
			fmt.Errorf("content type %q not allowed", contentType)
	}

	fileKey := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	if err := s.writeFile(file, filepath.Join(s.storage.UploadDir, fileKey)); err != nil {
		return catalog.AudioFile{}, http.StatusInternalServerError, err
	}

	audio, err := s.store.CreateAudioFile(r.Context(), sessionID, fileKey, header.Filename, contentType)
	if err != nil {
		os.Remove(filepath.Join(s.storage.UploadDir, fileKey))
		if sessionID != nil {
			return catalog.AudioFile{}, http.StatusConflict,
				fmt.Errorf("session %d already has an audio file", *sessionID)
		}
		return catalog.AudioFile{}, http.StatusInternalServerError, err
	}
	return audio, 0, nil
}

func (s *Server) writeFile(src multipart.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

func (s *Server) contentTypeAllowed(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.storage.ContentTypes {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleProcessSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if _, _, err := s.store.GetSessionWithAudio(r.Context(), sessionID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.error(w, http.StatusNotFound, fmt.Errorf("session %d has no audio to process", sessionID))
			return
		}
		s.error(w, http.StatusInternalServerError, err)
		return
	}

	jobID, err := s.dispatcher.EnqueueProcessSession(r.Context(), sessionID)
	if err != nil {
		s.error(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := s.store.UpdateSessionStatus(r.Context(), sessionID, catalog.StatusProcessing); err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusAccepted, processResponse{
		JobID:     jobID,
		SessionID: sessionID,
		Status:    catalog.StatusProcessing,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	items, total, err := s.store.ListSessions(r.Context(), page, pageSize)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []catalog.SessionSummary{}
	}
	s.json(w, http.StatusOK, map[string]any{
		"sessions": items,
		"total":    total,
		"page":     page,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, audio, err := s.store.GetSessionWithAudio(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.error(w, http.StatusNotFound, fmt.Errorf("session %d not found", sessionID))
			return
		}
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"session_id":        sess.ID,
		"title":             sess.Title,
		"status":            sess.Status,
		"created_at":        sess.CreatedAt,
		"updated_at":        sess.UpdatedAt,
		"file_key":          audio.FileKey,
		"original_filename": audio.OriginalFilename,
		"content_type":      audio.ContentType,
	})
}

// handleGetTranscript serves the merged transcript. 404 until the merge has
// been committed, even while chunks are in flight.
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	_, audio, err := s.store.GetSessionWithAudio(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.error(w, http.StatusNotFound, fmt.Errorf("session %d not found", sessionID))
			return
		}
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	tr, err := s.store.GetTranscript(r.Context(), audio.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.error(w, http.StatusNotFound, fmt.Errorf("transcript not ready for session %d", sessionID))
			return
		}
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"session_id":        sessionID,
		"text":              tr.Text,
		"segments":          tr.Segments,
		"diarized_text":     tr.DiarizedText,
		"diarized_segments": tr.DiarizedSegments,
		"duration_seconds":  tr.DurationSeconds,
		"updated_at":        tr.UpdatedAt,
	})
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	note, err := s.store.GetSessionNote(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.error(w, http.StatusNotFound, fmt.Errorf("notes not ready for session %d", sessionID))
			return
		}
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"note_markdown": note.NoteMarkdown,
		"summary":       note.Summary,
		"key_points":    note.KeyPoints,
		"action_items":  note.ActionItems,
		"risk_flags":    note.RiskFlags,
		"model":         note.Model,
		"version":       note.Version,
		"updated_at":    note.UpdatedAt,
	})
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		s.error(w, http.StatusBadRequest, errors.New("invalid session id"))
		return 0, false
	}
	return id, true
}

func (s *Server) json(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) error(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("request failed", slog.String("error", err.Error()))
	}
	s.json(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
