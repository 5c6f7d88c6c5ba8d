package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/google/uuid"
)

// Indexer pushes note embeddings into a Qdrant collection so sessions can be
// searched semantically. Indexing is best effort: failures are logged and
// never fail the pipeline.
type Indexer struct {
	cfg    config.SearchConfig
	client *http.Client
	log    *slog.Logger

	mu      sync.Mutex
	ensured bool
}

func NewIndexer(cfg config.SearchConfig, log *slog.Logger) *Indexer {
	return &Indexer{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With(slog.String("component", "search")),
	}
}

// Enabled reports whether indexing is configured.
func (ix *Indexer) Enabled() bool {
	return ix != nil && ix.cfg.Enabled
}

// IndexNote embeds the note text and upserts it keyed by session. Errors are
// logged and swallowed.
func (ix *Indexer) IndexNote(ctx context.Context, sessionID int64, title, noteText string) {
	ix.index(ctx, "note", sessionID, title, noteText)
}

// IndexTranscript embeds the merged transcript text the same way.
func (ix *Indexer) IndexTranscript(ctx context.Context, sessionID int64, title, text string) {
	ix.index(ctx, "transcript", sessionID, title, text)
}

func (ix *Indexer) index(ctx context.Context, kind string, sessionID int64, title, text string) {
	if !ix.Enabled() {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := ix.indexDocument(ctx, kind, sessionID, title, text); err != nil {
		ix.log.Warn("indexing failed",
			slog.String("kind", kind),
			slog.Int64("session_id", sessionID),
			slog.String("error", err.Error()))
		return
	}
	ix.log.Debug("document indexed",
		slog.String("kind", kind),
		slog.Int64("session_id", sessionID))
}

func (ix *Indexer) indexDocument(ctx context.Context, kind string, sessionID int64, title, text string) error {
	vector, err := ix.embed(ctx, text)
	if err != nil {
		return err
	}
	if err := ix.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}
	return ix.upsert(ctx, kind, sessionID, title, text, vector)
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (ix *Indexer) embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: ix.cfg.EmbeddingModel, Prompt: text})
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(ix.cfg.EmbeddingEndpoint, "/") + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service returned status %s", resp.Status)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}
	return decoded.Embedding, nil
}

// ensureCollection creates the Qdrant collection once per process. Creation
// is idempotent on the Qdrant side.
func (ix *Indexer) ensureCollection(ctx context.Context, dimensions int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ensured {
		return nil
	}

	payload := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/collections/%s", strings.TrimRight(ix.cfg.QdrantURL, "/"), ix.cfg.Collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ix.setHeaders(req)

	resp, err := ix.client.Do(req)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	defer resp.Body.Close()
	// 409 means the collection already exists.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("create collection returned status %s: %s", resp.Status, msg)
	}
	ix.ensured = true
	return nil
}

func (ix *Indexer) upsert(ctx context.Context, kind string, sessionID int64, title, text string, vector []float64) error {
	point := map[string]any{
		"points": []map[string]any{{
			"id":     uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("session-%d-%s", sessionID, kind))).String(),
			"vector": vector,
			"payload": map[string]any{
				"session_id": sessionID,
				"kind":       kind,
				"title":      title,
				"text":       text,
			},
		}},
	}
	body, err := json.Marshal(point)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", strings.TrimRight(ix.cfg.QdrantURL, "/"), ix.cfg.Collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ix.setHeaders(req)

	resp, err := ix.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upsert returned status %s: %s", resp.Status, msg)
	}
	return nil
}

func (ix *Indexer) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if ix.cfg.QdrantAPIKey != "" {
		req.Header.Set("api-key", ix.cfg.QdrantAPIKey)
	}
}
