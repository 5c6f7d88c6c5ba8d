package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ambiware-labs/scribed/internal/config"
)

// Chunk is one segment of the source audio on disk. Start and End are the
// nominal boundaries derived from the segment duration; the final chunk may
// be shorter than End-Start.
type Chunk struct {
	Index        int
	Path         string
	StartSeconds float64
	EndSeconds   float64
}

// Segmenter splits audio files into fixed-duration chunks with ffmpeg.
type Segmenter struct {
	binary       string
	chunkSeconds int
	log          *slog.Logger
}

// New builds a segmenter from pipeline config. The requested chunk duration
// is clamped to the configured bounds.
func New(cfg config.PipelineConfig, log *slog.Logger) *Segmenter {
	seconds := cfg.ChunkSeconds
	if seconds < cfg.MinChunkSeconds {
		seconds = cfg.MinChunkSeconds
	}
	if seconds > cfg.MaxChunkSeconds {
		seconds = cfg.MaxChunkSeconds
	}
	return &Segmenter{
		binary:       "ffmpeg",
		chunkSeconds: seconds,
		log:          log.With(slog.String("component", "segmenter")),
	}
}

// ChunkSeconds reports the effective segment duration.
func (s *Segmenter) ChunkSeconds() int { return s.chunkSeconds }

func (s *Segmenter) args(inputPath, outputPattern string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", s.chunkSeconds),
		"-reset_timestamps", "1",
		"-c", "copy",
		outputPattern,
	}
}

// Split segments inputPath into outputDir, producing chunk_00000<ext>,
// chunk_00001<ext>, and so on. It fails if ffmpeg is missing, exits
// non-zero, or produces no chunks.
func (s *Segmenter) Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error) {
	if _, err := exec.LookPath(s.binary); err != nil {
		return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	ext := filepath.Ext(inputPath)
	if ext == "" {
		ext = ".mp3"
	}
	pattern := filepath.Join(outputDir, "chunk_%05d"+ext)

	cmd := exec.CommandContext(ctx, s.binary, s.args(inputPath, pattern)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg segment failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	chunks, err := s.list(outputDir, ext)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no chunks for %s", inputPath)
	}

	s.log.Info("audio segmented",
		slog.String("input", inputPath),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_seconds", s.chunkSeconds))
	return chunks, nil
}

// list collects chunk files in lexical order, which matches chunk order
// because the index is zero padded.
func (s *Segmenter) list(dir, ext string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunk dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "chunk_") || !strings.HasSuffix(name, ext) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	chunks := make([]Chunk, 0, len(names))
	for i, name := range names {
		chunks = append(chunks, Chunk{
			Index:        i,
			Path:         filepath.Join(dir, name),
			StartSeconds: float64(i * s.chunkSeconds),
			EndSeconds:   float64((i + 1) * s.chunkSeconds),
		})
	}
	return chunks, nil
}
