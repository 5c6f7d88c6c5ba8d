package notes

import (
	"context"
	"fmt"

	"github.com/ambiware-labs/scribed/internal/config"
)

// Generator defines a pluggable language model backend for note writing.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the backend selected by config.
func NewGenerator(cfg config.NotesConfig) (Generator, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockGenerator(), nil
	case "ollama":
		return NewOllamaGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notes mode %q", cfg.Mode)
	}
}
