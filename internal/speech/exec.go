package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/mattn/go-shellwords"
)

type execTranscriber struct {
	cmd []string
	cfg config.SpeechConfig
}

// NewExecTranscriber wraps an external command that reads an audio file and
// prints a JSON transcription payload on stdout.
func NewExecTranscriber(cfg config.SpeechConfig) (Transcriber, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	return &execTranscriber{cmd: args, cfg: cfg}, nil
}

func (t *execTranscriber) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	args := append([]string{}, t.cmd...)
	base := args[0]
	cmdArgs := args[1:]
	cmdArgs = append(cmdArgs, "--audio", audioPath)
	if t.cfg.Model != "" {
		cmdArgs = append(cmdArgs, "--model", t.cfg.Model)
	}
	if t.cfg.NumSpeakers > 0 {
		cmdArgs = append(cmdArgs, "--num-speakers", fmt.Sprintf("%d", t.cfg.NumSpeakers))
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("speech command failed: %w: %s", err, stderr.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return Result{}, fmt.Errorf("decode speech response: %w", err)
	}
	return resultFromPayload(payload), nil
}
