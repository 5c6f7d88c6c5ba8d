package notes

import (
	"context"
	"time"
)

type mockGenerator struct{}

func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return `{"summary":"Mock summary of the session.","key_points":["mock point"],"action_items":["mock action"],"risk_flags":[],"note_markdown":"# Session Notes\n\nMock summary of the session."}`, nil
}
