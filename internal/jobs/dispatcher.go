package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ambiware-labs/scribed/internal/bus"
	"github.com/ambiware-labs/scribed/internal/protocol"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Dispatcher enqueues session processing jobs. It is injected into callers
// so nothing outside this package touches the bus for job submission.
type Dispatcher interface {
	EnqueueProcessSession(ctx context.Context, sessionID int64) (string, error)
}

// BusDispatcher publishes jobs onto a JetStream work queue.
type BusDispatcher struct {
	bus *bus.Client
	log *slog.Logger
}

// NewBusDispatcher ensures the sessions stream exists and returns a
// dispatcher bound to it.
func NewBusDispatcher(busClient *bus.Client, log *slog.Logger) (*BusDispatcher, error) {
	if busClient == nil {
		return nil, errors.New("dispatcher requires bus client")
	}
	js := busClient.JetStream()
	_, err := js.StreamInfo(protocol.StreamSessions)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      protocol.StreamSessions,
			Subjects:  []string{protocol.SubjectSessionProcess},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ensure sessions stream: %w", err)
	}
	return &BusDispatcher{
		bus: busClient,
		log: log.With(slog.String("component", "jobs.dispatcher")),
	}, nil
}

func (d *BusDispatcher) EnqueueProcessSession(ctx context.Context, sessionID int64) (string, error) {
	job := protocol.ProcessSessionJob{
		JobID:       uuid.NewString(),
		SessionID:   sessionID,
		RequestedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if _, err := d.bus.JetStream().Publish(protocol.SubjectSessionProcess, payload, nats.Context(ctx)); err != nil {
		return "", fmt.Errorf("enqueue session %d: %w", sessionID, err)
	}
	d.log.Info("session job enqueued",
		slog.String("job_id", job.JobID),
		slog.Int64("session_id", sessionID))
	return job.JobID, nil
}
