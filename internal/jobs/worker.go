package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ambiware-labs/scribed/internal/bus"
	"github.com/ambiware-labs/scribed/internal/pipeline"
	"github.com/ambiware-labs/scribed/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Processor runs the transcription pipeline for one session.
type Processor interface {
	ProcessSession(ctx context.Context, sessionID int64) (pipeline.Outcome, error)
}

// Worker consumes session jobs from the work queue and runs them through the
// pipeline. Transient failures are redelivered up to the configured limit;
// permanent ones are terminated immediately.
type Worker struct {
	bus        *bus.Client
	processor  Processor
	log        *slog.Logger
	maxDeliver int
	ackWait    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sub    *nats.Subscription
}

func NewWorker(busClient *bus.Client, processor Processor, maxDeliver int, log *slog.Logger) (*Worker, error) {
	if busClient == nil {
		return nil, errors.New("worker requires bus client")
	}
	if processor == nil {
		return nil, errors.New("worker requires processor")
	}
	if maxDeliver < 1 {
		maxDeliver = 1
	}
	return &Worker{
		bus:        busClient,
		processor:  processor,
		log:        log.With(slog.String("component", "jobs.worker")),
		maxDeliver: maxDeliver,
		ackWait:    30 * time.Minute,
	}, nil
}

// Start subscribes to the work queue. Jobs run one at a time per worker;
// chunk-level concurrency lives inside the pipeline.
func (w *Worker) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	sub, err := w.bus.JetStream().QueueSubscribe(
		protocol.SubjectSessionProcess,
		protocol.QueueWorkers,
		w.handle,
		nats.ManualAck(),
		nats.AckWait(w.ackWait),
		nats.MaxDeliver(w.maxDeliver),
		nats.Durable(protocol.QueueWorkers),
		nats.BindStream(protocol.StreamSessions),
	)
	if err != nil {
		w.cancel()
		return err
	}
	w.sub = sub
	w.log.Info("worker subscribed", slog.String("subject", protocol.SubjectSessionProcess))
	return nil
}

func (w *Worker) handle(msg *nats.Msg) {
	w.wg.Add(1)
	defer w.wg.Done()

	var job protocol.ProcessSessionJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.log.Error("malformed job payload", slog.String("error", err.Error()))
		msg.Term()
		return
	}

	log := w.log.With(
		slog.String("job_id", job.JobID),
		slog.Int64("session_id", job.SessionID))
	log.Info("job started")

	outcome, err := w.processor.ProcessSession(w.ctx, job.SessionID)
	if err != nil {
		log.Error("job failed", slog.String("error", err.Error()))
		if pipeline.IsTransient(err) {
			delay := redeliverBase
			if meta, metaErr := msg.Metadata(); metaErr == nil {
				delay = redeliverDelay(meta.NumDelivered)
			}
			msg.NakWithDelay(delay)
		} else {
			msg.Term()
		}
		w.publishResult(job, outcome, err)
		return
	}

	msg.Ack()
	log.Info("job finished",
		slog.String("status", outcome.Status),
		slog.String("notes_status", outcome.NotesStatus))
	w.publishResult(job, outcome, nil)
}

const (
	redeliverBase = 2 * time.Second
	redeliverMax  = 2 * time.Minute
)

// redeliverDelay grows exponentially with the delivery count and adds up to
// 50% jitter so retrying workers do not fire in step.
func redeliverDelay(numDelivered uint64) time.Duration {
	if numDelivered < 1 {
		numDelivered = 1
	}
	delay := redeliverMax
	if shift := numDelivered - 1; shift < 7 {
		delay = redeliverBase << shift
		if delay > redeliverMax {
			delay = redeliverMax
		}
	}
	return delay + rand.N(delay/2)
}

// publishResult broadcasts the run outcome. Best effort: result listeners
// are observers, not part of the state machine.
func (w *Worker) publishResult(job protocol.ProcessSessionJob, outcome pipeline.Outcome, runErr error) {
	result := protocol.ProcessSessionResult{
		JobID:        job.JobID,
		SessionID:    job.SessionID,
		Status:       outcome.Status,
		NotesStatus:  outcome.NotesStatus,
		FailedChunks: chunkFailures(outcome.FailedChunks),
		FinishedAt:   time.Now().UTC(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := w.bus.Conn().Publish(protocol.SubjectSessionResult, payload); err != nil {
		w.log.Warn("publish result failed", slog.String("error", err.Error()))
	}
}

func chunkFailures(failures []pipeline.ChunkFailure) []protocol.ChunkFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]protocol.ChunkFailure, len(failures))
	for i, f := range failures {
		out[i] = protocol.ChunkFailure{Index: f.Index, Reason: f.Reason}
	}
	return out
}

// Close drains the subscription and waits for the in-flight job.
func (w *Worker) Close() {
	if w == nil {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.sub != nil {
		_ = w.sub.Drain()
	}
	w.wg.Wait()
}
