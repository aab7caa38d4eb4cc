package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
)

// AuditWriter persists audit entries; *audit.Repository implements it.
type AuditWriter interface {
	Insert(ctx context.Context, e *models.AuditLog) error
}

// JobQueue is the part of *queue.Queue the processor drives.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AuditProcessor drains audit jobs into the audit_logs table.
type AuditProcessor struct {
	store   AuditWriter
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
}

// NewAuditProcessor creates an audit job processor.
func NewAuditProcessor(store AuditWriter, q JobQueue, logger *zap.Logger) *AuditProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditProcessor{store: store, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one audit job.
func (p *AuditProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAudit {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AuditPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	entry := &models.AuditLog{
		ID:         payload.ID,
		ActorID:    payload.ActorID,
		Action:     payload.Action,
		Resource:   payload.Resource,
		ResourceID: payload.ResourceID,
		Detail:     payload.Detail,
		CreatedAt:  payload.At,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = job.CreatedAt
	}
	if err := p.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	p.logger.Debug("audit entry stored", zap.String("id", entry.ID.String()),
		zap.String("resource", entry.Resource), zap.String("action", entry.Action))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns
// when ctx is done.
func (p *AuditProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit worker stopping")
			return nil
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *AuditProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
