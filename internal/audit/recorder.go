// Package audit records who changed what and serves the trail back.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
)

// Enqueuer accepts audit jobs; *queue.Queue implements it.
type Enqueuer interface {
	EnqueueAudit(ctx context.Context, payload queue.AuditPayload) error
}

// Recorder turns mutations into audit jobs. Recording never fails the caller:
// a job that cannot be queued is logged and dropped.
type Recorder struct {
	queue  Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder that enqueues onto q.
func NewRecorder(q Enqueuer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{queue: q, logger: logger, now: time.Now}
}

// Record enqueues one audit entry.
func (r *Recorder) Record(ctx context.Context, actor *models.User, action, resource string, resourceID uuid.UUID, detail interface{}) {
	p := queue.AuditPayload{
		ID:       uuid.New(),
		Action:   action,
		Resource: resource,
		At:       r.now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		p.ActorID = &id
	}
	if resourceID != uuid.Nil {
		p.ResourceID = &resourceID
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			r.logger.Warn("audit detail not encodable", zap.String("action", action), zap.Error(err))
		} else {
			p.Detail = raw
		}
	}
	// the request may finish before redis answers
	ctx = context.WithoutCancel(ctx)
	if err := r.queue.EnqueueAudit(ctx, p); err != nil {
		r.logger.Error("enqueue audit entry failed",
			zap.String("resource", resource), zap.String("action", action), zap.Error(err))
	}
}
