package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Pechenuxa1/EffectiveMobileTestTask/internal/jobs"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthAudit records one account event into audit_logs.
	TaskAuthAudit = "auth:audit"
	// auditMaxRetry bounds redelivery of audit entries.
	auditMaxRetry = 5
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewAuditTask builds an audit task for entry.
func NewAuditTask(entry shared.AuditLog) (*asynq.Task, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthAudit, body, asynq.Queue(QueueDefault), asynq.MaxRetry(auditMaxRetry)), nil
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AuditHandler consumes TaskAuthAudit tasks.
type AuditHandler struct {
	recorder AuditRecorder
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewAuditHandler constructs the handler. A nil metrics uses the process-wide
// collectors.
func NewAuditHandler(recorder AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &AuditHandler{recorder: recorder, logger: logger, metrics: metrics}
}

// Handle processes TaskAuthAudit tasks. Malformed payloads are not retried.
func (h *AuditHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskAuthAudit)
	var entry shared.AuditLog
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		h.logger.Warn("audit payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := h.recorder.Record(ctx, entry); err != nil {
		h.logger.Error("record audit", slog.String("action", entry.Action), slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Debug("audit recorded", slog.String("action", entry.Action), slog.Int64("actor_id", entry.ActorID))
	return tracker.End(nil)
}

// TaskHandler registers the handler with a Worker.
func (h *AuditHandler) TaskHandler() TaskHandler {
	return TaskHandler{Type: TaskAuthAudit, Handler: h.Handle}
}
