package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"content-analysis-platform/internal/logger"
	"content-analysis-platform/services"
)

const TaskIngestContent = "content:ingest"

type IngestPayload struct {
	Text     string                 `json:"text"`
	TenantID string                 `json:"tenant_id"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewIngestTask builds the queued form of an ingest request. Transient
// pipeline failures are retried; the task as a whole times out rather
// than hanging a worker slot on a stuck upstream.
func NewIngestTask(text, tenantID string, metadata map[string]interface{}) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		Text:     text,
		TenantID: tenantID,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestContent,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor runs queued tasks against the same pipeline the
// synchronous API uses.
type TaskProcessor struct {
	pipeline *services.ContentPipeline
}

func NewTaskProcessor(pipeline *services.ContentPipeline) *TaskProcessor {
	return &TaskProcessor{pipeline: pipeline}
}

func (p *TaskProcessor) IngestContent(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	resp, err := p.pipeline.Ingest(ctx, payload.Text, payload.TenantID, payload.Metadata)
	if err != nil {
		return err // will retry
	}

	logger.Info("Async ingest completed", "id", resp.ID, "tenant_id", payload.TenantID)
	return nil
}
