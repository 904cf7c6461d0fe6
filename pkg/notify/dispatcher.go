package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/kafka"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
)

const EventEmailRequested = "email.requested"

// Dispatcher publishes email tasks to the notification topic. Dispatch is
// fire-and-forget from the caller's point of view: the returned task id can
// be polled for the delivery outcome.
type Dispatcher struct {
	producer *kafka.Producer
	tasks    *TaskStore
	source   string
}

func NewDispatcher(producer *kafka.Producer, tasks *TaskStore, source string) *Dispatcher {
	return &Dispatcher{producer: producer, tasks: tasks, source: source}
}

func (d *Dispatcher) Dispatch(ctx context.Context, subject, body, recipient string) (string, error) {
	taskID := uuid.New().String()
	if err := d.tasks.Set(ctx, models.TaskStatus{TaskID: taskID, Status: models.TaskInProgress}); err != nil {
		logger.Log.WithError(err).WithField("task_id", taskID).Warn("Failed to record task status")
	}

	err := d.producer.PublishEvent(ctx, EventEmailRequested, d.source, map[string]interface{}{
		"task_id":   taskID,
		"subject":   subject,
		"body":      body,
		"recipient": recipient,
	})
	if err != nil {
		_ = d.tasks.Set(ctx, models.TaskStatus{TaskID: taskID, Status: models.TaskFailed})
		return "", err
	}
	return taskID, nil
}
