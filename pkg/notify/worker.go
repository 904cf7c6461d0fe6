package notify

import (
	"context"
	"fmt"

	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/observability/metrics"
)

// Sender delivers a single message. *Mailer is the production
// implementation.
type Sender interface {
	Send(subject, body, recipient string) error
}

// StatusStore records task outcomes. *TaskStore is the production
// implementation.
type StatusStore interface {
	Set(ctx context.Context, status models.TaskStatus) error
}

// Worker consumes email.requested events, attempts delivery, and records
// the outcome in the task store. A failed delivery is terminal for the task;
// the event is not redelivered.
type Worker struct {
	sender Sender
	tasks  StatusStore
}

func NewWorker(sender Sender, tasks StatusStore) *Worker {
	return &Worker{sender: sender, tasks: tasks}
}

func (w *Worker) Handle(ctx context.Context, event models.Event) error {
	if event.Type != EventEmailRequested {
		return nil
	}
	task := taskFromEvent(event)
	if task.TaskID == "" || task.Recipient == "" {
		logger.Log.WithField("event_id", event.ID).Warn("Malformed email task event")
		return nil
	}

	if err := w.sender.Send(task.Subject, task.Body, task.Recipient); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"task_id":   task.TaskID,
			"recipient": task.Recipient,
		}).Error("Failed to send email")
		metrics.EmailFailed()
		return w.tasks.Set(ctx, models.TaskStatus{TaskID: task.TaskID, Status: models.TaskFailed})
	}

	metrics.EmailSent()
	logger.Log.WithFields(map[string]interface{}{
		"task_id":   task.TaskID,
		"recipient": task.Recipient,
	}).Info("Email sent")
	return w.tasks.Set(ctx, models.TaskStatus{
		TaskID: task.TaskID,
		Status: models.TaskCompleted,
		Result: fmt.Sprintf("sent to %s", task.Recipient),
	})
}

func taskFromEvent(event models.Event) models.EmailTask {
	return models.EmailTask{
		TaskID:    stringField(event.Data, "task_id"),
		Subject:   stringField(event.Data, "subject"),
		Body:      stringField(event.Data, "body"),
		Recipient: stringField(event.Data, "recipient"),
	}
}

func stringField(data map[string]interface{}, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}
