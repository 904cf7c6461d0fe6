package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
)

func init() {
	logger.Init()
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_, _, recipient string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient)
	return nil
}

type fakeStatusStore struct {
	statuses []models.TaskStatus
}

func (f *fakeStatusStore) Set(_ context.Context, status models.TaskStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func emailEvent(taskID, recipient string) models.Event {
	return models.Event{
		ID:   "evt-1",
		Type: EventEmailRequested,
		Data: map[string]interface{}{
			"task_id":   taskID,
			"subject":   "Visit registered",
			"body":      "Hello",
			"recipient": recipient,
		},
	}
}

func TestWorkerHandleSuccess(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStatusStore{}
	worker := NewWorker(sender, store)

	if err := worker.Handle(context.Background(), emailEvent("task-1", "asha@example.com")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "asha@example.com" {
		t.Fatalf("expected one delivery, got %v", sender.sent)
	}
	if len(store.statuses) != 1 {
		t.Fatalf("expected one status update, got %d", len(store.statuses))
	}
	status := store.statuses[0]
	if status.TaskID != "task-1" || status.Status != models.TaskCompleted {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Result != "sent to asha@example.com" {
		t.Fatalf("unexpected result %q", status.Result)
	}
}

func TestWorkerHandleSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp refused")}
	store := &fakeStatusStore{}
	worker := NewWorker(sender, store)

	if err := worker.Handle(context.Background(), emailEvent("task-2", "asha@example.com")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.statuses) != 1 || store.statuses[0].Status != models.TaskFailed {
		t.Fatalf("expected failed status, got %v", store.statuses)
	}
}

func TestWorkerIgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStatusStore{}
	worker := NewWorker(sender, store)

	event := models.Event{ID: "evt-2", Type: "patient.created"}
	if err := worker.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 0 || len(store.statuses) != 0 {
		t.Fatal("unrelated events must not be processed")
	}
}

func TestWorkerDropsMalformedEvents(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStatusStore{}
	worker := NewWorker(sender, store)

	event := models.Event{ID: "evt-3", Type: EventEmailRequested, Data: map[string]interface{}{"subject": "x"}}
	if err := worker.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 0 || len(store.statuses) != 0 {
		t.Fatal("malformed events must be dropped")
	}
}
