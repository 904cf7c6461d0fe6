package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

var ErrTaskNotFound = errors.New("notification task not found")

// TaskStore keeps per-task delivery status so dispatch results can be
// queried independently of the fire-and-forget send path.
type TaskStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTaskStore(client *redis.Client, ttl time.Duration) *TaskStore {
	return &TaskStore{client: client, ttl: ttl}
}

func (t *TaskStore) Set(ctx context.Context, status models.TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return t.client.Set(ctx, taskKey(status.TaskID), data, t.ttl).Err()
}

func (t *TaskStore) Get(ctx context.Context, taskID string) (models.TaskStatus, error) {
	data, err := t.client.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TaskStatus{}, ErrTaskNotFound
		}
		return models.TaskStatus{}, err
	}
	var status models.TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return models.TaskStatus{}, err
	}
	return status, nil
}

func taskKey(taskID string) string {
	return fmt.Sprintf("notify_task_%s", taskID)
}
