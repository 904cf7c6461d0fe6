package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
)

// Sink persists audit records. *Repository is the production implementation.
type Sink interface {
	Append(ctx context.Context, record models.AuditRecord) error
}

// Recorder receives mutation events for an explicit list of tracked entity
// kinds. The orchestration layer calls Created/Deleted after each mutating
// operation; there is no implicit hook registration.
type Recorder struct {
	sink    Sink
	tracked map[string]bool
}

func NewRecorder(sink Sink, trackedEntities []string) *Recorder {
	tracked := make(map[string]bool, len(trackedEntities))
	for _, entity := range trackedEntities {
		tracked[entity] = true
	}
	return &Recorder{sink: sink, tracked: tracked}
}

// DefaultTrackedEntities lists every entity kind whose create/delete is
// audit-logged.
func DefaultTrackedEntities() []string {
	return []string{"hospital", "department", "doctor", "patient", "visit", "user"}
}

func (r *Recorder) Created(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{}) {
	r.notify(ctx, actx, fmt.Sprintf("Saved %s instance - %s", entity, entityID), entity, entityID, metadata)
}

func (r *Recorder) Deleted(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{}) {
	r.notify(ctx, actx, fmt.Sprintf("Deleted %s instance - %s", entity, entityID), entity, entityID, metadata)
}

// notify is best-effort: a failing sink never aborts the triggering
// operation.
func (r *Recorder) notify(ctx context.Context, actx models.AuditContext, action, entity, entityID string, metadata map[string]interface{}) {
	if !r.tracked[entity] {
		return
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	record := models.AuditRecord{
		Timestamp: time.Now().UTC(),
		Actor:     actx.Actor,
		IPAddress: actx.IPAddress,
		Method:    actx.Method,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Metadata:  metadata,
	}
	if err := r.sink.Append(ctx, record); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"entity":    entity,
			"entity_id": entityID,
		}).Error("Failed to append audit record")
	}
}
