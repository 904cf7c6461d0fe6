package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
)

func init() {
	logger.Init()
}

type fakeSink struct {
	records []models.AuditRecord
	err     error
}

func (f *fakeSink) Append(_ context.Context, record models.AuditRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func TestRecorderTracksConfiguredEntities(t *testing.T) {
	sink := &fakeSink{}
	recorder := NewRecorder(sink, DefaultTrackedEntities())
	actx := models.AuditContext{Actor: "staff@example.com", IPAddress: "10.0.0.1", Method: "POST"}

	recorder.Created(context.Background(), actx, "patient", "p-1", map[string]interface{}{"name": "Asha"})
	recorder.Deleted(context.Background(), actx, "visit", "v-1", nil)
	recorder.Created(context.Background(), actx, "session", "s-1", nil)

	if len(sink.records) != 2 {
		t.Fatalf("expected two records, got %d", len(sink.records))
	}
	created := sink.records[0]
	if created.Actor != "staff@example.com" || created.IPAddress != "10.0.0.1" || created.Method != "POST" {
		t.Fatalf("request identity not carried, got %+v", created)
	}
	if !strings.HasPrefix(created.Action, "Saved patient instance") {
		t.Fatalf("unexpected action %q", created.Action)
	}
	if created.Metadata["name"] != "Asha" {
		t.Fatalf("metadata not carried, got %v", created.Metadata)
	}
	if !strings.HasPrefix(sink.records[1].Action, "Deleted visit instance") {
		t.Fatalf("unexpected action %q", sink.records[1].Action)
	}
	if sink.records[1].Metadata == nil {
		t.Fatal("nil metadata must be stored as an empty map")
	}
}

func TestRecorderToleratesSinkFailure(t *testing.T) {
	recorder := NewRecorder(&fakeSink{err: errors.New("db down")}, DefaultTrackedEntities())

	// Must not panic or propagate.
	recorder.Created(context.Background(), models.AuditContext{}, "patient", "p-1", nil)
}
