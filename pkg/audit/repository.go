package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meridian-health/hms/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type auditLogModel struct {
	ID        int64          `gorm:"primaryKey;column:id"`
	Timestamp time.Time      `gorm:"column:timestamp;index"`
	Actor     string         `gorm:"column:actor"`
	IPAddress string         `gorm:"column:ip_address"`
	Method    string         `gorm:"column:method"`
	Action    string         `gorm:"column:action"`
	Entity    string         `gorm:"column:entity;index"`
	EntityID  string         `gorm:"column:entity_id"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&auditLogModel{})
}

func (r *Repository) Append(ctx context.Context, record models.AuditRecord) error {
	row := auditLogModel{
		Timestamp: record.Timestamp,
		Actor:     record.Actor,
		IPAddress: record.IPAddress,
		Method:    record.Method,
		Action:    record.Action,
		Entity:    record.Entity,
		EntityID:  record.EntityID,
	}
	if record.Metadata != nil {
		if data, err := json.Marshal(record.Metadata); err == nil {
			row.Metadata = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []auditLogModel
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.AuditRecord, 0, len(rows))
	for i := range rows {
		records = append(records, buildRecord(&rows[i]))
	}
	return records, nil
}

func buildRecord(row *auditLogModel) models.AuditRecord {
	record := models.AuditRecord{
		ID:        row.ID,
		Timestamp: row.Timestamp,
		Actor:     row.Actor,
		IPAddress: row.IPAddress,
		Method:    row.Method,
		Action:    row.Action,
		Entity:    row.Entity,
		EntityID:  row.EntityID,
	}
	if len(row.Metadata) > 0 {
		var payload map[string]interface{}
		_ = json.Unmarshal(row.Metadata, &payload)
		record.Metadata = payload
	}
	return record
}
