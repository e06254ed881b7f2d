package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/models"
	"gorm.io/gorm"
)

const DefaultListLimit = 100

// Writer persists audit entries with gorm. It only ever inserts.
type Writer struct {
	db  *gorm.DB
	now func() time.Time
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db, now: time.Now}
}

// Record inserts the entry, assigning the timestamp when the caller did not.
func (w *Writer) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = w.now()
	}
	row, err := e.model()
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if err := w.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   uint
	Action     string
	Limit      int
}

// List returns matching entries newest first.
func (w *Writer) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := w.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var logs []models.AuditLog
	if err := q.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return logs, nil
}
