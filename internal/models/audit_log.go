package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog rows are inserted once and never updated.
type AuditLog struct {
	ID         uint           `json:"-" gorm:"primaryKey"`
	EventID    uuid.UUID      `json:"id" gorm:"type:text;uniqueIndex"`
	AdminID    *uint          `json:"admin_id,omitempty" gorm:"index"`
	ActorName  string         `json:"actor_name"`
	EntityID   uint           `json:"entity_id" gorm:"index:idx_audit_entity"`
	EntityType string         `json:"entity_type" gorm:"index:idx_audit_entity"`
	Action     string         `json:"action"`
	Target     string         `json:"target,omitempty"`
	Changes    datatypes.JSON `json:"changes,omitempty"`
	Details    string         `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp" gorm:"index"`
}

func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.EventID == uuid.Nil {
		l.EventID = uuid.New()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	return nil
}

// BeforeUpdate keeps audit rows append-only.
func (l *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (l *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
