package audit

import (
	"context"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/models"
)

const (
	EntityRegistration = "Registration"
	EntityUser         = "User"
)

const (
	ActionApproveRegistration  = "APPROVE_REGISTRATION"
	ActionDeclineRegistration  = "DECLINE_REGISTRATION"
	ActionUpdateStatus         = "UPDATE_STATUS"
	ActionUpdateRegistration   = "UPDATE_REGISTRATION"
	ActionUpdateDocumentStatus = "UPDATE_DOCUMENT_STATUS"
	ActionUpdateWebsiteStatus  = "UPDATE_WEBSITE_STATUS"
	ActionUpdatePaymentStatus  = "UPDATE_PAYMENT_STATUS"
	ActionUpdateUserRole       = "UPDATE_USER_ROLE"
)

// Entry describes one administrative action. AdminID is nil for actions
// taken by tooling rather than a signed-in admin.
type Entry struct {
	AdminID    *uint
	ActorName  string
	EntityID   uint
	EntityType string
	Action     string
	Target     string
	Changes    ChangeSet
	Details    string
	Timestamp  time.Time
}

// Recorder appends audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

func (e Entry) model() (*models.AuditLog, error) {
	changes, err := e.Changes.JSON()
	if err != nil {
		return nil, err
	}
	return &models.AuditLog{
		AdminID:    e.AdminID,
		ActorName:  e.ActorName,
		EntityID:   e.EntityID,
		EntityType: e.EntityType,
		Action:     e.Action,
		Target:     e.Target,
		Changes:    changes,
		Details:    e.Details,
		Timestamp:  e.Timestamp,
	}, nil
}
