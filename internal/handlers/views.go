package handlers

import (
	"fmt"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/models"
)

type DocumentView struct {
	Type      string                `json:"type"`
	Location  string                `json:"location"`
	FileName  string                `json:"file_name"`
	Status    models.DocumentStatus `json:"status"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type RegistrationView struct {
	ID     uint `json:"id"`
	UserID uint `json:"user_id"`
	models.RegistrationFields
	Status        models.RegistrationStatus `json:"status"`
	ApprovedBy    []uint                    `json:"approved_by"`
	WebsiteStatus models.WebsiteStatus      `json:"website_status"`
	PaymentStatus models.PaymentStatus      `json:"payment_status"`
	SubmittedAt   *time.Time                `json:"submitted_at,omitempty"`
	Documents     []DocumentView            `json:"documents"`
	Version       uint                      `json:"version"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func registrationView(reg *models.Registration) RegistrationView {
	docs := make([]DocumentView, 0, len(reg.Documents))
	for _, d := range reg.Documents {
		docs = append(docs, DocumentView{
			Type:      d.Type,
			Location:  d.Location,
			FileName:  d.FileName,
			Status:    d.Status,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return RegistrationView{
		ID:                 reg.ID,
		UserID:             reg.UserID,
		RegistrationFields: reg.RegistrationFields,
		Status:             reg.Status,
		ApprovedBy:         reg.ApprovedBy(),
		WebsiteStatus:      reg.WebsiteStatus,
		PaymentStatus:      reg.PaymentStatus,
		SubmittedAt:        reg.SubmittedAt,
		Documents:          docs,
		Version:            reg.Version,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}
}

type AuditEntryView struct {
	ID         string           `json:"id"`
	AdminID    *uint            `json:"admin_id,omitempty"`
	ActorName  string           `json:"actor_name"`
	EntityID   uint             `json:"entity_id"`
	EntityType string           `json:"entity_type"`
	Action     string           `json:"action"`
	Target     string           `json:"target,omitempty"`
	Changes    []audit.Envelope `json:"changes,omitempty"`
	Details    string           `json:"details,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

func auditEntryViews(logs []models.AuditLog) ([]AuditEntryView, error) {
	views := make([]AuditEntryView, 0, len(logs))
	for _, l := range logs {
		changes, err := audit.DecodeChanges(l.Changes)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", l.EventID, err)
		}
		envelopes, err := changes.Envelopes()
		if err != nil {
			return nil, err
		}
		views = append(views, AuditEntryView{
			ID:         l.EventID.String(),
			AdminID:    l.AdminID,
			ActorName:  l.ActorName,
			EntityID:   l.EntityID,
			EntityType: l.EntityType,
			Action:     l.Action,
			Target:     l.Target,
			Changes:    envelopes,
			Details:    l.Details,
			Timestamp:  l.Timestamp,
		})
	}
	return views, nil
}

// ProfileInput is a partial update of the applicant-editable fields. Nil
// fields are left alone.
type ProfileInput struct {
	OrganizationName    *string                  `json:"organization_name,omitempty" maxLength:"200"`
	ContactName         *string                  `json:"contact_name,omitempty" maxLength:"200"`
	ContactEmail        *string                  `json:"contact_email,omitempty" maxLength:"320"`
	ContactPhone        *string                  `json:"contact_phone,omitempty" maxLength:"50"`
	Address             *models.Address          `json:"address,omitempty"`
	Type                *models.RegistrationType `json:"type,omitempty" enum:"Exhibitor,Sponsor,Both"`
	BusinessDescription *string                  `json:"business_description,omitempty"`
	ProductsOffered     *string                  `json:"products_offered,omitempty"`
	BoothCount          *int                     `json:"booth_count,omitempty" minimum:"0" maximum:"20"`
	ElectricityNeeded   *bool                    `json:"electricity_needed,omitempty"`
	LogisticsNotes      *string                  `json:"logistics_notes,omitempty"`
}

func (p ProfileInput) apply(f *models.RegistrationFields) error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("invalid registration type %q", *p.Type)
	}
	if p.BoothCount != nil && *p.BoothCount < 0 {
		return fmt.Errorf("booth count cannot be negative")
	}

	set(&f.OrganizationName, p.OrganizationName)
	set(&f.ContactName, p.ContactName)
	set(&f.ContactEmail, p.ContactEmail)
	set(&f.ContactPhone, p.ContactPhone)
	set(&f.Address, p.Address)
	set(&f.Type, p.Type)
	set(&f.BusinessDescription, p.BusinessDescription)
	set(&f.ProductsOffered, p.ProductsOffered)
	set(&f.BoothCount, p.BoothCount)
	set(&f.ElectricityNeeded, p.ElectricityNeeded)
	set(&f.LogisticsNotes, p.LogisticsNotes)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
