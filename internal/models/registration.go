package models

import (
	"time"

	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	StatusInProgress         RegistrationStatus = "In Progress"
	StatusPending            RegistrationStatus = "Pending"
	StatusWaitingForApproval RegistrationStatus = "Waiting for Approval"
	StatusApproved           RegistrationStatus = "Approved"
	StatusDeclined           RegistrationStatus = "Declined"
)

// Reviewable reports whether an admin may request the status.
func (s RegistrationStatus) Reviewable() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

type RegistrationType string

const (
	TypeExhibitor RegistrationType = "Exhibitor"
	TypeSponsor   RegistrationType = "Sponsor"
	TypeBoth      RegistrationType = "Both"
)

func (t RegistrationType) Valid() bool {
	switch t {
	case TypeExhibitor, TypeSponsor, TypeBoth:
		return true
	}
	return false
}

type WebsiteStatus string

const (
	WebsitePending WebsiteStatus = "Pending"
	WebsiteAdded   WebsiteStatus = "Added"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "Unpaid"
	PaymentPaid   PaymentStatus = "Paid"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// RegistrationFields holds everything the applicant fills in.
type RegistrationFields struct {
	OrganizationName    string           `json:"organization_name"`
	ContactName         string           `json:"contact_name"`
	ContactEmail        string           `json:"contact_email"`
	ContactPhone        string           `json:"contact_phone"`
	Address             Address          `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Type                RegistrationType `json:"type"`
	BusinessDescription string           `json:"business_description"`
	ProductsOffered     string           `json:"products_offered"`
	BoothCount          int              `json:"booth_count"`
	ElectricityNeeded   bool             `json:"electricity_needed"`
	LogisticsNotes      string           `json:"logistics_notes"`
}

type Registration struct {
	gorm.Model
	UserID             uint `json:"user_id" gorm:"uniqueIndex"`
	User               User `json:"-" gorm:"foreignKey:UserID"`
	RegistrationFields `gorm:"embedded"`
	Status             RegistrationStatus     `json:"status" gorm:"index"`
	WebsiteStatus      WebsiteStatus          `json:"website_status"`
	PaymentStatus      PaymentStatus          `json:"payment_status"`
	SubmittedAt        *time.Time             `json:"submitted_at"`
	Version            uint                   `json:"version" gorm:"not null;default:0"`
	Approvals          []RegistrationApproval `json:"-"`
	Documents          []Document             `json:"documents"`
}

// RegistrationApproval is one admin vote in the current approval cycle.
type RegistrationApproval struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	RegistrationID uint      `json:"registration_id" gorm:"uniqueIndex:idx_registration_admin"`
	AdminID        uint      `json:"admin_id" gorm:"uniqueIndex:idx_registration_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApprovedBy lists the voting admin ids in the order the votes were cast.
func (r *Registration) ApprovedBy() []uint {
	ids := make([]uint, 0, len(r.Approvals))
	for _, a := range r.Approvals {
		ids = append(ids, a.AdminID)
	}
	return ids
}

// SetApprovedBy replaces the in-memory approvals with the given admin ids.
func (r *Registration) SetApprovedBy(ids []uint) {
	approvals := make([]RegistrationApproval, 0, len(ids))
	for _, id := range ids {
		approvals = append(approvals, RegistrationApproval{RegistrationID: r.ID, AdminID: id})
	}
	r.Approvals = approvals
}

// Document finds the document of the given type.
func (r *Registration) Document(docType string) *Document {
	for i := range r.Documents {
		if r.Documents[i].Type == docType {
			return &r.Documents[i]
		}
	}
	return nil
}
