package models

import (
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "Pending"
	DocumentApproved DocumentStatus = "Approved"
	DocumentRejected DocumentStatus = "Rejected"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentApproved, DocumentRejected:
		return true
	}
	return false
}

// Document is an uploaded compliance file. Location points into the blob
// store; the bytes never pass through this service.
type Document struct {
	gorm.Model
	RegistrationID uint           `json:"registration_id" gorm:"uniqueIndex:idx_registration_doc_type"`
	Type           string         `json:"type" gorm:"uniqueIndex:idx_registration_doc_type"`
	Location       string         `json:"location"`
	FileName       string         `json:"file_name"`
	Status         DocumentStatus `json:"status"`
}
