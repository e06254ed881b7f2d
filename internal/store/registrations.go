package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/approval"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/sentinel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileColumns are the columns an applicant or a generic admin edit may write.
var profileColumns = []string{
	"organization_name",
	"contact_name",
	"contact_email",
	"contact_phone",
	"address_street",
	"address_city",
	"address_state",
	"address_postal_code",
	"type",
	"business_description",
	"products_offered",
	"booth_count",
	"electricity_needed",
	"logistics_notes",
	"updated_at",
}

type RegistrationStore struct {
	db *gorm.DB
}

func NewRegistrationStore(db *gorm.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

func (s *RegistrationStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (s *RegistrationStore) FindRegistration(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := s.withRelations(ctx).First(&reg, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (s *RegistrationStore) FindByUser(ctx context.Context, userID uint) (*models.Registration, error) {
	if userID == 0 {
		return nil, sentinel.ErrNotFound
	}
	var reg models.Registration
	if err := s.withRelations(ctx).Where("user_id = ?", userID).First(&reg).Error; err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

// List returns registrations, optionally filtered by status, oldest first.
func (s *RegistrationStore) List(ctx context.Context, statuses ...models.RegistrationStatus) ([]models.Registration, error) {
	q := s.withRelations(ctx)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var regs []models.Registration
	if err := q.Order("id ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *RegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(reg).Error
}

// UpdateFields writes the applicant-editable fields only, so a profile save
// can never overwrite status or votes.
func (s *RegistrationStore) UpdateFields(ctx context.Context, reg *models.Registration) error {
	res := s.db.WithContext(ctx).Model(reg).Select(profileColumns).Updates(reg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplicantEditable are the statuses in which the applicant may still change the form.
var ApplicantEditable = []models.RegistrationStatus{models.StatusInProgress, models.StatusPending}

// UpdateApplicantFields is UpdateFields guarded by the stored status. It
// returns sentinel.ErrConflict when a review moved the registration on since
// it was read.
func (s *RegistrationStore) UpdateApplicantFields(ctx context.Context, reg *models.Registration) error {
	res := s.db.WithContext(ctx).Model(reg).
		Where("status IN ?", ApplicantEditable).
		Select(profileColumns).
		Updates(reg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// Submit moves an In Progress registration to Pending.
func (s *RegistrationStore) Submit(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Updates(map[string]any{
			"status":       models.StatusPending,
			"submitted_at": at,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RegistrationStore) SetWebsiteStatus(ctx context.Context, id uint, status models.WebsiteStatus) error {
	return s.updateColumn(ctx, id, "website_status", status)
}

func (s *RegistrationStore) SetPaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) error {
	return s.updateColumn(ctx, id, "payment_status", status)
}

func (s *RegistrationStore) updateColumn(ctx context.Context, id uint, column string, value any) error {
	res := s.db.WithContext(ctx).Model(&models.Registration{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyTransition commits an approval decision if the registration is still
// at expectedVersion. See approval.Store.
func (s *RegistrationStore) ApplyTransition(ctx context.Context, id uint, expectedVersion uint, d approval.Decision) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(map[string]any{
				"status":  d.To,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sentinel.ErrConflict
		}

		if d.Reset {
			if err := tx.Where("registration_id = ?", id).Delete(&models.RegistrationApproval{}).Error; err != nil {
				return fmt.Errorf("clear approvals: %w", err)
			}
		}

		if d.Added != 0 {
			size, added, err := addApprover(tx, id, d.Added)
			if err != nil {
				return err
			}
			if !added || size != int64(d.ApprovedBy.Len()) {
				return sentinel.ErrConflict
			}
		}
		return nil
	})
}

// AddApprover inserts adminID into the registration's approver set unless it
// is already there, and returns the resulting set size.
func (s *RegistrationStore) AddApprover(ctx context.Context, registrationID, adminID uint) (size int64, added bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		size, added, err = addApprover(tx, registrationID, adminID)
		return err
	})
	return size, added, err
}

func addApprover(tx *gorm.DB, registrationID, adminID uint) (int64, bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RegistrationApproval{
		RegistrationID: registrationID,
		AdminID:        adminID,
	})
	if res.Error != nil {
		return 0, false, fmt.Errorf("add approver: %w", res.Error)
	}

	var size int64
	if err := tx.Model(&models.RegistrationApproval{}).Where("registration_id = ?", registrationID).Count(&size).Error; err != nil {
		return 0, false, fmt.Errorf("count approvers: %w", err)
	}
	return size, res.RowsAffected == 1, nil
}

// UpsertDocument stores the document record for its type, resetting the
// review status to Pending.
func (s *RegistrationStore) UpsertDocument(ctx context.Context, doc *models.Document) error {
	doc.Status = models.DocumentPending
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"location", "file_name", "status", "updated_at"}),
	}).Create(doc).Error
}

// SetDocumentStatuses writes the status of each document in one transaction.
func (s *RegistrationStore) SetDocumentStatuses(ctx context.Context, docs []models.Document) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range docs {
			res := tx.Model(&models.Document{}).
				Where("registration_id = ? AND type = ?", d.RegistrationID, d.Type).
				Update("status", d.Status)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("document %q: %w", d.Type, sentinel.ErrNotFound)
			}
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel.ErrNotFound
	}
	return err
}
