package handlers

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/notifier"
	"github.com/gdg-garage/vegfest-api/internal/sentinel"
	"github.com/gdg-garage/vegfest-api/internal/store"
	"gorm.io/gorm"
)

// RegistrationHandler serves the applicant side: one registration per user,
// edited in sections and submitted for review.
type RegistrationHandler struct {
	db          *gorm.DB
	store       *store.RegistrationStore
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
	logger      *slog.Logger
}

func NewRegistrationHandler(db *gorm.DB, notifier notifier.Notifier, authHandler *auth.AuthHandler) *RegistrationHandler {
	return &RegistrationHandler{
		db:          db,
		store:       store.NewRegistrationStore(db),
		notifier:    notifier,
		authHandler: authHandler,
		logger:      slog.Default(),
	}
}

type RegistrationResponse struct {
	Body RegistrationView
}

type CreateRegistrationRequest struct {
	auth.AuthInput
	Body ProfileInput
}

func (h *RegistrationHandler) HandleCreate(ctx context.Context, input *CreateRegistrationRequest) (*RegistrationResponse, error) {
	principal, err := h.applicant(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	if _, err := h.store.FindByUser(ctx, principal.UserID); err == nil {
		return nil, huma.Error409Conflict("A registration already exists for this account")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, huma.Error500InternalServerError("Failed to check existing registration: " + err.Error())
	}

	registration := models.Registration{
		UserID:        principal.UserID,
		Status:        models.StatusInProgress,
		WebsiteStatus: models.WebsitePending,
		PaymentStatus: models.PaymentUnpaid,
	}
	if err := input.Body.apply(&registration.RegistrationFields); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if err := h.store.Create(ctx, &registration); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create registration: " + err.Error())
	}

	return &RegistrationResponse{Body: registrationView(&registration)}, nil
}

func (h *RegistrationHandler) HandleGetMine(ctx context.Context, input *auth.AuthInput) (*RegistrationResponse, error) {
	principal, err := h.applicant(ctx, *input)
	if err != nil {
		return nil, err
	}

	registration, err := h.store.FindByUser(ctx, principal.UserID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	return &RegistrationResponse{Body: registrationView(registration)}, nil
}

type SaveRegistrationRequest struct {
	auth.AuthInput
	Body ProfileInput
}

// HandleSave stores one or more sections of the form. Only registrations
// that have not been decided yet can be edited by the applicant.
func (h *RegistrationHandler) HandleSave(ctx context.Context, input *SaveRegistrationRequest) (*RegistrationResponse, error) {
	principal, err := h.applicant(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	registration, err := h.store.FindByUser(ctx, principal.UserID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	if !slices.Contains(store.ApplicantEditable, registration.Status) {
		return nil, huma.Error409Conflict("Registration can no longer be edited")
	}

	if err := input.Body.apply(&registration.RegistrationFields); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	err = h.store.UpdateApplicantFields(ctx, registration)
	if errors.Is(err, sentinel.ErrConflict) {
		return nil, huma.Error409Conflict("Registration can no longer be edited")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to save registration: " + err.Error())
	}

	return &RegistrationResponse{Body: registrationView(registration)}, nil
}

func (h *RegistrationHandler) HandleSubmit(ctx context.Context, input *auth.AuthInput) (*RegistrationResponse, error) {
	principal, err := h.applicant(ctx, *input)
	if err != nil {
		return nil, err
	}

	registration, err := h.store.FindByUser(ctx, principal.UserID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	if missing := missingForSubmission(registration.RegistrationFields); len(missing) > 0 {
		return nil, huma.Error400BadRequest("Missing required fields: " + strings.Join(missing, ", "))
	}

	now := time.Now()
	if err := h.store.Submit(ctx, registration.ID, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, huma.Error409Conflict("Registration has already been submitted")
		}
		return nil, huma.Error500InternalServerError("Failed to submit registration: " + err.Error())
	}
	registration.Status = models.StatusPending
	registration.SubmittedAt = &now
	registration.Version++

	if h.notifier != nil {
		var user models.User
		if err := h.db.WithContext(ctx).First(&user, principal.UserID).Error; err == nil {
			if err := h.notifier.NotifySubmission(user, *registration); err != nil {
				h.logger.Warn("submission notification failed", "error", err, "registration_id", registration.ID)
			}
		}
	}

	return &RegistrationResponse{Body: registrationView(registration)}, nil
}

type UpsertDocumentRequest struct {
	auth.AuthInput
	Body struct {
		Type     string `json:"type" doc:"Document type, e.g. business_license or insurance" required:"true" minLength:"1"`
		Location string `json:"location" doc:"Stored location of the uploaded file" required:"true" minLength:"1"`
		FileName string `json:"file_name,omitempty" doc:"Original file name"`
	}
}

// HandleUpsertDocument records an uploaded document. Re-uploading a type
// replaces it and sends it back to review.
func (h *RegistrationHandler) HandleUpsertDocument(ctx context.Context, input *UpsertDocumentRequest) (*RegistrationResponse, error) {
	principal, err := h.applicant(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	docType := strings.TrimSpace(input.Body.Type)
	location := strings.TrimSpace(input.Body.Location)
	if docType == "" || location == "" {
		return nil, huma.Error400BadRequest("Document type and location are required")
	}

	registration, err := h.store.FindByUser(ctx, principal.UserID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	if registration.Status == models.StatusDeclined {
		return nil, huma.Error409Conflict("Registration has been declined")
	}

	doc := models.Document{
		RegistrationID: registration.ID,
		Type:           docType,
		Location:       location,
		FileName:       input.Body.FileName,
	}
	if err := h.store.UpsertDocument(ctx, &doc); err != nil {
		return nil, huma.Error500InternalServerError("Failed to save document: " + err.Error())
	}

	registration, err = h.store.FindRegistration(ctx, registration.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	return &RegistrationResponse{Body: registrationView(registration)}, nil
}

func (h *RegistrationHandler) applicant(ctx context.Context, input auth.AuthInput) (authz.Principal, error) {
	principal, err := h.authHandler.Principal(ctx, input)
	if err != nil {
		return authz.Principal{}, err
	}
	if err := principal.Require(authz.EditOwnRegistration); err != nil {
		return authz.Principal{}, forbidden(err)
	}
	return principal, nil
}

func missingForSubmission(f models.RegistrationFields) []string {
	var missing []string
	if strings.TrimSpace(f.OrganizationName) == "" {
		missing = append(missing, "organization_name")
	}
	if strings.TrimSpace(f.ContactEmail) == "" {
		missing = append(missing, "contact_email")
	}
	if !f.Type.Valid() {
		missing = append(missing, "type")
	}
	return missing
}
