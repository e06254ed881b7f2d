package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/approval"
	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/store"
	"gorm.io/gorm"
)

// Fields a generic edit never reports; they change through dedicated endpoints.
var nonProfileFields = []string{
	"status", "documents", "website_status", "payment_status", "submitted_at",
}

// AdminHandler serves staff review of registrations.
type AdminHandler struct {
	db          *gorm.DB
	store       *store.RegistrationStore
	engine      *approval.Engine
	recorder    audit.Recorder
	auditLog    *audit.Writer
	authHandler *auth.AuthHandler
	logger      *slog.Logger
}

func NewAdminHandler(db *gorm.DB, engine *approval.Engine, recorder audit.Recorder, authHandler *auth.AuthHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		db:          db,
		store:       store.NewRegistrationStore(db),
		engine:      engine,
		recorder:    recorder,
		auditLog:    audit.NewWriter(db),
		authHandler: authHandler,
		logger:      logger,
	}
}

func (h *AdminHandler) reviewer(ctx context.Context, input auth.AuthInput, c authz.Capability) (authz.Principal, error) {
	principal, err := h.authHandler.Principal(ctx, input)
	if err != nil {
		return authz.Principal{}, err
	}
	if err := principal.Require(c); err != nil {
		return authz.Principal{}, forbidden(err)
	}
	return principal, nil
}

// record writes an audit entry for a committed change. Failures are logged only.
func (h *AdminHandler) record(ctx context.Context, actor authz.Principal, e audit.Entry) {
	adminID := actor.UserID
	e.AdminID = &adminID
	e.ActorName = actor.DisplayName
	if err := h.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		h.logger.ErrorContext(ctx, "failed to record audit entry",
			"error", err,
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
		)
	}
}

type ListRegistrationsRequest struct {
	auth.AuthInput
	Status string `query:"status" doc:"Only registrations in this status" enum:"In Progress,Pending,Waiting for Approval,Approved,Declined"`
}

type ListRegistrationsResponse struct {
	Body struct {
		Registrations []RegistrationView `json:"registrations"`
	}
}

func (h *AdminHandler) HandleList(ctx context.Context, input *ListRegistrationsRequest) (*ListRegistrationsResponse, error) {
	if _, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations); err != nil {
		return nil, err
	}

	var statuses []models.RegistrationStatus
	if input.Status != "" {
		statuses = append(statuses, models.RegistrationStatus(input.Status))
	}
	regs, err := h.store.List(ctx, statuses...)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list registrations: " + err.Error())
	}

	resp := &ListRegistrationsResponse{}
	resp.Body.Registrations = make([]RegistrationView, 0, len(regs))
	for i := range regs {
		resp.Body.Registrations = append(resp.Body.Registrations, registrationView(&regs[i]))
	}
	return resp, nil
}

type RegistrationByIDRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *AdminHandler) HandleGet(ctx context.Context, input *RegistrationByIDRequest) (*RegistrationResponse, error) {
	if _, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations); err != nil {
		return nil, err
	}
	reg, err := h.store.FindRegistration(ctx, input.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	return &RegistrationResponse{Body: registrationView(reg)}, nil
}

type StatusChangeRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Status models.RegistrationStatus `json:"status" enum:"Pending,Approved,Declined" required:"true" doc:"Requested status"`
	}
}

type StatusChangeResponse struct {
	Body struct {
		Registration RegistrationView `json:"registration"`
		Detail       string           `json:"detail"`
	}
}

func (h *AdminHandler) HandleStatusChange(ctx context.Context, input *StatusChangeRequest) (*StatusChangeResponse, error) {
	principal, err := h.authHandler.Principal(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if !input.Body.Status.Reviewable() {
		return nil, huma.Error400BadRequest(fmt.Sprintf("Invalid status %q", input.Body.Status))
	}

	res, err := h.engine.RequestStatusChange(ctx, principal, input.ID, input.Body.Status)
	if err != nil {
		return nil, statusChangeError(h.logger, err)
	}

	resp := &StatusChangeResponse{}
	resp.Body.Registration = registrationView(res.Registration)
	resp.Body.Detail = res.Decision.Label
	return resp, nil
}

type UpdateRegistrationRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body ProfileInput
}

// HandleUpdate applies a staff edit and audits the field-level diff.
func (h *AdminHandler) HandleUpdate(ctx context.Context, input *UpdateRegistrationRequest) (*RegistrationResponse, error) {
	principal, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations)
	if err != nil {
		return nil, err
	}

	reg, err := h.store.FindRegistration(ctx, input.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	original := *reg

	if err := input.Body.apply(&reg.RegistrationFields); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	changes, err := audit.Diff(registrationView(&original), registrationView(reg), nonProfileFields...)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to compare registration: " + err.Error())
	}
	if changes.Empty() {
		return &RegistrationResponse{Body: registrationView(reg)}, nil
	}

	if err := h.store.UpdateFields(ctx, reg); err != nil {
		return nil, huma.Error500InternalServerError("Failed to update registration: " + err.Error())
	}

	h.record(ctx, principal, audit.Entry{
		EntityID:   reg.ID,
		EntityType: audit.EntityRegistration,
		Action:     audit.ActionUpdateRegistration,
		Changes:    changes.ChangeSet(),
		Details:    fmt.Sprintf("Updated %d field(s)", len(changes)),
	})

	return &RegistrationResponse{Body: registrationView(reg)}, nil
}

type DocumentReview struct {
	Type   string                `json:"type" required:"true"`
	Status models.DocumentStatus `json:"status" enum:"Pending,Approved,Rejected" required:"true"`
}

type ReviewDocumentsRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Documents []DocumentReview `json:"documents" minItems:"1"`
	}
}

// HandleReviewDocuments sets document statuses and writes one audit entry
// per document whose status actually changed.
func (h *AdminHandler) HandleReviewDocuments(ctx context.Context, input *ReviewDocumentsRequest) (*RegistrationResponse, error) {
	principal, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations)
	if err != nil {
		return nil, err
	}

	reg, err := h.store.FindRegistration(ctx, input.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	before := slices.Clone(reg.Documents)

	for _, review := range input.Body.Documents {
		if !review.Status.Valid() {
			return nil, huma.Error400BadRequest(fmt.Sprintf("Invalid document status %q", review.Status))
		}
		doc := reg.Document(review.Type)
		if doc == nil {
			return nil, huma.Error404NotFound(fmt.Sprintf("Document %q not found", review.Type))
		}
		doc.Status = review.Status
	}

	changes := audit.DiffDocuments(before, reg.Documents)
	if len(changes) == 0 {
		return &RegistrationResponse{Body: registrationView(reg)}, nil
	}

	changed := make([]models.Document, 0, len(changes))
	for _, c := range changes {
		changed = append(changed, *reg.Document(c.Type))
	}
	if err := h.store.SetDocumentStatuses(ctx, changed); err != nil {
		return nil, lookupError(err, "Document")
	}

	for _, c := range changes {
		h.record(ctx, principal, audit.Entry{
			EntityID:   reg.ID,
			EntityType: audit.EntityRegistration,
			Action:     audit.ActionUpdateDocumentStatus,
			Target:     c.Type,
			Changes:    audit.ChangeSet{audit.StatusChange{Old: string(c.Old), New: string(c.New)}},
			Details:    fmt.Sprintf("Document %s marked %s", c.Type, c.New),
		})
	}

	return &RegistrationResponse{Body: registrationView(reg)}, nil
}

type WebsiteStatusRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Status models.WebsiteStatus `json:"status" enum:"Pending,Added" required:"true"`
	}
}

func (h *AdminHandler) HandleWebsiteStatus(ctx context.Context, input *WebsiteStatusRequest) (*RegistrationResponse, error) {
	principal, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations)
	if err != nil {
		return nil, err
	}
	if input.Body.Status != models.WebsitePending && input.Body.Status != models.WebsiteAdded {
		return nil, huma.Error400BadRequest(fmt.Sprintf("Invalid website status %q", input.Body.Status))
	}

	reg, err := h.store.FindRegistration(ctx, input.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	old := reg.WebsiteStatus
	if old == input.Body.Status {
		return &RegistrationResponse{Body: registrationView(reg)}, nil
	}

	if err := h.store.SetWebsiteStatus(ctx, reg.ID, input.Body.Status); err != nil {
		return nil, lookupError(err, "Registration")
	}
	reg.WebsiteStatus = input.Body.Status

	h.record(ctx, principal, audit.Entry{
		EntityID:   reg.ID,
		EntityType: audit.EntityRegistration,
		Action:     audit.ActionUpdateWebsiteStatus,
		Target:     "website_status",
		Changes:    audit.ChangeSet{audit.StatusChange{Old: string(old), New: string(reg.WebsiteStatus)}},
	})

	return &RegistrationResponse{Body: registrationView(reg)}, nil
}

type PaymentStatusRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Status models.PaymentStatus `json:"status" enum:"Unpaid,Paid" required:"true"`
	}
}

func (h *AdminHandler) HandlePaymentStatus(ctx context.Context, input *PaymentStatusRequest) (*RegistrationResponse, error) {
	principal, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations)
	if err != nil {
		return nil, err
	}
	if input.Body.Status != models.PaymentUnpaid && input.Body.Status != models.PaymentPaid {
		return nil, huma.Error400BadRequest(fmt.Sprintf("Invalid payment status %q", input.Body.Status))
	}

	reg, err := h.store.FindRegistration(ctx, input.ID)
	if err != nil {
		return nil, lookupError(err, "Registration")
	}
	old := reg.PaymentStatus
	if old == input.Body.Status {
		return &RegistrationResponse{Body: registrationView(reg)}, nil
	}

	if err := h.store.SetPaymentStatus(ctx, reg.ID, input.Body.Status); err != nil {
		return nil, lookupError(err, "Registration")
	}
	reg.PaymentStatus = input.Body.Status

	h.record(ctx, principal, audit.Entry{
		EntityID:   reg.ID,
		EntityType: audit.EntityRegistration,
		Action:     audit.ActionUpdatePaymentStatus,
		Target:     "payment_status",
		Changes:    audit.ChangeSet{audit.StatusChange{Old: string(old), New: string(reg.PaymentStatus)}},
	})

	return &RegistrationResponse{Body: registrationView(reg)}, nil
}

type RegistrationAuditRequest struct {
	auth.AuthInput
	ID    uint `path:"id"`
	Limit int  `query:"limit" minimum:"1" maximum:"500" default:"100"`
}

type AuditLogResponse struct {
	Body struct {
		Entries []AuditEntryView `json:"entries"`
	}
}

func (h *AdminHandler) HandleRegistrationAudit(ctx context.Context, input *RegistrationAuditRequest) (*AuditLogResponse, error) {
	if _, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations); err != nil {
		return nil, err
	}
	return h.listAudit(ctx, audit.Filter{
		EntityType: audit.EntityRegistration,
		EntityID:   input.ID,
		Limit:      input.Limit,
	})
}

type AuditLogRequest struct {
	auth.AuthInput
	Action string `query:"action" doc:"Only entries with this action code"`
	Limit  int    `query:"limit" minimum:"1" maximum:"500" default:"100"`
}

func (h *AdminHandler) HandleAuditLog(ctx context.Context, input *AuditLogRequest) (*AuditLogResponse, error) {
	if _, err := h.reviewer(ctx, input.AuthInput, authz.ReviewRegistrations); err != nil {
		return nil, err
	}
	return h.listAudit(ctx, audit.Filter{Action: input.Action, Limit: input.Limit})
}

func (h *AdminHandler) listAudit(ctx context.Context, f audit.Filter) (*AuditLogResponse, error) {
	logs, err := h.auditLog.List(ctx, f)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list audit log: " + err.Error())
	}
	views, err := auditEntryViews(logs)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read audit log: " + err.Error())
	}
	resp := &AuditLogResponse{}
	resp.Body.Entries = views
	return resp, nil
}
