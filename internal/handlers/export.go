package handlers

import (
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/gdg-garage/vegfest-api/internal/store"
	"gorm.io/gorm"
)

var billingHeader = []string{
	"id", "organization_name", "type", "status", "contact_name", "contact_email",
	"contact_phone", "street", "city", "state", "postal_code",
	"payment_status", "website_status", "approved_by", "submitted_at",
}

// ExportHandler serves CSV exports for back-office billing.
type ExportHandler struct {
	store       *store.RegistrationStore
	authHandler *auth.AuthHandler
	logger      *slog.Logger
}

func NewExportHandler(db *gorm.DB, authHandler *auth.AuthHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		store:       store.NewRegistrationStore(db),
		authHandler: authHandler,
		logger:      logger,
	}
}

// HandleBillingCSV writes every submitted registration as CSV. It must run
// behind AuthMiddleware.
func (h *ExportHandler) HandleBillingCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	principal, err := h.authHandler.PrincipalFor(r.Context(), userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := principal.Require(authz.ReviewRegistrations); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	regs, err := h.store.List(r.Context(),
		models.StatusPending,
		models.StatusWaitingForApproval,
		models.StatusApproved,
		models.StatusDeclined,
	)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "billing export failed", "error", err)
		http.Error(w, "Failed to load registrations", http.StatusInternalServerError)
		return
	}

	filename := "billing-" + time.Now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := writeBillingCSV(w, regs); err != nil {
		h.logger.ErrorContext(r.Context(), "billing export write failed", "error", err)
	}
}

func writeBillingCSV(w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(billingHeader); err != nil {
		return err
	}
	for _, reg := range regs {
		var approvers []string
		for _, id := range reg.ApprovedBy() {
			approvers = append(approvers, strconv.FormatUint(uint64(id), 10))
		}
		var submitted string
		if reg.SubmittedAt != nil {
			submitted = reg.SubmittedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(reg.ID), 10),
			csvSafe(reg.OrganizationName),
			string(reg.Type),
			string(reg.Status),
			csvSafe(reg.ContactName),
			csvSafe(reg.ContactEmail),
			csvSafe(reg.ContactPhone),
			csvSafe(reg.Address.Street),
			csvSafe(reg.Address.City),
			csvSafe(reg.Address.State),
			csvSafe(reg.Address.PostalCode),
			string(reg.PaymentStatus),
			string(reg.WebsiteStatus),
			strings.Join(approvers, " "),
			submitted,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvSafe stops applicant text from being read as a spreadsheet formula.
func csvSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
