package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/logging"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleBillingCSV(t *testing.T) {
	env := newTestEnv(t)
	submitted := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	applicant, applicantCreds := env.user(t, "vendor", models.RoleUser, false)
	other, _ := env.user(t, "drafter", models.RoleUser, false)
	_, reviewerCreds := env.user(t, "reviewer", models.RoleAdmin, false)

	require.NoError(t, env.db.Create(&models.Registration{
		UserID:        applicant.ID,
		Status:        models.StatusApproved,
		PaymentStatus: models.PaymentPaid,
		WebsiteStatus: models.WebsiteAdded,
		SubmittedAt:   &submitted,
		RegistrationFields: models.RegistrationFields{
			OrganizationName: "Green Bites, Inc.",
			ContactEmail:     "hello@greenbites.test",
			Type:             models.TypeSponsor,
			Address:          models.Address{City: "Brno"},
		},
		Approvals: []models.RegistrationApproval{{AdminID: 4}, {AdminID: 5}},
	}).Error)
	require.NoError(t, env.db.Create(&models.Registration{
		UserID: other.ID,
		Status: models.StatusInProgress,
		RegistrationFields: models.RegistrationFields{
			OrganizationName: "Still Drafting",
		},
	}).Error)

	r := chi.NewRouter()
	export := NewExportHandler(env.db, env.auth, logging.Discard())
	r.With(env.auth.AuthMiddleware).Get("/admin/export/billing.csv", export.HandleBillingCSV)

	get := func(cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/export/billing.csv", nil)
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	t.Run("reviewer gets submitted registrations", func(t *testing.T) {
		rr := get(reviewerCreds.Cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "billing-")

		rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2, "header plus the one submitted registration")
		assert.Equal(t, billingHeader, rows[0])

		row := map[string]string{}
		for i, col := range rows[0] {
			row[col] = rows[1][i]
		}
		assert.Equal(t, "Green Bites, Inc.", row["organization_name"])
		assert.Equal(t, "Approved", row["status"])
		assert.Equal(t, "Paid", row["payment_status"])
		assert.Equal(t, "Brno", row["city"])
		assert.Equal(t, "4 5", row["approved_by"])
		assert.Equal(t, "2026-03-14T12:00:00Z", row["submitted_at"])
	})

	t.Run("applicants are forbidden", func(t *testing.T) {
		rr := get(applicantCreds.Cookie)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("anonymous requests are rejected", func(t *testing.T) {
		rr := get("")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestWriteBillingCSV_EscapesFormulas(t *testing.T) {
	regs := []models.Registration{{
		Status: models.StatusPending,
		RegistrationFields: models.RegistrationFields{
			OrganizationName: `=HYPERLINK("http://evil.test","Click")`,
			ContactName:      `+1+cmd|' /C calc'!A0`,
			ContactEmail:     "@SUM(1+1)",
			ContactPhone:     "-2+3",
			Address:          models.Address{Street: "\t=1+1", City: "Brno", State: "Morava", PostalCode: "602 00"},
		},
	}}

	var buf strings.Builder
	require.NoError(t, writeBillingCSV(&buf, regs))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := map[string]string{}
	for i, col := range rows[0] {
		row[col] = rows[1][i]
	}
	assert.Equal(t, `'=HYPERLINK("http://evil.test","Click")`, row["organization_name"])
	assert.Equal(t, `'+1+cmd|' /C calc'!A0`, row["contact_name"])
	assert.Equal(t, "'@SUM(1+1)", row["contact_email"])
	assert.Equal(t, "'-2+3", row["contact_phone"])
	assert.Equal(t, "'\t=1+1", row["street"])
	assert.Equal(t, "Brno", row["city"])
	assert.Equal(t, "Morava", row["state"])
	assert.Equal(t, "602 00", row["postal_code"])
	assert.Equal(t, "Pending", row["status"])
}

func TestCSVSafe(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"Green Bites": "Green Bites",
		"=1+1":        "'=1+1",
		"+420 123":    "'+420 123",
		"-x":          "'-x",
		"@cmd":        "'@cmd",
		"\r=1":        "'\r=1",
		"a=b":         "a=b",
	}
	for in, want := range tests {
		assert.Equal(t, want, csvSafe(in), in)
	}
}
