package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Auth         *auth.AuthHandler
	Registration *RegistrationHandler
	Admin        *AdminHandler
	APIKeys      *APIKeyHandler
	Export       *ExportHandler
	Metrics      http.Handler
}

var authenticated = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}

func secured(o *huma.Operation) {
	o.Security = authenticated
}

func RegisterRoutes(r *chi.Mux, h Handlers) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	config := huma.DefaultConfig("VegFest Registration API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// OAuth redirects are plain handlers, huma only serves JSON operations.
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	// Applicant
	huma.Post(api, "/registrations", h.Registration.HandleCreate, secured)
	huma.Get(api, "/registrations/me", h.Registration.HandleGetMine, secured)
	huma.Put(api, "/registrations/me", h.Registration.HandleSave, secured)
	huma.Post(api, "/registrations/me/submit", h.Registration.HandleSubmit, secured)
	huma.Put(api, "/registrations/me/documents", h.Registration.HandleUpsertDocument, secured)

	// API keys
	huma.Post(api, "/api-keys", h.APIKeys.HandleCreate, secured)
	huma.Get(api, "/api-keys", h.APIKeys.HandleList, secured)
	huma.Delete(api, "/api-keys/{id}", h.APIKeys.HandleDelete, secured)

	// Review
	huma.Get(api, "/admin/registrations", h.Admin.HandleList, secured)
	huma.Get(api, "/admin/registrations/{id}", h.Admin.HandleGet, secured)
	huma.Patch(api, "/admin/registrations/{id}", h.Admin.HandleUpdate, secured)
	huma.Post(api, "/admin/registrations/{id}/status", h.Admin.HandleStatusChange, secured)
	huma.Put(api, "/admin/registrations/{id}/documents", h.Admin.HandleReviewDocuments, secured)
	huma.Put(api, "/admin/registrations/{id}/website-status", h.Admin.HandleWebsiteStatus, secured)
	huma.Put(api, "/admin/registrations/{id}/payment-status", h.Admin.HandlePaymentStatus, secured)
	huma.Get(api, "/admin/registrations/{id}/audit", h.Admin.HandleRegistrationAudit, secured)
	huma.Get(api, "/admin/audit", h.Admin.HandleAuditLog, secured)
	huma.Put(api, "/admin/users/{id}/role", h.Admin.HandleUserRole, secured)

	r.With(h.Auth.AuthMiddleware).Get("/admin/export/billing.csv", h.Export.HandleBillingCSV)

	return api
}
