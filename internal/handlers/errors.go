package handlers

import (
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/approval"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/sentinel"
)

func forbidden(err error) error {
	return huma.Error403Forbidden("Access denied: " + err.Error())
}

// statusChangeError maps approval engine failures onto HTTP errors.
func statusChangeError(logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		return forbidden(err)
	case errors.Is(err, approval.ErrNotFound):
		return huma.Error404NotFound("Registration not found")
	case errors.Is(err, approval.ErrInvalidStatus):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, approval.ErrDuplicateVote):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, approval.ErrNotSubmitted):
		return huma.Error409Conflict(err.Error())
	}
	logger.Error("status change failed", "error", err)
	return huma.Error500InternalServerError("Failed to update registration status")
}

func lookupError(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return huma.Error404NotFound(what + " not found")
	}
	return huma.Error500InternalServerError("Failed to load " + what + ": " + err.Error())
}
