package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"gorm.io/gorm"
)

type UserRoleRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Role     models.Role `json:"role" enum:"USER,ADMIN,SUPER_ADMIN" required:"true"`
		Approver bool        `json:"approver" doc:"Allow the user to cast approval votes"`
	}
}

type UserResponse struct {
	Body models.User
}

// HandleUserRole changes a user's role and approver flag.
func (h *AdminHandler) HandleUserRole(ctx context.Context, input *UserRoleRequest) (*UserResponse, error) {
	principal, err := h.reviewer(ctx, input.AuthInput, authz.ManageUsers)
	if err != nil {
		return nil, err
	}
	if !input.Body.Role.Valid() {
		return nil, huma.Error400BadRequest(fmt.Sprintf("Invalid role %q", input.Body.Role))
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load user: " + err.Error())
	}
	original := user

	user.Role = input.Body.Role
	user.Approver = input.Body.Approver

	changes, err := audit.Diff(original, user)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to compare user: " + err.Error())
	}
	if changes.Empty() {
		return &UserResponse{Body: user}, nil
	}

	err = h.db.WithContext(ctx).Model(&user).
		Select("role", "approver").
		Updates(map[string]any{"role": user.Role, "approver": user.Approver}).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to update user: " + err.Error())
	}

	h.record(ctx, principal, audit.Entry{
		EntityID:   user.ID,
		EntityType: audit.EntityUser,
		Action:     audit.ActionUpdateUserRole,
		Target:     user.DisplayName(),
		Changes:    changes.ChangeSet(),
	})

	return &UserResponse{Body: user}, nil
}
