package models

import (
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex" json:"discord_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	Role      Role   `gorm:"default:USER" json:"role"`
	// Approver marks admins allowed to cast approval votes.
	Approver bool `json:"approver"`
	// DiscordApprover mirrors the configured guild approver role, refreshed on login.
	DiscordApprover bool `json:"discord_approver"`
}

// DisplayName is the name written to audit entries.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
