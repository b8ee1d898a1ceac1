package auth

import (
	"fmt"
	"time"
)

// Role is a staff role. Every account is a staff account; there is no
// unprivileged user role.
type Role int

const (
	RoleAdmin      Role = 1
	RoleSuperadmin Role = 2
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperadmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSuperadmin:
		return "superadmin"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// UnmarshalYAML accepts either the numeric value or the role name.
func (r *Role) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*r = Role(v)
	case string:
		switch v {
		case "admin":
			*r = RoleAdmin
		case "superadmin":
			*r = RoleSuperadmin
		default:
			return fmt.Errorf("unknown role %q", v)
		}
	default:
		return fmt.Errorf("invalid role value %v", raw)
	}
	if !r.Valid() {
		return fmt.Errorf("unknown role %d", int(*r))
	}
	return nil
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegistrationToken struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	CreatedBy   int64      `json:"createdBy"`
	CreatorName string     `json:"creatorName,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	IsUsed      bool       `json:"isUsed"`
	UsedBy      *int64     `json:"usedBy"`
	UserName    *string    `json:"userName"`
	UsedAt      *time.Time `json:"usedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	Active      bool       `json:"active"` // derived from IsUsed and ExpiresAt
}

// Usable reports whether the token could still be redeemed at now.
func (t *RegistrationToken) Usable(now time.Time) bool {
	return !t.IsUsed && t.ExpiresAt.After(now)
}

// Session is the identity carried by a signed session credential.
type Session struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
