package brand

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole represents a brand team member role.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Brand represents a brand organization.
type Brand struct {
	ID        int64     `json:"id"`
	BrandID   uuid.UUID `json:"brandId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member links a user to a brand team.
type Member struct {
	ID        int64      `json:"id"`
	BrandID   uuid.UUID  `json:"brandId"`
	UserID    uuid.UUID  `json:"userId"`
	Role      MemberRole `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}
