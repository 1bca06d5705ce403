// Package domain defines tenants: the issuing businesses this backend emits
// documents for. Each tenant authenticates with an API key and carries the
// series defaults used when a request does not name a branch or terminal.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound      = errors.New("tenant_not_found")
	ErrInactive      = errors.New("tenant_inactive")
	ErrInvalidAPIKey = errors.New("invalid_api_key")
	ErrInvalidIssuer = errors.New("invalid_issuer_identification")
	ErrDuplicateName = errors.New("tenant_name_taken")
)

type Tenant struct {
	ID snowflake.ID `gorm:"primaryKey"`

	Name string `gorm:"type:text;not null;uniqueIndex:ux_tenants_name"`

	// Identification is the issuer's cedula, 9 to 12 digits, embedded into
	// every document key this tenant emits.
	Identification string  `gorm:"type:varchar(12);not null"`
	Email          *string `gorm:"type:text"`

	DefaultBranch   string `gorm:"column:default_branch;type:char(3);not null;default:'001'"`
	DefaultTerminal string `gorm:"column:default_terminal;type:char(5);not null;default:'00001'"`

	// APIKeyHash is the bcrypt hash of the key's secret part; the raw key is
	// shown once at creation and never stored.
	APIKeyHash string `gorm:"column:api_key_hash;type:text;not null" json:"-"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tenant) TableName() string { return "tenants" }

type CreateRequest struct {
	Name            string  `json:"name"`
	Identification  string  `json:"identification"`
	Email           *string `json:"email,omitempty"`
	DefaultBranch   string  `json:"default_branch,omitempty"`
	DefaultTerminal string  `json:"default_terminal,omitempty"`
}

// Service manages tenants. Create returns the raw API key exactly once.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Tenant, string, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
	// Authenticate resolves an API key of the form "<tenant id>.<secret>" to
	// its active tenant.
	Authenticate(ctx context.Context, apiKey string) (*Tenant, error)
}
