// Package domain defines the consecutive-number series: one monotonic counter
// per (tenant, branch, terminal, document type).
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/facturacr/facturacr/internal/hacienda"
)

// MaxSequential is the ceiling of the 10-digit sequential segment. A counter
// reaching it is exhausted and requires operator reconfiguration (new branch
// or terminal); it never wraps.
const MaxSequential = 9_999_999_999

// Counter is the persisted last-issued value of one series. It is mutated
// exactly once per successful allocation and only ever increases; a value is
// never reissued even when the surrounding document creation fails later.
type Counter struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_series_counters_series"`

	Branch   string                `gorm:"type:char(3);not null;uniqueIndex:ux_series_counters_series"`
	Terminal string                `gorm:"type:char(5);not null;uniqueIndex:ux_series_counters_series"`
	DocType  hacienda.DocumentType `gorm:"column:doc_type;type:text;not null;uniqueIndex:ux_series_counters_series"`

	LastValue int64 `gorm:"column:last_value;not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Counter) TableName() string { return "series_counters" }

// Allocation is one reserved consecutive number.
type Allocation struct {
	Consecutive string
	Sequential  int64
	Branch      string
	Terminal    string
	DocType     hacienda.DocumentType
}

// Components are the parsed segments of a 20-digit consecutive number.
type Components struct {
	Branch     string
	Terminal   string
	DocType    hacienda.DocumentType
	Sequential string
}

// FormatConsecutive renders the regulated 20-digit layout:
// branch(3) + terminal(5) + document type(2) + sequential(10).
func FormatConsecutive(branch, terminal string, docType hacienda.DocumentType, sequential int64) string {
	return fmt.Sprintf("%s%s%s%010d", branch, terminal, docType, sequential)
}

// ParseConsecutive slices a 20-digit consecutive number back into its
// fixed-width segments.
func ParseConsecutive(s string) (Components, error) {
	if len(s) != 20 {
		return Components{}, ErrInvalidConsecutive
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Components{}, ErrInvalidConsecutive
		}
	}
	c := Components{
		Branch:     s[0:3],
		Terminal:   s[3:8],
		DocType:    hacienda.DocumentType(s[8:10]),
		Sequential: s[10:20],
	}
	if !c.DocType.Valid() {
		return Components{}, ErrInvalidConsecutive
	}
	return c, nil
}

// Allocator reserves consecutive numbers. Allocation commits independently of
// the caller's fate: an abandoned document leaves a gap, never a duplicate.
type Allocator interface {
	Allocate(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (Allocation, error)
	// Peek previews the next consecutive without reserving it.
	Peek(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (string, error)
}

// Repository is the atomic counter store. NextValue must perform the
// read-increment-write as a single atomic unit so concurrent callers on the
// same series never observe the same value.
type Repository interface {
	NextValue(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (int64, error)
	CurrentValue(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (int64, error)
}
