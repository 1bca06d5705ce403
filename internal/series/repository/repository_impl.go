// Package repository persists series counters with optimistic concurrency.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	"github.com/facturacr/facturacr/internal/hacienda"
	"github.com/facturacr/facturacr/pkg/db"
)

type Repository struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewRepository(conn *gorm.DB, genID *snowflake.Node) seriesdomain.Repository {
	return &Repository{db: conn, genID: genID}
}

// NextValue atomically increments the series counter and returns the new
// value. The increment is a guarded UPDATE (compare-and-swap on last_value)
// retried on conflict, so two concurrent requests for the same series can
// never both observe the same value. The first allocation races through an
// INSERT resolved by the unique series index.
func (r *Repository) NextValue(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		counter, err := r.find(ctx, tenantID, branch, terminal, docType)
		if err != nil {
			return 0, err
		}

		if counter == nil {
			created, err := r.create(ctx, tenantID, branch, terminal, docType)
			if err != nil {
				return 0, err
			}
			if created {
				return 1, nil
			}
			// Lost the insert race; fall through to the CAS path.
			continue
		}

		next := counter.LastValue + 1
		if next > seriesdomain.MaxSequential {
			return 0, seriesdomain.ErrSeriesExhausted
		}

		result := r.db.WithContext(ctx).
			Model(&seriesdomain.Counter{}).
			Where("id = ? AND last_value = ?", counter.ID, counter.LastValue).
			Update("last_value", next)
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 1 {
			return next, nil
		}
		// Another allocation won the swap; re-read and retry.
	}
}

// CurrentValue reads the counter without mutating it. A missing counter reads
// as zero: the next allocation will be 1.
func (r *Repository) CurrentValue(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (int64, error) {
	counter, err := r.find(ctx, tenantID, branch, terminal, docType)
	if err != nil {
		return 0, err
	}
	if counter == nil {
		return 0, nil
	}
	return counter.LastValue, nil
}

func (r *Repository) find(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (*seriesdomain.Counter, error) {
	var counter seriesdomain.Counter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch = ? AND terminal = ? AND doc_type = ?", tenantID, branch, terminal, docType).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

func (r *Repository) create(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (bool, error) {
	counter := seriesdomain.Counter{
		ID:        r.genID.Generate(),
		TenantID:  tenantID,
		Branch:    branch,
		Terminal:  terminal,
		DocType:   docType,
		LastValue: 1,
	}
	err := r.db.WithContext(ctx).Create(&counter).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
