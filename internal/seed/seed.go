// Package seed bootstraps a default tenant for fresh installs.
package seed

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

// EnsureDefaultTenant creates the configured tenant when no tenant with that
// name exists yet. The generated API key is logged exactly once; it cannot be
// recovered afterwards.
func EnsureDefaultTenant(ctx context.Context, db *gorm.DB, tenants tenantdomain.Service, log *zap.Logger, name, identification string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&tenantdomain.Tenant{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tenant, rawKey, err := tenants.Create(ctx, tenantdomain.CreateRequest{
		Name:           name,
		Identification: identification,
	})
	if err != nil {
		if errors.Is(err, tenantdomain.ErrDuplicateName) {
			return nil
		}
		return err
	}

	log.Info("default tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name),
		zap.String("api_key", rawKey),
	)
	return nil
}
