package migration

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/config"
	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
	"github.com/facturacr/facturacr/internal/seed"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, tenants tenantdomain.Service, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// non-postgres (dev and test) rely on gorm schema sync
			if err := conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&seriesdomain.Counter{},
				&documentdomain.Document{},
				&documentdomain.Line{},
				&documentdomain.Discount{},
				&documentdomain.TaxLine{},
				&documentdomain.Exemption{},
				&documentdomain.OtherCharge{},
				&documentdomain.Reference{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultTenant(
			context.Background(),
			conn,
			tenants,
			log,
			cfg.SeedTenantName,
			cfg.SeedTenantIdentification,
		)
	}),
)
