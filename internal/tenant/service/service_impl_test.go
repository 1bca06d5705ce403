package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
)

func newService(t *testing.T) (tenantdomain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&tenantdomain.Tenant{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{DB: conn, Log: zap.NewNop(), GenID: node}), conn
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tenant, apiKey, err := svc.Create(ctx, tenantdomain.CreateRequest{
		Name:           "Comercial El Valle S.A.",
		Identification: "3-101-123456",
	})
	require.NoError(t, err)

	assert.Equal(t, "3101123456", tenant.Identification)
	assert.Equal(t, "001", tenant.DefaultBranch)
	assert.Equal(t, "00001", tenant.DefaultTerminal)
	assert.NotContains(t, tenant.APIKeyHash, apiKey)

	got, err := svc.Authenticate(ctx, apiKey)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)
}

func TestAuthenticateRejectsBadKeys(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tenant, apiKey, err := svc.Create(ctx, tenantdomain.CreateRequest{
		Name:           "Ferretería Central",
		Identification: "101234567",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, tenant.ID.String()+".wrong-secret")
	assert.ErrorIs(t, err, tenantdomain.ErrInvalidAPIKey)

	_, err = svc.Authenticate(ctx, "no-separator")
	assert.ErrorIs(t, err, tenantdomain.ErrInvalidAPIKey)

	_, err = svc.Authenticate(ctx, "999999999.secret")
	assert.ErrorIs(t, err, tenantdomain.ErrInvalidAPIKey)

	// Valid key still works after the failures above.
	_, err = svc.Authenticate(ctx, apiKey)
	assert.NoError(t, err)
}

func TestAuthenticateInactiveTenant(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()

	tenant, apiKey, err := svc.Create(ctx, tenantdomain.CreateRequest{
		Name:           "Distribuidora Sur",
		Identification: "3101999888",
	})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&tenantdomain.Tenant{}).
		Where("id = ?", tenant.ID).
		Update("active", false).Error)

	_, err = svc.Authenticate(ctx, apiKey)
	assert.ErrorIs(t, err, tenantdomain.ErrInactive)
}

func TestCreateValidatesIssuer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, bad := range []string{"", "12345678", "1234567890123", "31O1123456"} {
		_, _, err := svc.Create(ctx, tenantdomain.CreateRequest{Name: "X", Identification: bad})
		assert.ErrorIs(t, err, tenantdomain.ErrInvalidIssuer, bad)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, tenantdomain.CreateRequest{Name: "Única S.A.", Identification: "3101123456"})
	require.NoError(t, err)

	_, _, err = svc.Create(ctx, tenantdomain.CreateRequest{Name: "Única S.A.", Identification: "3101654321"})
	assert.ErrorIs(t, err, tenantdomain.ErrDuplicateName)
}
