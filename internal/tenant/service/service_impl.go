package service

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/cache"
	tenantdomain "github.com/facturacr/facturacr/internal/tenant/domain"
	"github.com/facturacr/facturacr/pkg/db"
	"github.com/facturacr/facturacr/pkg/repository"
)

var (
	issuerRe   = regexp.MustCompile(`^\d{9,12}$`)
	branchRe   = regexp.MustCompile(`^\d{3}$`)
	terminalRe = regexp.MustCompile(`^\d{5}$`)
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Auth  *cache.AuthCache `optional:"true"`
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	auth  *cache.AuthCache

	tenantrepo repository.Repository[tenantdomain.Tenant]
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		log:        p.Log.Named("tenant.service"),
		genID:      p.GenID,
		auth:       p.Auth,
		tenantrepo: repository.ProvideStore[tenantdomain.Tenant](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req tenantdomain.CreateRequest) (*tenantdomain.Tenant, string, error) {
	identification := strings.ReplaceAll(strings.TrimSpace(req.Identification), "-", "")
	if !issuerRe.MatchString(identification) {
		return nil, "", tenantdomain.ErrInvalidIssuer
	}

	branch := req.DefaultBranch
	if branch == "" {
		branch = "001"
	}
	terminal := req.DefaultTerminal
	if terminal == "" {
		terminal = "00001"
	}
	if !branchRe.MatchString(branch) || !terminalRe.MatchString(terminal) {
		return nil, "", tenantdomain.ErrInvalidIssuer
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	tenant := &tenantdomain.Tenant{
		ID:              s.genID.Generate(),
		Name:            strings.TrimSpace(req.Name),
		Identification:  identification,
		Email:           req.Email,
		DefaultBranch:   branch,
		DefaultTerminal: terminal,
		APIKeyHash:      string(hash),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.tenantrepo.Create(ctx, tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, "", tenantdomain.ErrDuplicateName
		}
		return nil, "", err
	}

	s.log.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name),
	)

	return tenant, fmt.Sprintf("%s.%s", tenant.ID.String(), secret), nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	tenant, err := s.tenantrepo.FindOne(ctx, &tenantdomain.Tenant{ID: id})
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return tenant, nil
}

func (s *Service) Authenticate(ctx context.Context, apiKey string) (*tenantdomain.Tenant, error) {
	idPart, secret, found := strings.Cut(strings.TrimSpace(apiKey), ".")
	if !found || secret == "" {
		return nil, tenantdomain.ErrInvalidAPIKey
	}
	id, err := snowflake.ParseString(idPart)
	if err != nil {
		return nil, tenantdomain.ErrInvalidAPIKey
	}

	if tenant, ok := s.auth.Get(apiKey); ok {
		if !tenant.Active {
			return nil, tenantdomain.ErrInactive
		}
		return tenant, nil
	}

	tenant, err := s.tenantrepo.FindOne(ctx, &tenantdomain.Tenant{ID: id})
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tenant.APIKeyHash), []byte(secret)); err != nil {
		return nil, tenantdomain.ErrInvalidAPIKey
	}
	if !tenant.Active {
		return nil, tenantdomain.ErrInactive
	}

	s.auth.Set(apiKey, tenant)
	return tenant, nil
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
