// Package service implements consecutive-number allocation.
package service

import (
	"context"
	"regexp"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/facturacr/facturacr/internal/hacienda"
	seriesdomain "github.com/facturacr/facturacr/internal/series/domain"
)

var (
	branchRe   = regexp.MustCompile(`^\d{3}$`)
	terminalRe = regexp.MustCompile(`^\d{5}$`)
)

type ServiceParam struct {
	fx.In

	Log  *zap.Logger
	Repo seriesdomain.Repository
}

type Service struct {
	log  *zap.Logger
	repo seriesdomain.Repository
}

func NewService(p ServiceParam) seriesdomain.Allocator {
	return &Service{
		log:  p.Log.Named("series.allocator"),
		repo: p.Repo,
	}
}

// Allocate reserves and returns the next 20-digit consecutive number for the
// series. The reservation is committed even if the caller later abandons the
// document: sequence gaps are a regulation-tolerated outcome, duplicates are
// not.
func (s *Service) Allocate(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (seriesdomain.Allocation, error) {
	if err := validateSeries(branch, terminal, docType); err != nil {
		return seriesdomain.Allocation{}, err
	}

	sequential, err := s.repo.NextValue(ctx, tenantID, branch, terminal, docType)
	if err != nil {
		if err == seriesdomain.ErrSeriesExhausted {
			s.log.Error("series counter exhausted, tenant needs reconfiguration",
				zap.String("tenant_id", tenantID.String()),
				zap.String("branch", branch),
				zap.String("terminal", terminal),
				zap.String("doc_type", string(docType)),
			)
		}
		return seriesdomain.Allocation{}, err
	}

	return seriesdomain.Allocation{
		Consecutive: seriesdomain.FormatConsecutive(branch, terminal, docType, sequential),
		Sequential:  sequential,
		Branch:      branch,
		Terminal:    terminal,
		DocType:     docType,
	}, nil
}

// Peek previews the next consecutive number without reserving it. A
// subsequent Allocate may return a later value if other requests land in
// between.
func (s *Service) Peek(ctx context.Context, tenantID snowflake.ID, branch, terminal string, docType hacienda.DocumentType) (string, error) {
	if err := validateSeries(branch, terminal, docType); err != nil {
		return "", err
	}

	current, err := s.repo.CurrentValue(ctx, tenantID, branch, terminal, docType)
	if err != nil {
		return "", err
	}
	if current >= seriesdomain.MaxSequential {
		return "", seriesdomain.ErrSeriesExhausted
	}

	return seriesdomain.FormatConsecutive(branch, terminal, docType, current+1), nil
}

func validateSeries(branch, terminal string, docType hacienda.DocumentType) error {
	if !branchRe.MatchString(branch) {
		return seriesdomain.ErrInvalidBranch
	}
	if !terminalRe.MatchString(terminal) {
		return seriesdomain.ErrInvalidTerminal
	}
	if !docType.Valid() {
		return seriesdomain.ErrInvalidDocType
	}
	return nil
}
