package clave

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	obsmetrics "github.com/facturacr/facturacr/internal/observability/metrics"
)

// maxAttempts bounds collision retries. With an 8-digit random security code
// the per-key collision probability is about 1e-8; exhausting every attempt
// points at a broken random source or a corrupted uniqueness index.
const maxAttempts = 5

var ErrKeyGenerationExhausted = errors.New("key_generation_exhausted")

// SecuritySource yields 8-digit security codes.
type SecuritySource interface {
	Code() (string, error)
}

// Reserver checks a candidate key against the global uniqueness index.
// ErrClaveTaken means the candidate collided and a fresh one is needed.
type Reserver interface {
	Reserve(ctx context.Context, key string) error
}

var ErrClaveTaken = errors.New("clave_taken")

// Input carries the material a key is built from. Consecutive must be the
// allocated 20-digit string; Issuer is the tenant identification as stored,
// separators allowed.
type Input struct {
	Issuer      string
	Consecutive string
	Emission    time.Time
}

// Generator builds document keys and reserves them against the global index,
// retrying with a fresh security code on collision.
type Generator struct {
	log      *zap.Logger
	security SecuritySource
	reserver Reserver
	metrics  *obsmetrics.Metrics
}

type GeneratorParam struct {
	fx.In

	Log      *zap.Logger
	Security SecuritySource
	Reserver Reserver
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

func NewGenerator(p GeneratorParam) *Generator {
	return &Generator{
		log:      p.Log.Named("clave.generator"),
		security: p.Security,
		reserver: p.Reserver,
		metrics:  p.Metrics,
	}
}

// Generate builds and reserves a key for the given input. On success the key
// is unique across all tenants and document types. A collision burns one
// attempt and a fresh security code; the consecutive is never re-allocated.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	issuer, err := NormalizeIssuer(in.Issuer)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := g.security.Code()
		if err != nil {
			return "", err
		}
		key, err := Build(issuer, in.Emission, in.Consecutive, code)
		if err != nil {
			return "", err
		}

		err = g.reserver.Reserve(ctx, key)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrClaveTaken) {
			return "", err
		}

		g.metrics.RecordKeyCollision(ctx)
		g.log.Warn("document key collision",
			zap.String("consecutive", in.Consecutive),
			zap.Int("attempt", attempt),
		)
	}

	g.log.Error("document key generation exhausted",
		zap.String("consecutive", in.Consecutive),
		zap.Int("attempts", maxAttempts),
	)
	return "", ErrKeyGenerationExhausted
}

// cryptoSource draws security codes from crypto/rand.
type cryptoSource struct{}

func NewCryptoSource() SecuritySource { return cryptoSource{} }

var securityMax = big.NewInt(100_000_000)

func (cryptoSource) Code() (string, error) {
	n, err := crand.Int(crand.Reader, securityMax)
	if err != nil {
		return "", fmt.Errorf("security code: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}
