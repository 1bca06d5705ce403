package clave

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type seqSource struct{ n int }

func (s *seqSource) Code() (string, error) {
	s.n++
	return fmt.Sprintf("%08d", s.n), nil
}

type fakeReserver struct {
	taken    map[string]bool
	reserved []string
}

func (r *fakeReserver) Reserve(_ context.Context, key string) error {
	if r.taken[key] {
		return ErrClaveTaken
	}
	r.reserved = append(r.reserved, key)
	return nil
}

func newTestGenerator(security SecuritySource, reserver Reserver) *Generator {
	return NewGenerator(GeneratorParam{
		Log:      zap.NewNop(),
		Security: security,
		Reserver: reserver,
	})
}

func TestGenerateReservesKey(t *testing.T) {
	reserver := &fakeReserver{}
	gen := newTestGenerator(&seqSource{}, reserver)

	key, err := gen.Generate(context.Background(), Input{
		Issuer:      "3-101-123456",
		Consecutive: "00100001010000000001",
		Emission:    time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, key, Length)
	assert.Equal(t, []string{key}, reserver.reserved)

	c, err := Parse(key)
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000001", c.Consecutive())
	assert.Equal(t, "00000001", c.Security)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	issuer := "003101123456"
	consecutive := "00100001010000000001"
	emission := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

	// The first two candidates are already taken; the third must win.
	taken := map[string]bool{}
	for _, code := range []string{"00000001", "00000002"} {
		key, err := Build(issuer, emission, consecutive, code)
		require.NoError(t, err)
		taken[key] = true
	}

	reserver := &fakeReserver{taken: taken}
	gen := newTestGenerator(&seqSource{}, reserver)

	key, err := gen.Generate(context.Background(), Input{
		Issuer:      issuer,
		Consecutive: consecutive,
		Emission:    emission,
	})
	require.NoError(t, err)

	c, err := Parse(key)
	require.NoError(t, err)
	assert.Equal(t, "00000003", c.Security)
	assert.Len(t, reserver.reserved, 1)
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	issuer := "003101123456"
	consecutive := "00100001010000000001"
	emission := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

	taken := map[string]bool{}
	for i := 1; i <= maxAttempts; i++ {
		key, err := Build(issuer, emission, consecutive, fmt.Sprintf("%08d", i))
		require.NoError(t, err)
		taken[key] = true
	}

	gen := newTestGenerator(&seqSource{}, &fakeReserver{taken: taken})

	_, err := gen.Generate(context.Background(), Input{
		Issuer:      issuer,
		Consecutive: consecutive,
		Emission:    emission,
	})
	assert.ErrorIs(t, err, ErrKeyGenerationExhausted)
}

func TestGenerateRejectsBadIssuer(t *testing.T) {
	gen := newTestGenerator(&seqSource{}, &fakeReserver{})

	_, err := gen.Generate(context.Background(), Input{
		Issuer:      "not-a-number",
		Consecutive: "00100001010000000001",
		Emission:    time.Now(),
	})
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestCryptoSourceFormat(t *testing.T) {
	source := NewCryptoSource()
	for i := 0; i < 32; i++ {
		code, err := source.Code()
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}
