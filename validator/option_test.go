package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/jwks"
)

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, jwks.ResolveRequest) (*jwks.KeyMaterial, error) {
	return nil, core.ErrKeyNotFound
}

func (stubResolver) Refresh(context.Context, jwks.ResolveRequest) (*jwks.KeyMaterial, error) {
	return nil, core.ErrKeyNotFound
}

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v, err := New()
		require.NoError(t, err)
		assert.NotNil(t, v.resolver)
		assert.IsType(t, core.NopLogger{}, v.logger)
	})

	t.Run("WithResolver", func(t *testing.T) {
		v, err := New(WithResolver(stubResolver{}))
		require.NoError(t, err)
		assert.Equal(t, stubResolver{}, v.resolver)

		_, err = New(WithResolver(nil))
		assert.ErrorContains(t, err, "resolver cannot be nil")
	})

	t.Run("WithClock", func(t *testing.T) {
		fixed := time.Unix(42, 0)
		v, err := New(WithClock(func() time.Time { return fixed }))
		require.NoError(t, err)
		assert.Equal(t, fixed, v.now())

		_, err = New(WithClock(nil))
		assert.ErrorContains(t, err, "clock cannot be nil")
	})

	t.Run("nil observability", func(t *testing.T) {
		_, err := New(WithLogger(nil))
		assert.ErrorContains(t, err, "logger cannot be nil")
		_, err = New(WithMetrics(nil))
		assert.ErrorContains(t, err, "metrics cannot be nil")
		_, err = New(WithTracer(nil))
		assert.ErrorContains(t, err, "tracer cannot be nil")
	})
}
