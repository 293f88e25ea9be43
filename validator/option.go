package validator

import (
	"errors"
	"time"

	"github.com/sessionkit/verifytoken/core"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithResolver sets how signing keys are found. Pass a shared
// *jwks.Resolver to share its key cache between validators.
func WithResolver(r KeyResolver) Option {
	return func(v *Validator) error {
		if r == nil {
			return errors.New("resolver cannot be nil")
		}
		v.resolver = r
		return nil
	}
}

// WithLogger sets the logger. When no resolver is given, the default
// resolver logs through it too.
func WithLogger(logger core.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m core.Metrics) Option {
	return func(v *Validator) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		v.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t core.Tracer) Option {
	return func(v *Validator) error {
		if t == nil {
			return errors.New("tracer cannot be nil")
		}
		v.tracer = t
		return nil
	}
}

// WithClock sets the time source for claim checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
