// Package verifygrpc authenticates session tokens on gRPC servers.
package verifygrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/sessionkit/verifytoken/core"
)

// Interceptor verifies the session token of incoming gRPC calls.
type Interceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          core.Logger

	verifier            core.TokenVerifier
	credentialsOptional bool
}

// New creates an interceptor. WithVerifier or WithValidator is required.
func New(opts ...Option) (*Interceptor, error) {
	i := &Interceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		logger:          core.NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if i.verifier == nil {
		return nil, errors.New("verifier is required, use WithVerifier or WithValidator option")
	}

	c, err := core.New(
		core.WithVerifier(i.verifier),
		core.WithCredentialsOptional(i.credentialsOptional),
		core.WithLogger(i.logger),
	)
	if err != nil {
		return nil, err
	}
	i.core = c

	return i, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that verifies
// the call's token and makes the claims available in the handler context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping token verification for excluded method",
				"method", info.FullMethod)
			return handler(ctx, req)
		}

		verifiedCtx, err := i.verifyRequest(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(verifiedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// verifies the stream's token and makes the claims available in the stream
// context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping token verification for excluded method",
				"method", info.FullMethod)
			return handler(srv, ss)
		}

		verifiedCtx, err := i.verifyRequest(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: verifiedCtx})
	}
}

func (i *Interceptor) verifyRequest(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.logger.Error("failed to extract token from gRPC metadata",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	claims, err := i.core.CheckToken(ctx, token)
	if err != nil {
		i.logger.Warn("token verification failed",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	if claims != nil {
		ctx = core.SetClaims(ctx, claims)
	}
	return ctx, nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the claims.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
