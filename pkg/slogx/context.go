package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

type requestKey struct{}

// requestInfo is what HTTPMiddleware knows about the inbound request.
type requestInfo struct {
	id         string
	remoteAddr string
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID tags the context logger and records reqID for
// RequestIDFromContext.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	info, _ := ctx.Value(requestKey{}).(requestInfo)
	info.id = reqID
	ctx = context.WithValue(ctx, requestKey{}, info)

	l := FromContext(ctx)
	return WithContext(ctx, l.With("req_id", reqID))
}

// WithAttrs returns a context whose logger carries the extra attributes.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// RequestIDFromContext returns the id assigned by HTTPMiddleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	info, _ := ctx.Value(requestKey{}).(requestInfo)
	return info.id
}

// RemoteAddrFromContext returns the peer address seen by HTTPMiddleware, or "".
func RemoteAddrFromContext(ctx context.Context) string {
	info, _ := ctx.Value(requestKey{}).(requestInfo)
	return info.remoteAddr
}
