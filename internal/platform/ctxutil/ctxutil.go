// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil carries per-request values through [context.Context]: the
// request id, the request-scoped logger and the verified admin claims.
//
// # Keys
//
// Keys are values of an unexported type, so no other package can read or
// overwrite these entries with context.WithValue directly.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/parseadmin/internal/platform/sec"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	loggerKey
	adminKey
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger retrieves the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Admin Identity

// WithAuthUser returns a new context carrying the verified admin claims.
func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, adminKey, claims)
}

// GetAuthUser returns the verified admin claims, or nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(adminKey).(*sec.AuthClaims)
	return claims
}

// AdminRole returns the role of the authenticated admin. The second result is
// false for anonymous requests.
func AdminRole(ctx context.Context) (sec.UserRole, bool) {
	claims := GetAuthUser(ctx)
	if claims == nil {
		return "", false
	}
	return sec.ParseRole(claims.Role), true
}

// HasRole reports whether the request is authenticated with role or above.
func HasRole(ctx context.Context, role sec.UserRole) bool {
	current, ok := AdminRole(ctx)
	return ok && current.AtLeast(role)
}
