// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements admin login, logout and session lookup.

A successful login yields two credentials:

  - Access token: a short-lived RS256 JWT carried as a Bearer token.
  - Session token: an opaque random string whose SHA-256 hash keys a Redis
    entry holding the admin id until the session TTL elapses.

Admin accounts themselves live in the _AdminUser class and are read through
the same rest store the admin controller writes to.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/constants"
	"github.com/taibuivan/parseadmin/internal/platform/metrics"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/rest"
	"github.com/taibuivan/parseadmin/internal/users/admin"
)

const kindSession = "session"

// ErrSessionNotFound is returned when a session token does not resolve.
var ErrSessionNotFound = apperr.Unauthorized("Invalid session token")

// errInvalidCredentials covers both unknown usernames and wrong passwords.
var errInvalidCredentials = apperr.Unauthorized("Invalid username/password.")

// # Contracts & Types

// TokenIssuer creates signed access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID, username string, role sec.UserRole, timeToLive time.Duration) (string, error)
}

// Options tunes a [Service].
type Options struct {
	// SessionTTL bounds the lifetime of a session token.
	SessionTTL time.Duration

	// RequireVerifiedEmail blocks logins from admins whose email is unverified.
	RequireVerifiedEmail bool

	// Now replaces the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service implements the admin session use cases.
type Service struct {
	users    admin.Store
	sessions Store
	tokens   TokenIssuer
	options  Options
	logger   *slog.Logger
}

// NewService constructs a new [Service].
func NewService(users admin.Store, sessions Store, tokens TokenIssuer, options Options, logger *slog.Logger) *Service {
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		options:  options,
		logger:   logger,
	}
}

// LoginInput holds admin credentials.
type LoginInput struct {
	Username string
	Password string
}

// LoginSession is an established admin session.
type LoginSession struct {
	AccessToken  string      `json:"access_token"`
	SessionToken string      `json:"session_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         rest.Record `json:"user"`
}

// # Authentication Flow

/*
Login validates admin credentials and opens a session.

Description: Looks the admin up by username, compares the bcrypt hash, then
issues an access token and a session token. When email verification is
required, unverified admins are refused after the password check. A hash
written at a lower bcrypt cost is upgraded on a successful login.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready credentials and the public user record
  - error: Unauthorized, Forbidden or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	records, err := service.users.Find(context, admin.ClassName,
		rest.Query{admin.FieldUsername: input.Username}, rest.FindOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("session_login_lookup_failed: %w", err)
	}
	if len(records) == 0 {
		return nil, errInvalidCredentials
	}
	user := records[0]

	hashed, _ := user[admin.FieldHashedPassword].(string)
	if hashed == "" || !sec.CheckPasswordHash(input.Password, hashed) {
		return nil, errInvalidCredentials
	}

	if service.options.RequireVerifiedEmail {
		if verified, _ := user[admin.FieldEmailVerified].(bool); !verified {
			return nil, apperr.Forbidden("User email is not verified.")
		}
	}

	userID, _ := user[admin.FieldObjectID].(string)
	role, _ := user[admin.FieldRole].(string)

	if sec.NeedsRehash(hashed) {
		service.upgradePasswordHash(context, userID, input.Password)
	}

	accessToken, err := service.tokens.GenerateAccessToken(userID, input.Username, sec.ParseRole(role), constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("session_access_token_failed: %w", err)
	}

	sessionToken, err := sec.RandomString(constants.SessionTokenLength)
	if err != nil {
		return nil, fmt.Errorf("session_token_generate_failed: %w", err)
	}

	if err := service.sessions.Save(context, sec.HashToken(sessionToken), userID, service.options.SessionTTL); err != nil {
		return nil, fmt.Errorf("session_save_failed: %w", err)
	}

	metrics.TokenEvents.WithLabelValues(kindSession, "issued").Inc()
	service.logger.Info("admin_logged_in", slog.String("user_id", userID))

	return &LoginSession{
		AccessToken:  accessToken,
		SessionToken: sessionToken,
		ExpiresAt:    service.options.Now().Add(service.options.SessionTTL).UTC(),
		User:         admin.PublicView(user),
	}, nil
}

// upgradePasswordHash rewrites a hash stored at a lower bcrypt cost. A failed
// rewrite is logged and does not fail the login.
func (service *Service) upgradePasswordHash(context context.Context, userID, password string) {
	_, err := service.users.Update(context, admin.ClassName,
		rest.Query{admin.FieldObjectID: userID}, rest.Record{admin.FieldPassword: password})
	if err != nil {
		service.logger.Warn("password_rehash_failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	service.logger.Info("password_rehashed", slog.String("user_id", userID))
}

// Logout ends a session. Unknown tokens are ignored.
func (service *Service) Logout(context context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := service.sessions.Delete(context, sec.HashToken(sessionToken)); err != nil {
		return fmt.Errorf("session_logout_failed: %w", err)
	}
	metrics.TokenEvents.WithLabelValues(kindSession, "revoked").Inc()
	return nil
}

/*
Me resolves the admin owning a session token.

Returns:
  - rest.Record: the public admin record
  - error: ErrSessionNotFound when the token or its admin no longer exists
*/
func (service *Service) Me(context context.Context, sessionToken string) (rest.Record, error) {
	if sessionToken == "" {
		return nil, ErrSessionNotFound
	}

	userID, err := service.sessions.UserID(context, sec.HashToken(sessionToken))
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session_lookup_failed: %w", err)
	}

	records, err := service.users.Find(context, admin.ClassName,
		rest.Query{admin.FieldObjectID: userID}, rest.FindOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("session_user_lookup_failed: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrSessionNotFound
	}

	return admin.PublicView(records[0]), nil
}
