// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin manages admin accounts and their one-time tokens.

# Token Lifecycle

Email verification and password reset tokens follow the same state machine per
user: Absent, then Issued (a 25-character token, plus an expiry when a validity
duration is configured), then Consumed (token and expiry deleted) after a
successful use. Tokens are never reused.

# Storage

The [Controller] owns no user state. Every read goes to the [Store] and every
mutation is a single conditional update, so a token is consumed at most once
even under concurrent requests.
*/
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/config"
	"github.com/taibuivan/parseadmin/internal/platform/metrics"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/rest"
)

var (
	// ErrUserNotFound is returned when a lookup does not resolve to exactly one user.
	ErrUserNotFound = apperr.NotFound("User")

	// ErrBootstrapClosed refuses anonymous signup once the first admin is claimed.
	ErrBootstrapClosed = apperr.Unauthorized("Authentication required")
)

// ResetFailure is the message-only failure surfaced by [Controller.UpdatePassword]
// for client-facing errors. Infrastructure errors are never converted to it.
type ResetFailure struct {
	Message string
}

func (failure *ResetFailure) Error() string { return failure.Message }

// VerificationResult tells the outcomes of [Controller.VerifyEmail] apart.
type VerificationResult struct {
	// User is the verified record, or nil when the token matched nothing.
	User rest.Record

	// AlreadyVerified is set when the user was verified before this call.
	AlreadyVerified bool

	// Updated is set when this call consumed the token.
	Updated bool
}

// Option customises a [Controller].
type Option func(*Controller)

// WithClock replaces the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(controller *Controller) { controller.now = now }
}

// # Controller

// Controller implements the admin user token lifecycle.
type Controller struct {
	adaptable

	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewController constructs a [Controller]. mailer may be nil when email
// verification is disabled; flows that need it then fail with NoAdapterConfigured.
func NewController(store Store, mailer MailAdapter, cfg *config.Config, logger *slog.Logger, options ...Option) (*Controller, error) {
	base, err := newAdaptable(mailer, cfg)
	if err != nil {
		return nil, err
	}

	controller := &Controller{
		adaptable: base,
		store:     store,
		now:       time.Now,
		logger:    logger,
	}
	for _, option := range options {
		option(controller)
	}
	return controller, nil
}

// # Email Verification

// SetEmailVerifyToken stamps a fresh verification token on user when email
// verification is enabled. Only the in-memory record changes; persisting it is
// the caller's job.
func (controller *Controller) SetEmailVerifyToken(user rest.Record) error {
	if !controller.config.VerifyUserEmails {
		return nil
	}

	token, err := sec.RandomString(TokenLength)
	if err != nil {
		return fmt.Errorf("admin_generate_verify_token_failed: %w", err)
	}

	user[FieldEmailVerifyToken] = token
	user[FieldEmailVerified] = false

	if expiresAt, ok := controller.config.GenerateEmailVerifyTokenExpiresAt(controller.now()); ok {
		user[FieldEmailVerifyTokenExpiresAt] = rest.EncodeDate(expiresAt)
	}

	metrics.TokenEvents.WithLabelValues(kindVerification, "issued").Inc()
	return nil
}

/*
VerifyEmail consumes a verification token.

Description: A user already verified under username is returned as is, without
touching the token. Otherwise one conditional update sets emailVerified and
deletes the token and its expiry. Under an expiry policy the update also
requires an unverified user and an unexpired token.

Parameters:
  - context: context.Context
  - username: string
  - token: string

Returns:
  - VerificationResult: User is nil when the token matched nothing
  - error: VerificationDisabled, or storage failures
*/
func (controller *Controller) VerifyEmail(context context.Context, username, token string) (VerificationResult, error) {
	if !controller.config.VerifyUserEmails {
		return VerificationResult{}, apperr.VerificationDisabled()
	}

	verified, err := controller.store.Find(context, ClassName,
		rest.Query{FieldUsername: username, FieldEmailVerified: true},
		rest.FindOptions{Limit: 1},
	)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("admin_verify_email_lookup_failed: %w", err)
	}
	if len(verified) > 0 {
		return VerificationResult{User: verified[0], AlreadyVerified: true}, nil
	}

	query := rest.Query{FieldUsername: username, FieldEmailVerifyToken: token}
	if controller.config.EmailVerifyTokenValidityDuration > 0 {
		query[FieldEmailVerified] = false
		query[FieldEmailVerifyTokenExpiresAt] = map[string]any{"$gt": rest.EncodeDate(controller.now())}
	}

	updated, err := controller.store.Update(context, ClassName, query, rest.Record{
		FieldEmailVerified:             true,
		FieldEmailVerifyToken:          rest.DeleteOp(),
		FieldEmailVerifyTokenExpiresAt: rest.DeleteOp(),
	})
	if err != nil {
		return VerificationResult{}, fmt.Errorf("admin_verify_email_update_failed: %w", err)
	}
	if updated == nil {
		metrics.TokenEvents.WithLabelValues(kindVerification, "rejected").Inc()
		return VerificationResult{}, nil
	}

	metrics.TokenEvents.WithLabelValues(kindVerification, "consumed").Inc()
	controller.logger.Info("email_verify_token_consumed", slog.String("username", username))
	return VerificationResult{User: updated, Updated: true}, nil
}

// # Password Reset

/*
CheckResetTokenValidity resolves the user owning a reset token.

Parameters:
  - context: context.Context
  - username: string
  - token: string

Returns:
  - rest.Record: the full matched record
  - error: InvalidToken unless exactly one user matches; TokenExpired when an
    expiry policy is active and the stored expiry has passed
*/
func (controller *Controller) CheckResetTokenValidity(context context.Context, username, token string) (rest.Record, error) {
	results, err := controller.store.Find(context, ClassName,
		rest.Query{FieldUsername: username, FieldPerishableToken: token},
		rest.FindOptions{Limit: 2},
	)
	if err != nil {
		return nil, fmt.Errorf("admin_check_reset_token_failed: %w", err)
	}
	if len(results) != 1 {
		metrics.TokenEvents.WithLabelValues(kindReset, "rejected").Inc()
		return nil, apperr.InvalidToken(msgResetTokenInvalid)
	}

	user := results[0]

	// An absent expiry never expires, even under an active policy.
	if controller.config.PasswordPolicy.ResetTokenValidityDuration > 0 {
		if raw, present := user[FieldPerishableTokenExpiresAt]; present && raw != nil {
			expiresAt, err := rest.DecodeDate(raw)
			if err != nil || expiresAt.Before(controller.now()) {
				metrics.TokenEvents.WithLabelValues(kindReset, "expired").Inc()
				return nil, apperr.TokenExpired(msgResetTokenExpired)
			}
		}
	}

	return user, nil
}

/*
SetPasswordResetToken issues a reset token for the user identified by email.

Description: The value matches either the email, or the username of an account
that has no email, so callers can pass whichever the user typed.

Returns:
  - rest.Record: the updated user
  - error: [ErrUserNotFound], or storage failures
*/
func (controller *Controller) SetPasswordResetToken(context context.Context, email string) (rest.Record, error) {
	token, err := sec.RandomString(TokenLength)
	if err != nil {
		return nil, fmt.Errorf("admin_generate_reset_token_failed: %w", err)
	}

	body := rest.Record{FieldPerishableToken: token}
	if expiresAt, ok := controller.config.GeneratePasswordResetTokenExpiresAt(controller.now()); ok {
		body[FieldPerishableTokenExpiresAt] = rest.EncodeDate(expiresAt)
	}

	where := rest.Query{"$or": []any{
		rest.Query{FieldEmail: email},
		rest.Query{FieldUsername: email, FieldEmail: map[string]any{"$exists": false}},
	}}

	updated, err := controller.store.Update(context, ClassName, where, body)
	if err != nil {
		return nil, fmt.Errorf("admin_set_reset_token_failed: %w", err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	metrics.TokenEvents.WithLabelValues(kindReset, "issued").Inc()
	return updated, nil
}

/*
UpdatePassword resets a password with a reset token.

Description: The token is validated first. The password write is keyed by the
resolved objectId and the token itself, and deletes the token and its expiry in
the same update, so a token cannot be used twice.

Returns:
  - error: *ResetFailure carrying only the message of client-facing errors;
    infrastructure errors unchanged
*/
func (controller *Controller) UpdatePassword(context context.Context, username, token, password string) error {
	err := controller.updatePassword(context, username, token, password)
	if err == nil {
		return nil
	}

	if appErr := apperr.As(err); appErr != nil && appErr.Message != "" {
		return &ResetFailure{Message: appErr.Message}
	}
	return err
}

func (controller *Controller) updatePassword(context context.Context, username, token, password string) error {
	user, err := controller.CheckResetTokenValidity(context, username, token)
	if err != nil {
		return err
	}

	updated, err := controller.store.Update(context, ClassName,
		rest.Query{FieldObjectID: user[FieldObjectID], FieldPerishableToken: token},
		rest.Record{
			FieldPassword:                 password,
			FieldPerishableToken:          rest.DeleteOp(),
			FieldPerishableTokenExpiresAt: rest.DeleteOp(),
		},
	)
	if err != nil {
		return fmt.Errorf("admin_update_password_failed: %w", err)
	}
	if updated == nil {
		return apperr.InvalidToken(msgResetTokenInvalid)
	}

	metrics.TokenEvents.WithLabelValues(kindReset, "consumed").Inc()
	controller.logger.Info("password_reset_completed", slog.String("username", username))
	return nil
}

// # Mail Flows

// GetUserIfNeeded returns user when it carries both username and email, and
// otherwise resolves the full record by whichever of the two it has.
func (controller *Controller) GetUserIfNeeded(context context.Context, user rest.Record) (rest.Record, error) {
	username := stringField(user, FieldUsername)
	email := stringField(user, FieldEmail)

	if username != "" && email != "" {
		return user, nil
	}

	where := rest.Query{}
	if username != "" {
		where[FieldUsername] = username
	}
	if email != "" {
		where[FieldEmail] = email
	}
	if len(where) == 0 {
		return nil, ErrUserNotFound
	}

	results, err := controller.store.Find(context, ClassName, where, rest.FindOptions{Limit: 2})
	if err != nil {
		return nil, fmt.Errorf("admin_get_user_failed: %w", err)
	}
	if len(results) != 1 {
		return nil, ErrUserNotFound
	}
	return results[0], nil
}

// SendVerificationEmail mails the verification link for the token on user.
func (controller *Controller) SendVerificationEmail(context context.Context, user rest.Record) error {
	if !controller.config.VerifyUserEmails {
		return apperr.VerificationDisabled()
	}
	if !controller.hasMailer() {
		return apperr.NoAdapterConfigured("Trying to send a verification email but no adapter is set")
	}

	token := stringField(user, FieldEmailVerifyToken)

	// The record may be partial, e.g. after an email change.
	full, err := controller.GetUserIfNeeded(context, user)
	if err != nil {
		return err
	}
	if token == "" {
		token = stringField(full, FieldEmailVerifyToken)
	}

	options := EmailOptions{
		AppName: controller.config.AppName,
		Link:    BuildEmailLink(controller.config.VerifyEmailURL(), stringField(full, FieldUsername), token, controller.config),
		User:    PublicView(full),
	}

	if sender, ok := controller.mailer.(VerificationEmailSender); ok {
		err = sender.SendVerificationEmail(context, options)
	} else {
		err = controller.mailer.SendMail(context, DefaultVerificationEmail(options))
	}
	if err != nil {
		return fmt.Errorf("admin_send_verification_email_failed: %w", err)
	}

	controller.logger.Info("verification_email_sent", slog.String("username", stringField(full, FieldUsername)))
	return nil
}

// SendPasswordResetEmail issues a reset token for email and mails the link.
// It returns the updated user.
func (controller *Controller) SendPasswordResetEmail(context context.Context, email string) (rest.Record, error) {
	if !controller.hasMailer() {
		return nil, apperr.NoAdapterConfigured("Trying to send a reset password but no adapter is set")
	}

	user, err := controller.SetPasswordResetToken(context, email)
	if err != nil {
		return nil, err
	}

	options := EmailOptions{
		AppName: controller.config.AppName,
		Link: BuildEmailLink(controller.config.RequestResetPasswordURL(),
			stringField(user, FieldUsername), stringField(user, FieldPerishableToken), controller.config),
		User: PublicView(user),
	}

	if sender, ok := controller.mailer.(PasswordResetEmailSender); ok {
		err = sender.SendPasswordResetEmail(context, options)
	} else {
		err = controller.mailer.SendMail(context, DefaultResetPasswordEmail(options))
	}
	if err != nil {
		return nil, fmt.Errorf("admin_send_reset_email_failed: %w", err)
	}

	controller.logger.Info("password_reset_email_sent", slog.String("username", stringField(user, FieldUsername)))
	return user, nil
}

// ResendVerificationEmail regenerates the verification token of the user with
// email and sends it again.
func (controller *Controller) ResendVerificationEmail(context context.Context, email string) error {
	if !controller.config.VerifyUserEmails {
		return apperr.VerificationDisabled()
	}

	results, err := controller.store.Find(context, ClassName, rest.Query{FieldEmail: email}, rest.FindOptions{Limit: 2})
	if err != nil {
		return fmt.Errorf("admin_resend_lookup_failed: %w", err)
	}
	if len(results) != 1 {
		return apperr.NotFound("User with email " + email)
	}

	user := results[0]
	if verified, _ := user[FieldEmailVerified].(bool); verified {
		return apperr.Conflict("Email " + email + " is already verified.")
	}

	if err := controller.SetEmailVerifyToken(user); err != nil {
		return err
	}

	body := rest.Record{
		FieldEmailVerifyToken:          user[FieldEmailVerifyToken],
		FieldEmailVerified:             false,
		FieldEmailVerifyTokenExpiresAt: rest.DeleteOp(),
	}
	if controller.config.EmailVerifyTokenValidityDuration > 0 {
		body[FieldEmailVerifyTokenExpiresAt] = user[FieldEmailVerifyTokenExpiresAt]
	}

	updated, err := controller.store.Update(context, ClassName, rest.Query{FieldObjectID: user[FieldObjectID]}, body)
	if err != nil {
		return fmt.Errorf("admin_resend_update_failed: %w", err)
	}
	if updated == nil {
		return ErrUserNotFound
	}

	return controller.SendVerificationEmail(context, updated)
}

// # Accounts

// SignUpInput carries the fields of a new admin account.
type SignUpInput struct {
	Username string
	Email    string
	Password string
	Role     sec.UserRole
}

// SignUp creates an admin account. With email verification on, the account
// starts unverified and the verification email is sent; a failed send is
// logged and does not undo the signup.
func (controller *Controller) SignUp(context context.Context, input SignUpInput) (rest.Record, error) {
	user := rest.Record{
		FieldUsername: input.Username,
		FieldPassword: input.Password,
		FieldRole:     string(input.Role),
	}
	if input.Email != "" {
		user[FieldEmail] = input.Email
	}

	if err := controller.SetEmailVerifyToken(user); err != nil {
		return nil, err
	}

	created, err := controller.store.Create(context, ClassName, user)
	if err != nil {
		return nil, err
	}

	controller.logger.Info("admin_user_created", slog.String("username", input.Username))

	if controller.config.VerifyUserEmails && input.Email != "" {
		if err := controller.SendVerificationEmail(context, created); err != nil {
			controller.logger.Warn("verification_email_failed",
				slog.String("username", input.Username),
				slog.Any("error", err),
			)
		}
	}

	return created, nil
}

/*
BootstrapAdmin creates the first admin account without authentication.

Description: Only allowed while no admin exists. Concurrent callers are
serialized by a sentinel record in [BootstrapClassName] whose key is unique:
the caller that inserts it proceeds and every other one is refused. A signup
that fails after the claim releases the sentinel so the bootstrap can be
retried. The account is always created with the admin role.

Returns:
  - rest.Record: the created admin
  - error: [ErrBootstrapClosed] once an admin exists or the claim is taken
*/
func (controller *Controller) BootstrapAdmin(context context.Context, input SignUpInput) (rest.Record, error) {
	exists, err := controller.HasUsers(context)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBootstrapClosed
	}

	claim, err := controller.store.Create(context, BootstrapClassName, rest.Record{
		fieldBootstrapKey: bootstrapKeyFirstAdmin,
		FieldUsername:     input.Username,
	})
	if apperr.HasCode(err, apperr.CodeConflict) {
		return nil, ErrBootstrapClosed
	}
	if err != nil {
		return nil, fmt.Errorf("admin_bootstrap_claim_failed: %w", err)
	}

	input.Role = sec.RoleAdmin
	created, err := controller.SignUp(context, input)
	if err != nil {
		controller.releaseBootstrap(context, claim)
		return nil, err
	}
	return created, nil
}

// releaseBootstrap frees the unique sentinel key of a claim whose signup failed.
func (controller *Controller) releaseBootstrap(context context.Context, claim rest.Record) {
	claimID := stringField(claim, FieldObjectID)
	_, err := controller.store.Update(context, BootstrapClassName,
		rest.Query{FieldObjectID: claimID},
		rest.Record{fieldBootstrapKey: "released:" + claimID},
	)
	if err != nil {
		controller.logger.Warn("admin_bootstrap_release_failed",
			slog.String("claim_id", claimID),
			slog.Any("error", err),
		)
	}
}

// HasUsers reports whether any admin account exists.
func (controller *Controller) HasUsers(context context.Context) (bool, error) {
	results, err := controller.store.Find(context, ClassName, rest.Query{}, rest.FindOptions{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("admin_count_users_failed: %w", err)
	}
	return len(results) > 0, nil
}

// IsResetFailure reports whether err is a message-only reset failure.
func IsResetFailure(err error) (*ResetFailure, bool) {
	var failure *ResetFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
