// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/config"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/rest"
	"github.com/taibuivan/parseadmin/internal/storage"
	"github.com/taibuivan/parseadmin/internal/users/admin"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// # Fakes

type recordingMailer struct {
	mails []admin.Mail
	err   error
}

func (m *recordingMailer) SendMail(_ context.Context, mail admin.Mail) error {
	m.mails = append(m.mails, mail)
	return m.err
}

type templatingMailer struct {
	recordingMailer
	verifications []admin.EmailOptions
	resets        []admin.EmailOptions
}

func (m *templatingMailer) SendVerificationEmail(_ context.Context, options admin.EmailOptions) error {
	m.verifications = append(m.verifications, options)
	return nil
}

func (m *templatingMailer) SendPasswordResetEmail(_ context.Context, options admin.EmailOptions) error {
	m.resets = append(m.resets, options)
	return nil
}

// # Fixture

type fixture struct {
	controller *admin.Controller
	store      *rest.Store
	users      *storage.MemoryCollection
	cfg        *config.Config
}

func baseConfig() *config.Config {
	return &config.Config{
		AppID:            "app",
		AppName:          "Parse Admin",
		PublicServerURL:  "https://example.com/parse",
		VerifyUserEmails: true,
	}
}

func newFixture(t *testing.T, cfg *config.Config, mailer admin.MailAdapter) *fixture {
	t.Helper()

	database := storage.NewMemoryDatabase()
	users := storage.NewMemoryCollection("username", "email")
	database.Register(admin.ClassName, users)
	database.Register(admin.BootstrapClassName, storage.NewMemoryCollection("key"))

	store := rest.NewStore(database,
		rest.WithClock(func() time.Time { return fixedNow }),
		rest.WithPasswordHasher(func(p string) (string, error) { return "hashed:" + p, nil }),
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	controller, err := admin.NewController(store, mailer, cfg, logger,
		admin.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	return &fixture{controller: controller, store: store, users: users, cfg: cfg}
}

func (f *fixture) seed(t *testing.T, user rest.Record) rest.Record {
	t.Helper()
	created, err := f.store.Create(context.Background(), admin.ClassName, user)
	require.NoError(t, err)
	return created
}

func (f *fixture) stored(t *testing.T, username string) storage.Document {
	t.Helper()
	docs, err := f.users.Find(context.Background(), storage.Document{"username": username}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

// # Construction

func TestNewController_RequiresMailerForVerification(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := admin.NewController(nil, nil, baseConfig(), logger)
	assert.Error(t, err)

	cfg := baseConfig()
	cfg.VerifyUserEmails = false
	_, err = admin.NewController(nil, nil, cfg, logger)
	assert.NoError(t, err)
}

// # SetEmailVerifyToken

func TestSetEmailVerifyToken(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := baseConfig()
		cfg.VerifyUserEmails = false
		f := newFixture(t, cfg, nil)

		user := rest.Record{"username": "alice"}
		require.NoError(t, f.controller.SetEmailVerifyToken(user))
		assert.Equal(t, rest.Record{"username": "alice"}, user)
	})

	t.Run("no_expiry_policy", func(t *testing.T) {
		f := newFixture(t, baseConfig(), &recordingMailer{})

		user := rest.Record{"username": "alice"}
		require.NoError(t, f.controller.SetEmailVerifyToken(user))

		assert.Len(t, user[admin.FieldEmailVerifyToken], admin.TokenLength)
		assert.Equal(t, false, user[admin.FieldEmailVerified])
		assert.NotContains(t, user, admin.FieldEmailVerifyTokenExpiresAt)
	})

	t.Run("with_expiry_policy", func(t *testing.T) {
		cfg := baseConfig()
		cfg.EmailVerifyTokenValidityDuration = 2 * time.Hour
		f := newFixture(t, cfg, &recordingMailer{})

		user := rest.Record{"username": "alice"}
		require.NoError(t, f.controller.SetEmailVerifyToken(user))

		assert.Equal(t, rest.EncodeDate(fixedNow.Add(2*time.Hour)), user[admin.FieldEmailVerifyTokenExpiresAt])
	})
}

// # VerifyEmail

func TestVerifyEmail_Disabled(t *testing.T) {
	cfg := baseConfig()
	cfg.VerifyUserEmails = false
	f := newFixture(t, cfg, nil)

	_, err := f.controller.VerifyEmail(context.Background(), "alice", "tok123")
	assert.True(t, apperr.HasCode(err, apperr.CodeVerificationDisabled))
}

func TestVerifyEmail_ConsumesToken(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "alice", "emailVerified": false, admin.FieldEmailVerifyToken: "tok123"})

	result, err := f.controller.VerifyEmail(context.Background(), "alice", "tok123")
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.False(t, result.AlreadyVerified)
	require.NotNil(t, result.User)

	doc := f.stored(t, "alice")
	assert.Equal(t, true, doc["emailVerified"])
	assert.NotContains(t, doc, admin.FieldEmailVerifyToken)
}

func TestVerifyEmail_AlreadyVerifiedReturnsRecord(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "alice", "emailVerified": true})

	result, err := f.controller.VerifyEmail(context.Background(), "alice", "anything")
	require.NoError(t, err)
	assert.True(t, result.AlreadyVerified)
	assert.False(t, result.Updated)
	require.NotNil(t, result.User)
	assert.Equal(t, "alice", result.User["username"])
}

func TestVerifyEmail_WrongToken(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "alice", "emailVerified": false, admin.FieldEmailVerifyToken: "tok123"})

	result, err := f.controller.VerifyEmail(context.Background(), "alice", "nope")
	require.NoError(t, err)
	assert.Nil(t, result.User)
	assert.Contains(t, f.stored(t, "alice"), admin.FieldEmailVerifyToken)
}

func TestVerifyEmail_ExpiryPolicy(t *testing.T) {
	cfg := baseConfig()
	cfg.EmailVerifyTokenValidityDuration = time.Hour
	f := newFixture(t, cfg, &recordingMailer{})

	f.seed(t, rest.Record{
		"username":                           "late",
		"emailVerified":                      false,
		admin.FieldEmailVerifyToken:          "old",
		admin.FieldEmailVerifyTokenExpiresAt: rest.EncodeDate(fixedNow.Add(-time.Minute)),
	})
	f.seed(t, rest.Record{
		"username":                           "ontime",
		"emailVerified":                      false,
		admin.FieldEmailVerifyToken:          "fresh",
		admin.FieldEmailVerifyTokenExpiresAt: rest.EncodeDate(fixedNow.Add(time.Minute)),
	})

	result, err := f.controller.VerifyEmail(context.Background(), "late", "old")
	require.NoError(t, err)
	assert.Nil(t, result.User)

	result, err = f.controller.VerifyEmail(context.Background(), "ontime", "fresh")
	require.NoError(t, err)
	assert.True(t, result.Updated)

	doc := f.stored(t, "ontime")
	assert.NotContains(t, doc, admin.FieldEmailVerifyToken)
	assert.NotContains(t, doc, admin.FieldEmailVerifyTokenExpiresAt)
}

// # CheckResetTokenValidity

func TestCheckResetTokenValidity(t *testing.T) {
	cfg := baseConfig()
	cfg.PasswordPolicy.ResetTokenValidityDuration = time.Hour
	f := newFixture(t, cfg, &recordingMailer{})

	f.seed(t, rest.Record{
		"username":                          "bob",
		admin.FieldPerishableToken:          "expiredTok",
		admin.FieldPerishableTokenExpiresAt: rest.EncodeDate(fixedNow.Add(-time.Second)),
	})
	f.seed(t, rest.Record{
		"username":                          "carol",
		admin.FieldPerishableToken:          "goodTok",
		admin.FieldPerishableTokenExpiresAt: rest.EncodeDate(fixedNow.Add(time.Minute)),
	})
	f.seed(t, rest.Record{
		"username":                 "dave",
		admin.FieldPerishableToken: "noExpiry",
	})

	ctx := context.Background()

	_, err := f.controller.CheckResetTokenValidity(ctx, "bob", "expiredTok")
	assert.True(t, apperr.HasCode(err, apperr.CodeTokenExpired))

	_, err = f.controller.CheckResetTokenValidity(ctx, "bob", "wrong")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidToken))

	user, err := f.controller.CheckResetTokenValidity(ctx, "carol", "goodTok")
	require.NoError(t, err)
	assert.Equal(t, "carol", user["username"])
	assert.NotEmpty(t, user["objectId"])

	// No stored expiry under an active policy is still valid.
	_, err = f.controller.CheckResetTokenValidity(ctx, "dave", "noExpiry")
	assert.NoError(t, err)
}

func TestCheckResetTokenValidity_NoPolicyIgnoresExpiry(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{
		"username":                          "bob",
		admin.FieldPerishableToken:          "tok",
		admin.FieldPerishableTokenExpiresAt: rest.EncodeDate(fixedNow.Add(-time.Hour)),
	})

	_, err := f.controller.CheckResetTokenValidity(context.Background(), "bob", "tok")
	assert.NoError(t, err)
}

// # SetPasswordResetToken

func TestSetPasswordResetToken_MatchesUsernameWithoutEmail(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "bob@example.com"})

	user, err := f.controller.SetPasswordResetToken(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Len(t, user[admin.FieldPerishableToken], admin.TokenLength)

	doc := f.stored(t, "bob@example.com")
	assert.Equal(t, user[admin.FieldPerishableToken], doc[admin.FieldPerishableToken])
}

func TestSetPasswordResetToken_MatchesEmail(t *testing.T) {
	cfg := baseConfig()
	cfg.PasswordPolicy.ResetTokenValidityDuration = 30 * time.Minute
	f := newFixture(t, cfg, &recordingMailer{})
	f.seed(t, rest.Record{"username": "bob", "email": "bob@example.com"})

	user, err := f.controller.SetPasswordResetToken(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", user["username"])
	assert.Equal(t, rest.EncodeDate(fixedNow.Add(30*time.Minute)), user[admin.FieldPerishableTokenExpiresAt])
}

func TestSetPasswordResetToken_UsernameWithEmailDoesNotMatch(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "bob@example.com", "email": "other@example.com"})

	_, err := f.controller.SetPasswordResetToken(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, admin.ErrUserNotFound)
}

// # UpdatePassword

func TestUpdatePassword_ConsumesToken(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	f.seed(t, rest.Record{"username": "bob", admin.FieldPerishableToken: "tok"})

	require.NoError(t, f.controller.UpdatePassword(context.Background(), "bob", "tok", "new-password"))

	doc := f.stored(t, "bob")
	assert.Equal(t, "hashed:new-password", doc[admin.FieldHashedPassword])
	assert.NotContains(t, doc, admin.FieldPerishableToken)
	assert.NotContains(t, doc, "password")

	// A second use of the same token fails.
	err := f.controller.UpdatePassword(context.Background(), "bob", "tok", "again-password")
	failure, ok := admin.IsResetFailure(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to reset password: username / email / token is invalid", failure.Message)
}

func TestUpdatePassword_ExpiredIsMessageOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.PasswordPolicy.ResetTokenValidityDuration = time.Hour
	f := newFixture(t, cfg, &recordingMailer{})
	f.seed(t, rest.Record{
		"username":                          "bob",
		admin.FieldPerishableToken:          "tok",
		admin.FieldPerishableTokenExpiresAt: rest.EncodeDate(fixedNow.Add(-time.Hour)),
	})

	err := f.controller.UpdatePassword(context.Background(), "bob", "tok", "new-password")
	failure, ok := admin.IsResetFailure(err)
	require.True(t, ok)
	assert.Equal(t, "The password reset link has expired", failure.Message)
	assert.False(t, apperr.IsAppError(err))
}

func TestUpdatePassword_InfrastructureErrorPassesThrough(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})
	boom := errors.New("socket closed")
	f.users.FailNext(boom)

	err := f.controller.UpdatePassword(context.Background(), "bob", "tok", "new-password")
	assert.ErrorIs(t, err, boom)
	_, ok := admin.IsResetFailure(err)
	assert.False(t, ok)
}

// # Mail Flows

func TestSendPasswordResetEmail_NoAdapter(t *testing.T) {
	cfg := baseConfig()
	cfg.VerifyUserEmails = false
	f := newFixture(t, cfg, nil)

	_, err := f.controller.SendPasswordResetEmail(context.Background(), "bob@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeNoAdapterConfigured))
}

func TestSendPasswordResetEmail_DefaultTemplate(t *testing.T) {
	mailer := &recordingMailer{}
	f := newFixture(t, baseConfig(), mailer)
	f.seed(t, rest.Record{"username": "bob", "email": "bob@example.com"})

	user, err := f.controller.SendPasswordResetEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	require.Len(t, mailer.mails, 1)

	mail := mailer.mails[0]
	assert.Equal(t, "bob@example.com", mail.To)
	assert.Equal(t, "Password Reset for Parse Admin", mail.Subject)

	wantLink := "https://example.com/parse/api/v1/admin/apps/app/request_password_reset?token=" +
		user[admin.FieldPerishableToken].(string) + "&username=bob"
	assert.True(t, strings.HasSuffix(mail.Text, wantLink), mail.Text)
}

func TestSendPasswordResetEmail_AdapterTemplate(t *testing.T) {
	mailer := &templatingMailer{}
	f := newFixture(t, baseConfig(), mailer)
	f.seed(t, rest.Record{"username": "bob", "email": "bob@example.com"})

	_, err := f.controller.SendPasswordResetEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)

	assert.Empty(t, mailer.mails)
	require.Len(t, mailer.resets, 1)
	assert.Equal(t, "Parse Admin", mailer.resets[0].AppName)
	assert.NotContains(t, mailer.resets[0].User, admin.FieldPerishableToken)
}

func TestSendVerificationEmail_ResolvesPartialUser(t *testing.T) {
	mailer := &templatingMailer{}
	f := newFixture(t, baseConfig(), mailer)
	f.seed(t, rest.Record{"username": "alice", "email": "alice@example.com", admin.FieldEmailVerifyToken: "tok 1"})

	err := f.controller.SendVerificationEmail(context.Background(), rest.Record{"email": "alice@example.com"})
	require.NoError(t, err)

	require.Len(t, mailer.verifications, 1)
	assert.Equal(t, "https://example.com/parse/api/v1/admin/apps/app/verify_email?token=tok+1&username=alice", mailer.verifications[0].Link)
}

func TestSendVerificationEmail_UnknownUser(t *testing.T) {
	f := newFixture(t, baseConfig(), &recordingMailer{})

	err := f.controller.SendVerificationEmail(context.Background(), rest.Record{"email": "ghost@example.com"})
	assert.ErrorIs(t, err, admin.ErrUserNotFound)
}

func TestResendVerificationEmail(t *testing.T) {
	mailer := &recordingMailer{}
	f := newFixture(t, baseConfig(), mailer)
	f.seed(t, rest.Record{"username": "alice", "email": "alice@example.com", "emailVerified": false})
	f.seed(t, rest.Record{"username": "done", "email": "done@example.com", "emailVerified": true})

	require.NoError(t, f.controller.ResendVerificationEmail(context.Background(), "alice@example.com"))
	require.Len(t, mailer.mails, 1)
	assert.Equal(t, "alice@example.com", mailer.mails[0].To)

	token := f.stored(t, "alice")[admin.FieldEmailVerifyToken]
	assert.Len(t, token, admin.TokenLength)

	err := f.controller.ResendVerificationEmail(context.Background(), "done@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

func TestSignUp_SendsVerification(t *testing.T) {
	mailer := &recordingMailer{}
	f := newFixture(t, baseConfig(), mailer)

	created, err := f.controller.SignUp(context.Background(), admin.SignUpInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "long-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, false, created["emailVerified"])
	require.Len(t, mailer.mails, 1)

	doc := f.stored(t, "alice")
	assert.Equal(t, "hashed:long-enough", doc[admin.FieldHashedPassword])
	assert.Contains(t, mailer.mails[0].Text, doc[admin.FieldEmailVerifyToken].(string))

	_, err = f.controller.SignUp(context.Background(), admin.SignUpInput{Username: "alice", Password: "long-enough"})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

// # Bootstrap

func TestBootstrapAdmin_OnlyFirstAccount(t *testing.T) {
	f := newFixture(t, &config.Config{AppID: "app", AppName: "Parse Admin"}, nil)
	ctx := context.Background()

	created, err := f.controller.BootstrapAdmin(ctx, admin.SignUpInput{
		Username: "root",
		Password: "correct horse",
		Role:     sec.RoleViewer,
	})
	require.NoError(t, err)
	assert.Equal(t, "root", created[admin.FieldUsername])
	assert.Equal(t, string(sec.RoleAdmin), created[admin.FieldRole])

	_, err = f.controller.BootstrapAdmin(ctx, admin.SignUpInput{Username: "second", Password: "correct horse"})
	assert.ErrorIs(t, err, admin.ErrBootstrapClosed)
	assert.Equal(t, 1, f.users.Len())
}

func TestBootstrapAdmin_ClaimTakenByConcurrentSignup(t *testing.T) {
	f := newFixture(t, &config.Config{AppID: "app", AppName: "Parse Admin"}, nil)
	ctx := context.Background()

	// Another request has claimed the bootstrap but not yet created its user.
	_, err := f.store.Create(ctx, admin.BootstrapClassName, rest.Record{"key": "first_admin", "username": "racer"})
	require.NoError(t, err)

	_, err = f.controller.BootstrapAdmin(ctx, admin.SignUpInput{Username: "late", Password: "correct horse"})
	assert.ErrorIs(t, err, admin.ErrBootstrapClosed)
	assert.Equal(t, 0, f.users.Len())
}

func TestBootstrapAdmin_FailedSignupReleasesClaim(t *testing.T) {
	database := storage.NewMemoryDatabase()
	users := storage.NewMemoryCollection("username", "email")
	claims := storage.NewMemoryCollection("key")
	database.Register(admin.ClassName, users)
	database.Register(admin.BootstrapClassName, claims)

	hashErr := errors.New("hash refused")
	store := rest.NewStore(database,
		rest.WithPasswordHasher(func(p string) (string, error) {
			if p == "rejected" {
				return "", hashErr
			}
			return "hashed:" + p, nil
		}),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	controller, err := admin.NewController(store, nil, &config.Config{AppID: "app", AppName: "Parse Admin"}, logger)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = controller.BootstrapAdmin(ctx, admin.SignUpInput{Username: "root", Password: "rejected"})
	require.ErrorIs(t, err, hashErr)
	assert.Equal(t, 0, users.Len())

	created, err := controller.BootstrapAdmin(ctx, admin.SignUpInput{Username: "root", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "root", created[admin.FieldUsername])
	assert.Equal(t, 2, claims.Len())
}
