// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

// # Admin User Constraints

const (
	// ClassName is the storage class holding admin accounts.
	ClassName = "_AdminUser"

	// BootstrapClassName holds the sentinel record claiming the anonymous
	// first-admin signup. Its "key" field carries a unique index.
	BootstrapClassName = "_AdminBootstrap"

	// TokenLength is the length of email verification and password reset tokens.
	TokenLength = 25

	// MinPasswordLength applies to signup and password reset.
	MinPasswordLength = 8
)

const (
	fieldBootstrapKey      = "key"
	bootstrapKeyFirstAdmin = "first_admin"
)

// Token kinds used as metric labels.
const (
	kindVerification = "email_verification"
	kindReset        = "password_reset"
)

// # Error Messages

const (
	msgResetTokenInvalid = "Failed to reset password: username / email / token is invalid"
	msgResetTokenExpired = "The password reset link has expired"
)
