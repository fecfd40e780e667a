// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
)

// # Admin Password Hashing

const (
	// PasswordCost is the bcrypt cost of newly written _hashed_password values.
	PasswordCost = bcrypt.DefaultCost

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong rejects passwords bcrypt would refuse to hash.
var ErrPasswordTooLong = apperr.ValidationError(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))

// HashPassword hashes an admin password for storage in _hashed_password.
func HashPassword(plainTextPassword string) (string, error) {
	if len(plainTextPassword) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("password_hash_failed: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash reports whether plainTextPassword matches a stored hash.
// A malformed hash never matches.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// NeedsRehash reports whether a valid stored hash was written at a cost below
// [PasswordCost], for instance by an older deployment or an import.
func NeedsRehash(existingHash string) bool {
	cost, err := bcrypt.Cost([]byte(existingHash))
	return err == nil && cost < PasswordCost
}
