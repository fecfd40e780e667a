// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// # Repository Interfaces

// Store persists admin sessions. Keys are token hashes, never raw tokens.
type Store interface {
	// Save binds tokenHash to userID for ttl.
	Save(context context.Context, tokenHash, userID string, ttl time.Duration) error

	// UserID resolves a session. Returns [ErrSessionNotFound] when the session
	// is absent or expired.
	UserID(context context.Context, tokenHash string) (string, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(context context.Context, tokenHash string) error
}
