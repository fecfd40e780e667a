// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"errors"

	"github.com/taibuivan/parseadmin/internal/platform/config"
)

// adaptable binds a mail transport to the configuration it runs under.
// Controllers embed it instead of re-implementing adapter validation.
type adaptable struct {
	mailer MailAdapter
	config *config.Config
}

// newAdaptable validates the transport against the configuration. Email
// verification cannot be switched on without a transport.
func newAdaptable(mailer MailAdapter, cfg *config.Config) (adaptable, error) {
	if cfg == nil {
		return adaptable{}, errors.New("admin: config is required")
	}
	if mailer == nil && cfg.VerifyUserEmails {
		return adaptable{}, errors.New("admin: a mail adapter is required for email verification and password resets")
	}
	return adaptable{mailer: mailer, config: cfg}, nil
}

// hasMailer reports whether a transport was wired.
func (base adaptable) hasMailer() bool {
	return base.mailer != nil
}
