// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package mail provides mail transports for the admin user flows.
package mail

import (
	"context"
	"log/slog"

	"github.com/taibuivan/parseadmin/internal/users/admin"
)

// LogAdapter "delivers" mail by writing it to the structured log. It is the
// development transport selected by MAIL_ADAPTER=log.
type LogAdapter struct {
	from   string
	logger *slog.Logger
}

// NewLogAdapter constructs a [LogAdapter] sending as from.
func NewLogAdapter(from string, logger *slog.Logger) *LogAdapter {
	return &LogAdapter{from: from, logger: logger}
}

// SendMail implements [admin.MailAdapter].
func (adapter *LogAdapter) SendMail(context context.Context, message admin.Mail) error {
	adapter.logger.InfoContext(context, "mail_sent",
		slog.String("from", adapter.from),
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("text", message.Text),
	)
	return nil
}
