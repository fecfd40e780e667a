// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/url"
	"strings"

	"github.com/taibuivan/parseadmin/internal/platform/config"
)

/*
BuildEmailLink builds the callback link embedded in verification and reset emails.

Description: Username and token are query-escaped. When a frame URL is
configured, the destination loses its public server prefix and travels as the
escaped link parameter of the frame URL; otherwise the token and username are
appended to the destination directly.

Parameters:
  - destination: string (verify or reset endpoint)
  - username: string
  - token: string
  - cfg: *config.Config

Returns:
  - string: the link
*/
func BuildEmailLink(destination, username, token string, cfg *config.Config) string {
	usernameAndToken := "token=" + url.QueryEscape(token) + "&username=" + url.QueryEscape(username)

	if cfg.ParseFrameURL != "" {
		withoutHost := destination
		if cfg.PublicServerURL != "" {
			withoutHost = strings.Replace(destination, strings.TrimSuffix(cfg.PublicServerURL, "/"), "", 1)
		}
		return cfg.ParseFrameURL + "?link=" + url.QueryEscape(withoutHost) + "&" + usernameAndToken
	}

	return destination + "?" + usernameAndToken
}
