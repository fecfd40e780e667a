// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/parseadmin/internal/platform/config"
	"github.com/taibuivan/parseadmin/internal/rest"
	"github.com/taibuivan/parseadmin/internal/users/admin"
)

func TestBuildEmailLink(t *testing.T) {
	cfg := &config.Config{AppID: "app", PublicServerURL: "https://example.com/parse"}

	tests := []struct {
		name     string
		frameURL string
		username string
		token    string
		want     string
	}{
		{
			name:     "direct",
			username: "alice",
			token:    "abc123",
			want:     "https://example.com/parse/api/v1/admin/apps/app/verify_email?token=abc123&username=alice",
		},
		{
			name:     "escapes_username",
			username: "a b&c",
			token:    "abc123",
			want:     "https://example.com/parse/api/v1/admin/apps/app/verify_email?token=abc123&username=a+b%26c",
		},
		{
			name:     "frame_url",
			frameURL: "https://example.com/frame",
			username: "alice",
			token:    "abc123",
			want:     "https://example.com/frame?link=%2Fapi%2Fv1%2Fadmin%2Fapps%2Fapp%2Fverify_email&token=abc123&username=alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFrame := *cfg
			withFrame.ParseFrameURL = tt.frameURL

			got := admin.BuildEmailLink(withFrame.VerifyEmailURL(), tt.username, tt.token, &withFrame)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultVerificationEmail(t *testing.T) {
	mail := admin.DefaultVerificationEmail(admin.EmailOptions{
		AppName: "Parse Admin",
		Link:    "https://example.com/link",
		User:    rest.Record{"username": "alice", "email": "alice@example.com"},
	})

	assert.Equal(t, "alice@example.com", mail.To)
	assert.Equal(t, "Please verify your e-mail for Parse Admin", mail.Subject)
	assert.Contains(t, mail.Text, "confirm the e-mail address alice@example.com with Parse Admin")
	assert.Contains(t, mail.Text, "https://example.com/link")
}

func TestDefaultResetPasswordEmail(t *testing.T) {
	t.Run("with_email", func(t *testing.T) {
		mail := admin.DefaultResetPasswordEmail(admin.EmailOptions{
			AppName: "Parse Admin",
			Link:    "https://example.com/reset",
			User:    rest.Record{"username": "bob", "email": "bob@example.com"},
		})

		assert.Equal(t, "bob@example.com", mail.To)
		assert.Equal(t, "Password Reset for Parse Admin", mail.Subject)
		assert.Contains(t, mail.Text, "(your username is 'bob')")
	})

	t.Run("username_only", func(t *testing.T) {
		mail := admin.DefaultResetPasswordEmail(admin.EmailOptions{
			AppName: "Parse Admin",
			Link:    "https://example.com/reset",
			User:    rest.Record{"username": "bob@example.com"},
		})

		assert.Equal(t, "bob@example.com", mail.To)
	})
}

func TestPublicView(t *testing.T) {
	view := admin.PublicView(rest.Record{
		"objectId":                 "abc",
		"username":                 "alice",
		admin.FieldHashedPassword:  "secret",
		admin.FieldPerishableToken: "tok",
	})

	assert.Equal(t, rest.Record{"objectId": "abc", "username": "alice"}, view)
}
