package email

import (
	"bytes"
	"errors"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWelcome_EscapesHTML(t *testing.T) {
	subject, html, text, err := RenderWelcome(WelcomeVars{
		DisplayName: "<b>Alice</b>",
		Username:    "alice",
		SiteURL:     "https://example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, welcomeSubject, subject)
	assert.Contains(t, html, "&lt;b&gt;Alice&lt;/b&gt;")
	assert.Contains(t, text, `"alice"`)
}

func TestSMTPSender_BuildsMultipartAndSends(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "noreply@example.com", "u", "p", "")
	var sent *mail.Message
	var dialer *mail.Dialer
	s.dial = func(d *mail.Dialer, m *mail.Message) error {
		dialer, sent = d, m
		return nil
	}

	require.NoError(t, s.Send("alice@example.com", "Hi", "<p>hi</p>", "hi"))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"alice@example.com"}, sent.GetHeader("To"))
	assert.Equal(t, "smtp.example.com", dialer.Host)

	var buf bytes.Buffer
	_, err := sent.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "multipart/alternative")
}

func TestSMTPSender_PropagatesErrors(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 465, "noreply@example.com", "", "", "ssl")
	s.dial = func(d *mail.Dialer, _ *mail.Message) error {
		assert.True(t, d.SSL)
		return errors.New("connection refused")
	}
	require.Error(t, s.Send("a@example.com", "s", "", "t"))
}
