package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "smtp.local", Port: 587, Username: "u", Password: "p", From: "noreply@x.com"}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "host", mutate: func(c *Config) { c.Host = "" }, want: "SMTP_HOST"},
		{name: "port", mutate: func(c *Config) { c.Port = 0 }, want: "SMTP_PORT"},
		{name: "username", mutate: func(c *Config) { c.Username = "" }, want: "SMTP_USERNAME"},
		{name: "password", mutate: func(c *Config) { c.Password = "" }, want: "SMTP_PASSWORD"},
		{name: "from", mutate: func(c *Config) { c.From = "" }, want: "SMTP_FROM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMailer_SendRequiresRecipients(t *testing.T) {
	m := NewMailer(Config{Host: "localhost", Port: 2525, From: "noreply@x.com"})

	err := m.Send(Email{Subject: "hi", Body: "body"})
	assert.EqualError(t, err, "no recipients specified")
}

func TestMailer_SetEmailMessage(t *testing.T) {
	m := NewMailer(Config{Host: "localhost", Port: 2525, From: "noreply@x.com"})

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, Email{
		To:       []string{"alice@x.com"},
		Subject:  "Verify your email",
		Body:     "plain",
		HTMLBody: "<p>html</p>",
	})

	assert.Equal(t, []string{"noreply@x.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"alice@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Verify your email"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<p>html</p>")
	assert.Contains(t, buf.String(), "plain")
}
