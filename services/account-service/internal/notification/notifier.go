package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/accounts-api/shared/mailer"
)

// Kind identifies which email the gateway sends.
type Kind string

const (
	KindSignup        Kind = "signup"
	KindProfileChange Kind = "profile_change"
	KindPasswordReset Kind = "password_reset"
)

var ErrUnknownKind = errors.New("unknown notification kind")

// Data is the template input shared by every email kind.
type Data struct {
	Username   string
	Link       string
	ExpiresIn  time.Duration
	ChangeType string
}

// Notifier sends account emails. A non-nil error means the message was not
// handed to the transport.
type Notifier interface {
	Send(ctx context.Context, kind Kind, to string, data Data) error
}

// Sender is the transport used by EmailNotifier. *mailer.Mailer satisfies it.
type Sender interface {
	Send(email mailer.Email) error
}

type emailTemplate struct {
	subject string
	body    *template.Template
}

// EmailNotifier renders account emails and delivers them through a Sender.
type EmailNotifier struct {
	sender    Sender
	timeout   time.Duration
	logger    *zerolog.Logger
	templates map[Kind]emailTemplate
}

// NewEmailNotifier creates an EmailNotifier. A send that takes longer than
// timeout is reported as failed.
func NewEmailNotifier(sender Sender, timeout time.Duration, logger *zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender:    sender,
		timeout:   timeout,
		logger:    logger,
		templates: defaultTemplates(),
	}
}

func (n *EmailNotifier) Send(ctx context.Context, kind Kind, to string, data Data) error {
	tmpl, ok := n.templates[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	email := mailer.Email{
		To:       []string{to},
		Subject:  tmpl.subject,
		HTMLBody: body.String(),
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- n.sender.Send(email)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send %s email: %w", kind, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("failed to send %s email: %w", kind, ctx.Err())
	}

	n.logger.Debug().Str("kind", string(kind)).Msg("notification sent")

	return nil
}

func defaultTemplates() map[Kind]emailTemplate {
	funcs := template.FuncMap{"duration": humanDuration}

	parse := func(name, text string) *template.Template {
		return template.Must(template.New(name).Funcs(funcs).Parse(text))
	}

	return map[Kind]emailTemplate{
		KindSignup: {
			subject: "Verify your email address",
			body:    parse("signup", signupTemplate),
		},
		KindProfileChange: {
			subject: "Confirm your profile changes",
			body:    parse("profile_change", profileChangeTemplate),
		},
		KindPasswordReset: {
			subject: "Password Reset Request",
			body:    parse("password_reset", passwordResetTemplate),
		},
	}
}

func humanDuration(d time.Duration) string {
	if h := int(d.Hours()); h > 0 && d == time.Duration(h)*time.Hour {
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

const signupTemplate = `
<p>Hi {{.Username}},</p>
<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in {{duration .ExpiresIn}}.</p>
`

const profileChangeTemplate = `
<p>Hi {{.Username}},</p>
<p>We received a request to change the {{.ChangeType}} on your account.</p>
<p>The change will only be applied after you confirm it here:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in {{duration .ExpiresIn}}. If you did not request this change, ignore this email and nothing will be changed.</p>
`

const passwordResetTemplate = `
<p>Hi {{.Username}},</p>
<p>We received a request to reset the password for your account.</p>
<p>If you made this request, please click the link below to create a new password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in {{duration .ExpiresIn}}. If you did not request a password reset, you can safely ignore this email.</p>
`
