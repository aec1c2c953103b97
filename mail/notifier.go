package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Notifier builds account emails and delivers them best-effort: a failed delivery is
// logged and never reported to the caller.
type Notifier struct {
	mailer  Mailer
	appName string
	baseURL string
}

func NewNotifier(mailer Mailer, appName, baseURL string) *Notifier {
	return &Notifier{mailer: mailer, appName: appName, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (n *Notifier) deliver(ctx context.Context, msg Message) {
	if err := n.mailer.Send(ctx, msg); err != nil {
		log.Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("failed to send email")
	}
}

func (n *Notifier) link(path, rawToken string) string {
	return n.baseURL + path + "?token=" + url.QueryEscape(rawToken)
}

func (n *Notifier) SendWelcome(ctx context.Context, to, name, organization string) {
	n.deliver(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s", n.appName),
		Text: fmt.Sprintf("Hello %s,\n\nYour practice %q has been created on %s. Your trial has started.\n",
			name, organization, n.appName),
	})
}

func (n *Notifier) SendEmailVerification(ctx context.Context, to, name, rawToken string) {
	link := n.link("/auth/verify-email", rawToken)
	n.deliver(ctx, Message{
		To:      to,
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening:\n%s\n\nThe link expires in 24 hours.\n", name, link),
		HTML:    fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Confirm your email address</a></p><p>The link expires in 24 hours.</p>`, name, link),
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to, name, rawToken string) {
	link := n.link("/reset-password", rawToken)
	n.deliver(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hello %s,\n\nReset your password by opening:\n%s\n\nIf you did not ask for this, ignore this email.\n", name, link),
		HTML:    fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Reset your password</a></p><p>If you did not ask for this, ignore this email.</p>`, name, link),
	})
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, to, name string) {
	n.deliver(ctx, Message{
		To:      to,
		Subject: "Your password was changed",
		Text:    fmt.Sprintf("Hello %s,\n\nThe password of your %s account was just changed. If this was not you, reset it immediately.\n", name, n.appName),
	})
}
