package mail

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMailer logs messages instead of sending them. Used when no SMTP host is configured.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg(msg.Text)
	return nil
}
