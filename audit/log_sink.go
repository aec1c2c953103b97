package audit

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes events to the global zerolog logger.
type LogSink struct{}

var _ Sink = LogSink{}

func (LogSink) Write(_ context.Context, event Event) error {
	var e *zerolog.Event
	switch event.Severity {
	case SeverityHigh, SeverityCritical:
		e = log.Warn()
	default:
		e = log.Info()
	}
	e.Str("auditId", event.ID).
		Str("type", string(event.Type)).
		Str("severity", string(event.Severity)).
		Str("userId", event.UserID).
		Str("organizationId", event.OrganizationID).
		Str("ip", event.IPAddress).
		Fields(stringFields(event.Metadata)).
		Time("at", event.CreatedAt).
		Msg(event.Description)
	return nil
}

func stringFields(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
