package audit

import (
	"context"
	"time"

	"github.com/jrsteele09/dietitian-server/internal/ids"
	"github.com/rs/zerolog/log"
)

// Recorder stamps events and hands them to a sink. A failing sink never fails the caller.
type Recorder struct {
	sink    Sink
	nowTime func() time.Time
}

type Option func(*Recorder)

func WithNowTime(now func() time.Time) Option {
	return func(r *Recorder) {
		r.nowTime = now
	}
}

func NewRecorder(sink Sink, options ...Option) *Recorder {
	r := &Recorder{sink: sink, nowTime: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.nowTime()
	}
	if event.ID == "" {
		event.ID = ids.NewAt(event.CreatedAt)
	}
	if event.Severity == "" {
		event.Severity = SeverityLow
	}

	if err := r.sink.Write(ctx, event); err != nil {
		log.Err(err).
			Str("eventType", string(event.Type)).
			Str("userId", event.UserID).
			Msg("failed to write audit event")
	}
}
