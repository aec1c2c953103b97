package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jrsteele09/dietitian-server/audit"
	pkgerrors "github.com/pkg/errors"
)

var _ audit.Sink = (*AuditSink)(nil)

// AuditSink appends security events to the security_events table. Rows are never updated.
type AuditSink struct {
	db *sql.DB
}

func (s *AuditSink) Write(ctx context.Context, e audit.Event) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return pkgerrors.Wrap(err, "[AuditSink.Write] Marshal")
		}
	}
	_, err := s.db.ExecContext(ctx, `insert into security_events (id, type, severity, user_id, organization_id,
		ip_address, user_agent, description, metadata, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, string(e.Type), string(e.Severity), nullString(e.UserID), nullString(e.OrganizationID),
		nullString(e.IPAddress), nullString(e.UserAgent), e.Description, metadata, e.CreatedAt)
	return mapError(err, "[AuditSink.Write]")
}
