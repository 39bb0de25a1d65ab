package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditLog describes one change applied to a set of entities.
type AuditLog struct {
	Actor     string
	Action    string
	Entity    string
	EntityIDs []string
	Meta      map[string]any
	At        time.Time
}

// Execer is satisfied by pgx pools, connections and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into the audit table, one row per entity.
type AuditLogger struct {
	table pgx.Identifier
}

// NewAuditLogger returns an AuditLogger for table, audit_logs when empty.
func NewAuditLogger(table ...string) *AuditLogger {
	if len(table) == 0 {
		table = []string{"audit_logs"}
	}
	return &AuditLogger{table: pgx.Identifier(table)}
}

// Record persists the log entry through exec, usually the caller's
// transaction.
func (l *AuditLogger) Record(ctx context.Context, exec Execer, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || len(log.EntityIDs) == 0 {
		return errors.New("audit log requires action/entity/entity_ids")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var actor, at any
	if log.Actor != "" {
		actor = log.Actor
	}
	if !log.At.IsZero() {
		at = log.At
	}
	sql := fmt.Sprintf(`INSERT INTO %s (actor, action, entity, entity_id, meta, occurred_at)
SELECT $1, $2, $3, id, $5, COALESCE($6, NOW()) FROM unnest($4::text[]) AS id`, l.table.Sanitize())
	_, err = exec.Exec(ctx, sql, actor, log.Action, log.Entity, log.EntityIDs, metaJSON, at)
	return err
}
