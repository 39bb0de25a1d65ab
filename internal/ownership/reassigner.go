// Package ownership reassigns record owners in PostgreSQL.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/platform/db"
	"github.com/odyssey-erp/listgrid/internal/shared"
)

// ActionOwnerChanged is the audit action written for each reassigned record.
const ActionOwnerChanged = "owner.changed"

// maxBatch bounds the records updated by one request.
const maxBatch = 1000

var errInactiveOwner = errors.New("ownership: new owner is not an active user")

// Reassigner updates owner_id on the configured table. It implements
// grid.OwnerReassigner.
type Reassigner struct {
	db     db.TxBeginner
	table  pgx.Identifier
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewReassigner builds a Reassigner for table, which may be schema qualified
// ("crm.accounts"). A nil audit logger disables the audit trail.
func NewReassigner(pool db.TxBeginner, table []string, audit *shared.AuditLogger, logger *slog.Logger) *Reassigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reassigner{db: pool, table: pgx.Identifier(table), audit: audit, logger: logger}
}

// ChangeOwner reassigns recordIDs to newOwnerID in one transaction. Domain
// rejections are reported on the result; infrastructure failures as errors.
func (r *Reassigner) ChangeOwner(ctx context.Context, recordIDs []string, newOwnerID string) (grid.ReassignResult, error) {
	ids := compact(recordIDs)
	switch {
	case newOwnerID == "":
		return grid.ReassignResult{ErrorMessage: "Select a new owner."}, nil
	case len(ids) == 0:
		return grid.ReassignResult{ErrorMessage: "Select at least one record."}, nil
	case len(ids) > maxBatch:
		return grid.ReassignResult{ErrorMessage: fmt.Sprintf("At most %d records can be reassigned at once.", maxBatch)}, nil
	}

	var affected int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var active bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1 AND is_active)`, newOwnerID).Scan(&active); err != nil {
			return fmt.Errorf("ownership: check owner: %w", err)
		}
		if !active {
			return errInactiveOwner
		}
		sql := fmt.Sprintf(`UPDATE %s SET owner_id = $1 WHERE id::text = ANY($2)`, r.table.Sanitize())
		tag, err := tx.Exec(ctx, sql, newOwnerID, ids)
		if err != nil {
			return fmt.Errorf("ownership: update owners: %w", err)
		}
		affected = tag.RowsAffected()
		if affected == 0 || r.audit == nil {
			return nil
		}
		return r.audit.Record(ctx, tx, shared.AuditLog{
			Actor:     shared.ActorFromContext(ctx),
			Action:    ActionOwnerChanged,
			Entity:    r.table.Sanitize(),
			EntityIDs: ids,
			Meta:      map[string]any{"owner": newOwnerID},
		})
	})
	if errors.Is(err, errInactiveOwner) {
		return grid.ReassignResult{ErrorMessage: "The selected user is inactive."}, nil
	}
	if err != nil {
		return grid.ReassignResult{}, err
	}
	if affected == 0 {
		return grid.ReassignResult{ErrorMessage: "No matching records were found."}, nil
	}
	r.logger.Info("records reassigned",
		slog.String("table", r.table.Sanitize()),
		slog.String("actor", shared.ActorFromContext(ctx)),
		slog.String("owner", newOwnerID),
		slog.Int64("count", affected))
	return grid.ReassignResult{Success: true, SuccessCount: int(affected)}, nil
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
