package sqlite

import (
	"context"
	"fmt"

	"github.com/iamwavecut/reportbot/internal/db"
)

func (c *sqliteClient) InsertAuditEntry(ctx context.Context, entry *db.AuditEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO audit_entries (
			id, created_at, command, chat_id, actor_id, actor_name, target_id, target_name,
			action, duration_minutes, reason, source_text, outcome, detail, policy_version
		) VALUES (
			:id, :created_at, :command, :chat_id, :actor_id, :actor_name, :target_id, :target_name,
			:action, :duration_minutes, :reason, :source_text, :outcome, :detail, :policy_version
		)
	`
	if _, err := c.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// AuditEntriesForTarget returns the newest entries about a user first.
func (c *sqliteClient) AuditEntriesForTarget(ctx context.Context, targetID int64, limit int) ([]db.AuditEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var res []db.AuditEntry
	query := `SELECT * FROM audit_entries WHERE target_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`
	if err := c.db.SelectContext(ctx, &res, query, targetID, limit); err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	return res, nil
}

func (c *sqliteClient) CountAuditEntries(ctx context.Context) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_entries`); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}
