package db

import "context"

type Client interface {
	Close() error
	InsertAuditEntry(ctx context.Context, entry *AuditEntry) error
	AuditEntriesForTarget(ctx context.Context, targetID int64, limit int) ([]AuditEntry, error)
	CountAuditEntries(ctx context.Context) (int, error)
}
