package audit

import (
	"context"

	"github.com/iamwavecut/reportbot/internal/db"
	"github.com/iamwavecut/reportbot/internal/moderation"
)

// Lookup reads earlier decisions back from the audit database.
type Lookup struct {
	client db.Client
}

var _ moderation.AuditHistory = (*Lookup)(nil)

func NewLookup(client db.Client) *Lookup {
	return &Lookup{client: client}
}

func (l *Lookup) RecentForTarget(ctx context.Context, targetID int64, limit int) ([]moderation.AuditRecord, error) {
	entries, err := l.client.AuditEntriesForTarget(ctx, targetID, limit)
	if err != nil {
		return nil, err
	}
	records := make([]moderation.AuditRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, moderation.AuditRecord{
			Command:         e.Command,
			ChatID:          e.ChatID,
			Actor:           moderation.Actor{ID: e.ActorID, Name: e.ActorName},
			TargetID:        e.TargetID,
			TargetName:      e.TargetName,
			Action:          e.Action,
			DurationMinutes: e.DurationMinutes,
			Reason:          e.Reason,
			SourceText:      e.SourceText,
			Outcome:         e.Outcome,
			Detail:          e.Detail,
			PolicyVersion:   e.PolicyVersion,
		})
	}
	return records, nil
}
