package db

import "time"

// AuditEntry is one persisted moderation decision.
type AuditEntry struct {
	ID              string    `db:"id"`
	CreatedAt       time.Time `db:"created_at"`
	Command         string    `db:"command"`
	ChatID          int64     `db:"chat_id"`
	ActorID         int64     `db:"actor_id"`
	ActorName       string    `db:"actor_name"`
	TargetID        int64     `db:"target_id"`
	TargetName      string    `db:"target_name"`
	Action          string    `db:"action"`
	DurationMinutes int       `db:"duration_minutes"`
	Reason          string    `db:"reason"`
	SourceText      string    `db:"source_text"`
	Outcome         string    `db:"outcome"`
	Detail          string    `db:"detail"`
	PolicyVersion   string    `db:"policy_version"`
}
