package moderation

import (
	"context"
	"time"
)

// Platform is the subset of chat-platform operations moderation relies on.
type Platform interface {
	Restrict(ctx context.Context, chatID, userID int64, until time.Time) error
	LiftRestrictions(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	Send(ctx context.Context, out Outgoing) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, buttons []Button) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	IsElevated(ctx context.Context, chatID, userID int64) (bool, error)
}

type Button struct {
	Text string
	Data string
}

type Outgoing struct {
	ChatID  int64
	ReplyTo int
	Text    string
	Buttons []Button
}

// Actor is a chat member who reports or administers.
type Actor struct {
	ID   int64
	Name string
}

// AuditRecord describes one moderation decision, whatever its outcome.
type AuditRecord struct {
	Command         string
	ChatID          int64
	Actor           Actor
	TargetID        int64
	TargetName      string
	Action          string
	DurationMinutes int
	Reason          string
	SourceText      string
	Outcome         string
	Detail          string
	PolicyVersion   string
}

type Auditor interface {
	Record(ctx context.Context, rec AuditRecord)
}

// AuditHistory returns earlier decisions about a user, newest first.
type AuditHistory interface {
	RecentForTarget(ctx context.Context, targetID int64, limit int) ([]AuditRecord, error)
}

// Telemetry receives moderation counters and gauges.
type Telemetry interface {
	Report(command, result string)
	Verdict(action string)
	EnforcementFailed(operation string)
	Classification(d time.Duration)
	PendingApprovals(n int)
	ActiveSanctions(kind string, n int)
}

const (
	OutcomeApplied        = "applied"
	OutcomeFailed         = "failed"
	OutcomePending        = "pending"
	OutcomeAlreadyPending = "already_pending"
	OutcomeNoticeOnly     = "notice_only"
	OutcomeConfirmed      = "confirmed"
	OutcomeRejected       = "rejected"
	OutcomeReversed       = "reversed"
	OutcomeAnalyzed       = "analyzed"
)

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, AuditRecord) {}

func (nopAuditor) RecentForTarget(context.Context, int64, int) ([]AuditRecord, error) {
	return nil, nil
}

type nopTelemetry struct{}

func (nopTelemetry) Report(string, string) {}
func (nopTelemetry) Verdict(string) {}
func (nopTelemetry) EnforcementFailed(string) {}
func (nopTelemetry) Classification(time.Duration) {}
func (nopTelemetry) PendingApprovals(int) {}
func (nopTelemetry) ActiveSanctions(string, int) {}
