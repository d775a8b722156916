package moderation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type StateConfig struct {
	HistorySize int
	Cooldown    time.Duration
	Now         func() time.Time
}

// State owns every in-memory table of the bot. Nothing in it survives a restart.
type State struct {
	History   *History
	Cooldowns *Cooldowns
	Sanctions *Sanctions
	Approvals *Approvals
	Locks     *KeyedMutex

	now func() time.Time
}

func NewState(cfg StateConfig) (*State, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	history, err := NewHistory(cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return &State{
		History:   history,
		Cooldowns: NewCooldowns(cfg.Cooldown, cfg.Now),
		Sanctions: NewSanctions(),
		Approvals: NewApprovals(),
		Locks:     NewKeyedMutex(),
		now:       cfg.Now,
	}, nil
}

func (s *State) Start(context.Context) error {
	s.getLogEntry().Debug("state ready")
	return nil
}

// Stop drops all bookkeeping; sanctions still active on the platform are no longer reversible through the bot.
func (s *State) Stop(context.Context) error {
	s.getLogEntry().WithFields(log.Fields{
		"mutes":   s.Sanctions.Count(SanctionMute),
		"bans":    s.Sanctions.Count(SanctionBan),
		"pending": s.Approvals.Len(),
	}).Info("dropping in-memory state")
	s.History.Purge()
	s.Cooldowns.Purge()
	s.Sanctions.clear()
	s.Approvals.clear()
	return nil
}

// lock serializes mutations of one (kind, target) pair.
func (s *State) lock(kind SanctionKind, targetID int64) func() {
	return s.Locks.Lock(SanctionKey{Kind: kind, TargetID: targetID}.String())
}

func (s *State) publish(t Telemetry) {
	t.PendingApprovals(s.Approvals.Len())
	t.ActiveSanctions(string(SanctionMute), s.Sanctions.Count(SanctionMute))
	t.ActiveSanctions(string(SanctionBan), s.Sanctions.Count(SanctionBan))
}

func (s *State) getLogEntry() *log.Entry {
	return log.WithField("object", "State")
}
