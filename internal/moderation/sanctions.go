package moderation

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

type SanctionKind string

const (
	SanctionMute SanctionKind = "mute"
	SanctionBan  SanctionKind = "ban"
)

type SanctionKey struct {
	Kind     SanctionKind
	TargetID int64
}

func (k SanctionKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.TargetID)
}

// SanctionRecord remembers an active sanction and the notice that controls it.
type SanctionRecord struct {
	Kind            SanctionKind
	TargetID        int64
	TargetName      string
	ChatID          int64
	NoticeChatID    int64
	NoticeMessageID int
}

func (r SanctionRecord) Key() SanctionKey {
	return SanctionKey{Kind: r.Kind, TargetID: r.TargetID}
}

type Sanctions struct {
	mu      sync.RWMutex
	records map[SanctionKey]SanctionRecord
}

func NewSanctions() *Sanctions {
	return &Sanctions{records: make(map[SanctionKey]SanctionRecord)}
}

// Put stores rec, replacing any record with the same key.
func (s *Sanctions) Put(rec SanctionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key()] = rec
}

func (s *Sanctions) Get(key SanctionKey) (SanctionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

func (s *Sanctions) Delete(key SanctionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// List returns a snapshot of the records of kind ordered by target.
func (s *Sanctions) List(kind SanctionKind) []SanctionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []SanctionRecord
	for key, rec := range s.records {
		if key.Kind == kind {
			res = append(res, rec)
		}
	}
	slices.SortFunc(res, func(a, b SanctionRecord) int {
		switch {
		case a.TargetID < b.TargetID:
			return -1
		case a.TargetID > b.TargetID:
			return 1
		}
		return 0
	})
	return res
}

func (s *Sanctions) Count(kind SanctionKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.records {
		if key.Kind == kind {
			n++
		}
	}
	return n
}

func (s *Sanctions) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.records)
}

// PendingApproval is a ban waiting for an administrator decision.
type PendingApproval struct {
	TargetID        int64
	TargetName      string
	ChatID          int64
	Reason          string
	ReporterName    string
	SourceText      string
	ReviewChatID    int64
	ReviewMessageID int
	CreatedAt       time.Time
}

// Approvals holds at most one pending approval per target.
type Approvals struct {
	mu      sync.RWMutex
	pending map[int64]PendingApproval
}

func NewApprovals() *Approvals {
	return &Approvals{pending: make(map[int64]PendingApproval)}
}

// Reserve stores p unless the target already has a pending approval.
func (a *Approvals) Reserve(p PendingApproval) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[p.TargetID]; ok {
		return false
	}
	a.pending[p.TargetID] = p
	return true
}

func (a *Approvals) Update(p PendingApproval) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[p.TargetID] = p
}

func (a *Approvals) Get(targetID int64) (PendingApproval, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.pending[targetID]
	return p, ok
}

func (a *Approvals) Delete(targetID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, targetID)
}

func (a *Approvals) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pending)
}

func (a *Approvals) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.pending)
}
