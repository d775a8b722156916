package moderation

import (
	"iter"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultHistorySize = 150

// CachedMessage is a snapshot of a chat message kept for context.
type CachedMessage struct {
	SequenceID int
	Author     string
	Text       string
	ObservedAt time.Time
}

// History is a bounded buffer of recent messages of the monitored chat.
type History struct {
	cache *lru.Cache[int, CachedMessage]
}

func NewHistory(size int) (*History, error) {
	if size <= 0 {
		size = DefaultHistorySize
	}
	cache, err := lru.New[int, CachedMessage](size)
	if err != nil {
		return nil, err
	}
	return &History{cache: cache}, nil
}

// Record appends msg, evicting the oldest entry once the buffer is full.
func (h *History) Record(msg CachedMessage) {
	h.cache.Add(msg.SequenceID, msg)
}

// Before yields up to limit of the most recent messages older than seq, in ascending order.
func (h *History) Before(seq, limit int) iter.Seq[CachedMessage] {
	var older []CachedMessage
	for _, msg := range h.cache.Values() {
		if msg.SequenceID < seq {
			older = append(older, msg)
		}
	}
	slices.SortFunc(older, func(a, b CachedMessage) int { return a.SequenceID - b.SequenceID })
	if limit >= 0 && len(older) > limit {
		older = older[len(older)-limit:]
	}
	return slices.Values(older)
}

func (h *History) Len() int {
	return h.cache.Len()
}

func (h *History) Purge() {
	h.cache.Purge()
}
