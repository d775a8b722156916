package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/reportbot/internal/db"
	"github.com/iamwavecut/reportbot/internal/moderation"
)

const queueSize = 256

// Sink persists audit entries somewhere.
type Sink interface {
	Write(ctx context.Context, entry *db.AuditEntry) error
	Close() error
}

// Journal queues moderation decisions and writes them to every sink in the background.
type Journal struct {
	sinks []Sink
	now   func() time.Time
	queue chan *db.AuditEntry

	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

var _ moderation.Auditor = (*Journal)(nil)

func NewJournal(now func() time.Time, sinks ...Sink) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{
		sinks: sinks,
		now:   now,
		queue: make(chan *db.AuditEntry, queueSize),
	}
}

func (j *Journal) Start(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	j.running = true
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for entry := range j.queue {
			j.write(entry)
		}
	}()
	return nil
}

// Stop drains the queue and closes every sink.
func (j *Journal) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	close(j.queue)
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		j.getLogEntry().Warn("audit queue not drained before shutdown")
	}

	var err error
	for _, sink := range j.sinks {
		err = errors.Join(err, sink.Close())
	}
	return err
}

// Record enqueues rec; it never blocks the moderation path.
func (j *Journal) Record(_ context.Context, rec moderation.AuditRecord) {
	entry := &db.AuditEntry{
		ID:              uuid.New(),
		CreatedAt:       j.now().UTC(),
		Command:         rec.Command,
		ChatID:          rec.ChatID,
		ActorID:         rec.Actor.ID,
		ActorName:       rec.Actor.Name,
		TargetID:        rec.TargetID,
		TargetName:      rec.TargetName,
		Action:          rec.Action,
		DurationMinutes: rec.DurationMinutes,
		Reason:          rec.Reason,
		SourceText:      rec.SourceText,
		Outcome:         rec.Outcome,
		Detail:          rec.Detail,
		PolicyVersion:   rec.PolicyVersion,
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if !j.running {
		j.getLogEntry().WithField("id", entry.ID).Warn("audit journal is not running, entry dropped")
		return
	}
	select {
	case j.queue <- entry:
	default:
		j.getLogEntry().WithField("id", entry.ID).Error("audit queue is full, entry dropped")
	}
}

func (j *Journal) write(entry *db.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, sink := range j.sinks {
		if err := sink.Write(ctx, entry); err != nil {
			j.getLogEntry().WithError(err).WithField("id", entry.ID).Error("cant write audit entry")
		}
	}
}

func (j *Journal) getLogEntry() *log.Entry {
	return log.WithField("object", "Journal")
}

// StoreSink writes entries into the audit database.
type StoreSink struct {
	client db.Client
}

func NewStoreSink(client db.Client) *StoreSink {
	return &StoreSink{client: client}
}

func (s *StoreSink) Write(ctx context.Context, entry *db.AuditEntry) error {
	return s.client.InsertAuditEntry(ctx, entry)
}

func (s *StoreSink) Close() error {
	return s.client.Close()
}
