package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

type restrictCall struct {
	ChatID int64
	UserID int64
	Until  time.Time
}

type memberCall struct {
	ChatID int64
	UserID int64
}

type editCall struct {
	ChatID    int64
	MessageID int
	Text      string
	Buttons   []Button
}

type deleteCall struct {
	ChatID    int64
	MessageID int
}

type fakePlatform struct {
	mu     sync.Mutex
	nextID int

	admins map[int64]bool

	restrictErr error
	banErr      error
	sendErr     map[int64]error
	liftErr     map[int64]error

	restricted []restrictCall
	lifted     []memberCall
	banned     []memberCall
	unbanned   []memberCall
	sent       []Outgoing
	edits      []editCall
	deleted    []deleteCall
}

func newFakePlatform(admins ...int64) *fakePlatform {
	p := &fakePlatform{nextID: 1000, admins: map[int64]bool{}, sendErr: map[int64]error{}, liftErr: map[int64]error{}}
	for _, id := range admins {
		p.admins[id] = true
	}
	return p
}

func (p *fakePlatform) Restrict(_ context.Context, chatID, userID int64, until time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.restrictErr != nil {
		return p.restrictErr
	}
	p.restricted = append(p.restricted, restrictCall{ChatID: chatID, UserID: userID, Until: until})
	return nil
}

func (p *fakePlatform) LiftRestrictions(_ context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.liftErr[userID]; err != nil {
		return err
	}
	p.lifted = append(p.lifted, memberCall{ChatID: chatID, UserID: userID})
	return nil
}

func (p *fakePlatform) Ban(_ context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.banErr != nil {
		return p.banErr
	}
	p.banned = append(p.banned, memberCall{ChatID: chatID, UserID: userID})
	return nil
}

func (p *fakePlatform) Unban(_ context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unbanned = append(p.unbanned, memberCall{ChatID: chatID, UserID: userID})
	return nil
}

func (p *fakePlatform) Send(_ context.Context, out Outgoing) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.sendErr[out.ChatID]; err != nil {
		return 0, err
	}
	p.nextID++
	p.sent = append(p.sent, out)
	return p.nextID, nil
}

func (p *fakePlatform) Edit(_ context.Context, chatID int64, messageID int, text string, buttons []Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, editCall{ChatID: chatID, MessageID: messageID, Text: text, Buttons: buttons})
	return nil
}

func (p *fakePlatform) Delete(_ context.Context, chatID int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, deleteCall{ChatID: chatID, MessageID: messageID})
	return nil
}

func (p *fakePlatform) IsElevated(_ context.Context, _ int64, userID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admins[userID], nil
}

func (p *fakePlatform) sentTo(chatID int64) []Outgoing {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []Outgoing
	for _, out := range p.sent {
		if out.ChatID == chatID {
			res = append(res, out)
		}
	}
	return res
}

func (p *fakePlatform) wasDeleted(messageID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.deleted {
		if d.MessageID == messageID {
			return true
		}
	}
	return false
}

// moderationTestLLM answers every completion with a fixed content or error.
type moderationTestLLM struct {
	mu       sync.Mutex
	content  string
	err      error
	block    bool
	calls    int
	messages []llm.ChatCompletionMessage
}

func (m *moderationTestLLM) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.calls++
	m.messages = messages
	block, content, err := m.block, m.content, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return llm.ChatCompletionResponse{}, ctx.Err()
	}
	if err != nil {
		return llm.ChatCompletionResponse{}, err
	}
	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{{Message: llm.ChatCompletionMessage{Role: llm.RoleAssistant, Content: content}}},
	}, nil
}

func (m *moderationTestLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memoryAuditor struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (a *memoryAuditor) Record(_ context.Context, rec AuditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
}

func (a *memoryAuditor) RecentForTarget(_ context.Context, targetID int64, limit int) ([]AuditRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []AuditRecord
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		if a.records[i].TargetID == targetID {
			out = append(out, a.records[i])
		}
	}
	return out, nil
}

func (a *memoryAuditor) all() []AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditRecord(nil), a.records...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errPlatform = errors.New("platform refused")

const (
	testChatID   int64 = -1001
	testReviewID int64 = -2002
	testAdminID  int64 = 7
)

type harness struct {
	svc      *Service
	state    *State
	platform *fakePlatform
	model    *moderationTestLLM
	audit    *memoryAuditor
	clock    *fakeClock
}

func newHarness(t *testing.T, content string) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)}
	state, err := NewState(StateConfig{HistorySize: DefaultHistorySize, Cooldown: DefaultCooldown, Now: clock.Now})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	platform := newFakePlatform(testAdminID)
	model := &moderationTestLLM{content: content}
	audit := &memoryAuditor{}
	svc := NewService(Dependencies{
		State:      state,
		Platform:   platform,
		Classifier: NewClassifier(model, policy, 50*time.Millisecond, nil),
		Policy:     policy,
		Auditor:    audit,
		History:    audit,
	}, Options{
		MonitoredChatID: testChatID,
		ReviewChatID:    testReviewID,
		ContextSize:     DefaultContextSize,
		Language:        "en",
	})
	return &harness{svc: svc, state: state, platform: platform, model: model, audit: audit, clock: clock}
}

func reportOn(reporterID int64, target TargetMessage) ReportRequest {
	return ReportRequest{
		Command:          CommandReport,
		ChatID:           testChatID,
		CommandMessageID: target.MessageID + 100,
		Reporter:         Actor{ID: reporterID, Name: "reporter"},
		Target:           &target,
	}
}

func targetMessage(messageID int, authorID int64, text string) TargetMessage {
	return TargetMessage{ChatID: testChatID, MessageID: messageID, AuthorID: authorID, AuthorName: "alice", Text: text}
}
