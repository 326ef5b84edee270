package interviews

import (
	"context"
	"sync"
	"time"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/events"
)

type fakeGateway struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
}

func newFakeGateway(replies map[string]string) *fakeGateway {
	if replies == nil {
		replies = map[string]string{}
	}
	return &fakeGateway{replies: replies, calls: map[string]int{}}
}

func (f *fakeGateway) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Op]++
	reply, ok := f.replies[req.Op]
	if !ok {
		return "", ai.ErrUnavailable
	}
	return reply, nil
}

func (f *fakeGateway) GenerateFromDocument(ctx context.Context, _ ai.Document, req ai.Request) (string, error) {
	return f.GenerateText(ctx, req)
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// manualClock is advanced explicitly by tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *Service
	store  *MemoryStore
	gw     *fakeGateway
	clock  *manualClock
	events *events.Recorder
}

func newFixture(replies map[string]string) fixture {
	clock := newManualClock()
	store := NewMemoryStore(clock.Now)
	gw := newFakeGateway(replies)
	svc := NewService(store, gw, prompts.Default())
	svc.Now = clock.Now
	rec := &events.Recorder{}
	svc.Events = rec
	return fixture{svc: svc, store: store, gw: gw, clock: clock, events: rec}
}

const questionsReply = "```json\n" + `[
  {"id": 1, "question": "Design a URL shortener.", "type": "technical", "expectedPoints": ["Hashing", "Storage"]},
  {"id": 2, "question": "Tell me about a conflict.", "type": "Behavioral", "expectedPoints": ["STAR"]},
  {"id": 3, "question": "  ", "type": "technical"},
  {"id": "4", "question": "A release is failing at 5pm. What do you do?", "type": "situational"},
  {"id": 5, "question": "Explain Go interfaces.", "type": "coding", "expectedPoints": ["Implicit"]},
  {"id": 6, "question": "How do you review code?", "type": "behavioral", "expectedPoints": []},
  {"id": 7, "question": "Extra question", "type": "technical"}
]` + "\n```"
