package resumes

import (
	"context"
	"sync"

	"jobprep-backend/internal/ai"
)

// fakeGateway answers per operation; missing operations fail like an
// unreachable model.
type fakeGateway struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
}

func newFakeGateway(replies map[string]string) *fakeGateway {
	if replies == nil {
		replies = map[string]string{}
	}
	return &fakeGateway{replies: replies}
}

func (f *fakeGateway) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	return f.answer(req.Op)
}

func (f *fakeGateway) GenerateFromDocument(ctx context.Context, _ ai.Document, req ai.Request) (string, error) {
	return f.answer(req.Op)
}

func (f *fakeGateway) answer(op string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	reply, ok := f.replies[op]
	if !ok {
		return "", ai.ErrUnavailable
	}
	return reply, nil
}

func (f *fakeGateway) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Text(context.Context, []byte, string, string) (string, error) {
	return s.text, s.err
}

func keys(sec Section) []string {
	out := make([]string, 0, len(sec))
	for _, f := range sec {
		out = append(out, f.Key)
	}
	return out
}

func value(sec Section, key string) string {
	for _, f := range sec {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}
