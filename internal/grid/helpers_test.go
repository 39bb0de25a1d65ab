package grid

import (
	"context"
	"sync"
	"time"
)

type fakeTimer struct {
	sched   *fakeScheduler
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler collects delayed tasks until the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{sched: s, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs every pending task that was not stopped and returns how many ran.
func (s *fakeScheduler) Fire() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	s.timers = nil
	s.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// stubQuery answers immediately with a fixed page per page number.
type stubQuery struct {
	mu       sync.Mutex
	pages    map[int][]Record
	total    int
	meta     map[string]FieldMetadata
	err      error
	fail     string
	requests []QueryRequest
}

func (s *stubQuery) ExecuteQuery(_ context.Context, req QueryRequest) (QueryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return QueryResponse{}, s.err
	}
	if s.fail != "" {
		return QueryResponse{Success: false, ErrorMessage: s.fail}, nil
	}
	return QueryResponse{Success: true, Records: s.pages[req.PageNumber], TotalCount: s.total, FieldMetadata: s.meta}, nil
}

func (s *stubQuery) last() QueryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *stubQuery) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// gatedQuery blocks each call until the test releases it with a response.
type gatedQuery struct {
	calls chan gatedCall
}

type gatedCall struct {
	req   QueryRequest
	reply chan QueryResponse
}

func newGatedQuery() *gatedQuery {
	return &gatedQuery{calls: make(chan gatedCall, 8)}
}

func (g *gatedQuery) ExecuteQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	call := gatedCall{req: req, reply: make(chan QueryResponse, 1)}
	g.calls <- call
	select {
	case resp := <-call.reply:
		return resp, nil
	case <-ctx.Done():
		return QueryResponse{}, ctx.Err()
	}
}

func records(ids ...string) []Record {
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = Record{"Id": id, "Name": "Record " + id}
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
