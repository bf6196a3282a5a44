package drafts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/storage"
)

func init() {
	SetLogger(zerolog.Nop())
	storage.SetLogger(zerolog.Nop())
}

// stepClock advances one second on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// manualScheduler records registered jobs so tests can fire ticks by hand.
type manualScheduler struct {
	mu   sync.Mutex
	jobs map[int]func()
	next int
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{jobs: map[int]func(){}}
}

func (m *manualScheduler) Every(interval time.Duration, fn func()) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.jobs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.jobs, id)
	}, nil
}

func (m *manualScheduler) Fire() {
	m.mu.Lock()
	jobs := make([]func(), 0, len(m.jobs))
	for _, fn := range m.jobs {
		jobs = append(jobs, fn)
	}
	m.mu.Unlock()
	for _, fn := range jobs {
		fn()
	}
}

func (m *manualScheduler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	mu  sync.Mutex
	all []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *recordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.all))
	for i, n := range r.all {
		out[i] = n.Message
	}
	return out
}

// flakyDurable wraps a durable store and fails reads or writes on demand.
type flakyDurable struct {
	storage.Durable

	mu        sync.Mutex
	failGet   bool
	failSet   bool
	setCalls  int
	lastValue []byte
}

var errQuota = errors.New("quota exceeded")

func (f *flakyDurable) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, errors.New("store unavailable")
	}
	return f.Durable.Get(ctx, key)
}

func (f *flakyDurable) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	f.mu.Lock()
	f.lastValue = value
	f.mu.Unlock()
	return f.Durable.Set(ctx, key, value)
}

func (f *flakyDurable) SetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

func blogDraft(id, slug, title string) model.Draft {
	return model.Draft{
		ID:    model.DraftID(id),
		Kind:  model.KindBlog,
		Slug:  slug,
		Title: title,
		Blog:  &model.BlogDraft{Content: "content of " + title},
	}
}
