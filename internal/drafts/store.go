package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/storage"
	"github.com/debemdeboas/draftdesk/internal/util"
)

// Store is the draft collection of one editor kind.
//
// Every mutation is applied to the in-memory collection synchronously and the
// whole collection is then handed to a single persist worker. Pending writes
// coalesce, so the durable copy converges to the last mutation. Storage
// failures never leave the Store: reads degrade to an empty collection and
// writes raise one warning notification each.
type Store struct {
	kind    model.Kind
	key     string
	slotKey string

	durable storage.Durable
	slot    storage.Slot

	notifier       Notifier
	maxDrafts      int
	excerptLength  int
	persistTimeout time.Duration
	now            func() time.Time

	mu       sync.RWMutex
	drafts   []model.Draft
	onDelete []func(model.DraftID)

	pmu     sync.Mutex
	pending []byte

	persistCh chan struct{}
	flushCh   chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Store)

func WithMaxDrafts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDrafts = n
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithExcerptLength(n int) Option {
	return func(s *Store) {
		s.excerptLength = n
	}
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// NewStore starts the persist worker. Call Load before serving the store and Close when done.
func NewStore(kind model.Kind, durable storage.Durable, slot storage.Slot, opts ...Option) *Store {
	s := &Store{
		kind:           kind,
		key:            config.DraftsKey(string(kind)),
		slotKey:        config.UnloadSlotKey(string(kind)),
		durable:        durable,
		slot:           slot,
		notifier:       LogNotifier{},
		maxDrafts:      DefaultMaxDrafts,
		excerptLength:  util.DefaultExcerptLength,
		persistTimeout: 5 * time.Second,
		now:            time.Now,
		persistCh:      make(chan struct{}, 1),
		flushCh:        make(chan chan struct{}),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

func (s *Store) Kind() model.Kind {
	return s.kind
}

// OnDelete registers fn to be called with the id of every removed draft.
func (s *Store) OnDelete(fn func(model.DraftID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// Load reads the durable collection and consumes the unload fallback slot.
func (s *Store) Load(ctx context.Context) []model.Draft {
	loaded := s.readDurable(ctx)

	s.mu.Lock()
	s.drafts = loaded
	trimmed := s.trimLocked()
	if s.mergeFallbackLocked() || trimmed {
		s.schedulePersistLocked()
	}
	out := s.listLocked()
	s.mu.Unlock()

	draftsLogger.Info().Str("kind", string(s.kind)).Int("drafts", len(out)).Msg("Drafts loaded")
	return out
}

func (s *Store) readDurable(ctx context.Context) []model.Draft {
	data, err := s.durable.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			draftsLogger.Debug().Err(err).Str("key", s.key).Msg("Could not read drafts, starting empty")
		}
		return nil
	}

	var drafts []model.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		draftsLogger.Debug().Err(err).Str("key", s.key).Msg("Stored drafts are unreadable, starting empty")
		return nil
	}

	valid := drafts[:0]
	for _, d := range drafts {
		if d.ID == "" {
			continue
		}
		d.Kind = s.kind
		valid = append(valid, d)
	}
	return valid
}

// mergeFallbackLocked upserts the unload draft, if any, and always clears the slot.
func (s *Store) mergeFallbackLocked() bool {
	raw, ok, err := s.slot.Read(s.slotKey)
	if err != nil {
		draftsLogger.Debug().Err(err).Str("key", s.slotKey).Msg("Could not read unload slot")
	}
	if !ok && err == nil {
		return false
	}

	if err := s.slot.Clear(s.slotKey); err != nil {
		draftsLogger.Warn().Err(err).Str("key", s.slotKey).Msg("Could not clear unload slot")
	}
	if !ok {
		return false
	}

	var d model.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		draftsLogger.Debug().Err(err).Str("key", s.slotKey).Msg("Discarding malformed unload draft")
		return false
	}
	if (d.ID == "" && d.Slug == "") || (d.Kind != "" && d.Kind != s.kind) {
		draftsLogger.Debug().Str("key", s.slotKey).Msg("Discarding unload draft without identity")
		return false
	}

	merged := s.upsertLocked(d)
	draftsLogger.Info().Str("kind", string(s.kind)).Str("id", string(merged.ID)).Msg("Merged unload draft")
	return true
}

// Upsert stores d by id, then by non-empty slug, else appends it, and returns the stored draft.
func (s *Store) Upsert(d model.Draft) model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.upsertLocked(d)
	s.schedulePersistLocked()
	return stored.Clone()
}

func (s *Store) upsertLocked(d model.Draft) model.Draft {
	d = d.Clone()
	d.Kind = s.kind
	d.Slug = strings.TrimSpace(d.Slug)
	d.UpdatedAt = s.now()

	if i := s.indexLocked(d); i >= 0 {
		d.ID = s.drafts[i].ID
		s.drafts[i] = d
	} else {
		if d.ID == "" {
			d.ID = NewID(d.UpdatedAt)
		}
		s.drafts = append(s.drafts, d)
	}

	s.trimLocked()
	return d
}

// trimLocked keeps the maxDrafts most recently updated drafts.
func (s *Store) trimLocked() bool {
	if len(s.drafts) <= s.maxDrafts {
		return false
	}
	sort.SliceStable(s.drafts, func(i, j int) bool {
		return s.drafts[i].UpdatedAt.After(s.drafts[j].UpdatedAt)
	})
	for _, evicted := range s.drafts[s.maxDrafts:] {
		draftsLogger.Debug().Str("kind", string(s.kind)).Str("id", string(evicted.ID)).Msg("Evicted draft")
	}
	s.drafts = s.drafts[:s.maxDrafts]
	return true
}

func (s *Store) indexLocked(d model.Draft) int {
	if d.ID != "" {
		for i := range s.drafts {
			if s.drafts[i].ID == d.ID {
				return i
			}
		}
	}
	if d.Slug != "" {
		for i := range s.drafts {
			if s.drafts[i].Slug == d.Slug {
				return i
			}
		}
	}
	return -1
}

// Delete removes the draft with id. It reports whether a draft was removed.
func (s *Store) Delete(id model.DraftID) bool {
	if id == "" {
		return false
	}
	return s.remove(func(d model.Draft) bool { return d.ID == id }) > 0
}

// DeleteBySlug removes every draft carrying slug. An empty slug is a no-op.
func (s *Store) DeleteBySlug(slug string) int {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0
	}
	return s.remove(func(d model.Draft) bool { return d.Slug == slug })
}

func (s *Store) remove(match func(model.Draft) bool) int {
	s.mu.Lock()
	var removed []model.DraftID
	kept := make([]model.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		if match(d) {
			removed = append(removed, d.ID)
			continue
		}
		kept = append(kept, d)
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.drafts = kept
	s.schedulePersistLocked()
	hooks := append([]func(model.DraftID){}, s.onDelete...)
	s.mu.Unlock()

	for _, id := range removed {
		draftsLogger.Debug().Str("kind", string(s.kind)).Str("id", string(id)).Msg("Draft deleted")
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(removed)
}

// List returns a copy of the collection, most recently updated first.
func (s *Store) List() []model.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *Store) listLocked() []model.Draft {
	out := make([]model.Draft, len(s.drafts))
	for i, d := range s.drafts {
		out[i] = d.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *Store) Summaries() []model.DraftSummary {
	list := s.List()
	out := make([]model.DraftSummary, len(list))
	for i, d := range list {
		out[i] = model.DraftSummary{
			ID:        d.ID,
			Kind:      d.Kind,
			Slug:      d.Slug,
			Title:     d.Title,
			Excerpt:   util.Excerpt(d.PrimaryText(), s.excerptLength),
			HasFiles:  d.HasFiles(),
			UpdatedAt: d.UpdatedAt,
		}
	}
	return out
}

func (s *Store) Get(id model.DraftID) (model.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return model.Draft{}, false
}

func (s *Store) FindBySlug(slug string) (model.DraftID, bool) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.Slug == slug {
			return d.ID, true
		}
	}
	return "", false
}

func (s *Store) SlugIndex() SlugIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := make(SlugIndex, len(s.drafts))
	for _, d := range s.drafts {
		if d.Slug != "" {
			if _, seen := idx[d.Slug]; !seen {
				idx[d.Slug] = d.ID
			}
		}
	}
	return idx
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// WriteFallback synchronously writes d to the unload slot.
func (s *Store) WriteFallback(d model.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.slot.Write(s.slotKey, string(data))
}

func (s *Store) schedulePersistLocked() {
	data, err := json.Marshal(s.drafts)
	if err != nil {
		draftsLogger.Error().Err(err).Str("kind", string(s.kind)).Msg("Could not encode drafts")
		return
	}

	s.pmu.Lock()
	s.pending = data
	s.pmu.Unlock()

	select {
	case s.persistCh <- struct{}{}:
	default:
	}
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case <-s.persistCh:
			s.persistPending()
		case ack := <-s.flushCh:
			s.persistPending()
			close(ack)
		case <-s.quit:
			s.persistPending()
			return
		}
	}
}

func (s *Store) persistPending() {
	s.pmu.Lock()
	data := s.pending
	s.pending = nil
	s.pmu.Unlock()

	if data == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.durable.Set(ctx, s.key, data); err != nil {
		draftsLogger.Warn().Err(err).Str("key", s.key).Msg("Could not persist drafts")
		s.notifier.Notify(Notification{
			Kind:    s.kind,
			Level:   LevelWarn,
			Message: MsgCouldNotSave,
		})
	}
}

// Flush waits until every mutation made before the call has been written.
func (s *Store) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case s.flushCh <- ack:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is pending and stops the worker. The durable store stays open.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}
