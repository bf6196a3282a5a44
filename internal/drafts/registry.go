package drafts

import (
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/draftdesk/internal/cache"
	"github.com/debemdeboas/draftdesk/internal/model"
)

// Registry tracks the open editor sessions of every kind.
type Registry struct {
	stores    map[model.Kind]*Store
	scheduler Scheduler
	interval  time.Duration
	notifier  Notifier
	sessions  *cache.Cache[model.SessionID, *Session]
}

func NewRegistry(stores []*Store, scheduler Scheduler, interval time.Duration, notifier Notifier) *Registry {
	r := &Registry{
		stores:    make(map[model.Kind]*Store, len(stores)),
		scheduler: scheduler,
		interval:  interval,
		notifier:  notifier,
		sessions:  cache.NewCache[model.SessionID, *Session](),
	}
	for _, st := range stores {
		kind := st.Kind()
		r.stores[kind] = st
		st.OnDelete(func(id model.DraftID) {
			r.forget(kind, id)
		})
	}
	return r
}

func (r *Registry) Store(kind model.Kind) (*Store, bool) {
	st, ok := r.stores[kind]
	return st, ok
}

// Open starts a new autosaving session for kind.
func (r *Registry) Open(kind model.Kind) (*Session, error) {
	st, ok := r.stores[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	sess := NewSession(model.SessionID(uuid.NewString()), st, r.scheduler, r.interval, r.notifier)
	if err := sess.Start(); err != nil {
		return nil, err
	}
	r.sessions.Set(sess.ID(), sess)

	draftsLogger.Info().Str("kind", string(kind)).Str("session", string(sess.ID())).Msg("Editor session opened")
	return sess, nil
}

// Interval is the autosave period of new sessions.
func (r *Registry) Interval() time.Duration {
	return r.interval
}

func (r *Registry) Get(id model.SessionID) (*Session, bool) {
	return r.sessions.Get(id)
}

// Close cancels and forgets the session. It reports whether the session was open.
func (r *Registry) Close(id model.SessionID) bool {
	sess, ok := r.sessions.Take(id)
	if !ok {
		return false
	}
	sess.Close()
	draftsLogger.Info().Str("session", string(id)).Msg("Editor session closed")
	return true
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// UnloadAll unloads and closes every open session. It returns how many were unloaded.
func (r *Registry) UnloadAll() int {
	n := 0
	for _, id := range r.sessions.Keys() {
		sess, ok := r.sessions.Take(id)
		if !ok {
			continue
		}
		if err := sess.Unload(); err != nil {
			draftsLogger.Warn().Err(err).Str("session", string(id)).Msg("Unload fallback write failed")
		}
		sess.Close()
		n++
	}
	return n
}

func (r *Registry) forget(kind model.Kind, id model.DraftID) {
	for _, sess := range r.sessions.Values() {
		if sess.Kind() == kind {
			sess.forget(id)
		}
	}
}
