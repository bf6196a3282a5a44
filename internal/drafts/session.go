package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/draftdesk/internal/model"
)

type State int

const (
	StateUnbound State = iota
	StateBoundNew
	StateResumed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBoundNew:
		return "bound"
	case StateResumed:
		return "resumed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, st := range []State{StateUnbound, StateBoundNew, StateResumed, StateClosed} {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", name)
}

// Form is the editor state of one session. Only the field matching the session kind is set.
type Form struct {
	Blog    *model.BlogFields    `json:"blog,omitempty"`
	Project *model.ProjectFields `json:"project,omitempty"`
}

// Reattach lists the uploads restored from a draft that have no file data.
func (f Form) Reattach() []model.FileMeta {
	var uploads []model.Upload
	switch {
	case f.Blog != nil:
		if f.Blog.CoverPhoto != nil {
			uploads = append(uploads, *f.Blog.CoverPhoto)
		}
		uploads = append(uploads, f.Blog.InlineImages...)
	case f.Project != nil:
		if f.Project.Cover != nil {
			uploads = append(uploads, *f.Project.Cover)
		}
		uploads = append(uploads, f.Project.Gallery...)
	}

	var out []model.FileMeta
	for _, u := range uploads {
		if u.NeedsReattach() {
			out = append(out, u.Meta())
		}
	}
	return out
}

// Submitter creates the real record on the content API.
type Submitter interface {
	CreateBlog(ctx context.Context, f model.BlogFields) error
	CreateProject(ctx context.Context, f model.ProjectFields) error
}

// Session is one open editor bound to a Store.
type Session struct {
	id        model.SessionID
	store     *Store
	scheduler Scheduler
	interval  time.Duration
	notifier  Notifier

	mu              sync.Mutex
	state           State
	activeID        model.DraftID
	blog            model.BlogFields
	project         model.ProjectFields
	lastFingerprint string
	cancel          func()
}

func NewSession(id model.SessionID, store *Store, scheduler Scheduler, interval time.Duration, notifier Notifier) *Session {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Session{
		id:        id,
		store:     store,
		scheduler: scheduler,
		interval:  interval,
		notifier:  notifier,
	}
}

func (s *Session) ID() model.SessionID {
	return s.id
}

func (s *Session) Kind() model.Kind {
	return s.store.Kind()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ActiveID() model.DraftID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formLocked()
}

func (s *Session) formLocked() Form {
	if s.Kind() == model.KindBlog {
		f := s.blog
		return Form{Blog: &f}
	}
	f := s.project
	return Form{Project: &f}
}

// Start registers the autosave schedule. Calling it again is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.cancel != nil || s.scheduler == nil {
		return nil
	}

	cancel, err := s.scheduler.Every(s.interval, s.Tick)
	if err != nil {
		return err
	}
	s.cancel = cancel
	return nil
}

func (s *Session) UpdateBlog(f model.BlogFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.Kind() != model.KindBlog {
		return ErrKindMismatch
	}
	s.blog = f
	return nil
}

func (s *Session) UpdateProject(f model.ProjectFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.Kind() != model.KindProject {
		return ErrKindMismatch
	}
	s.project = f
	return nil
}

func (s *Session) snapshotLocked() *model.Draft {
	now := s.store.now()
	idx := s.store.SlugIndex()
	if s.Kind() == model.KindBlog {
		return MakeBlogSnapshot(s.blog, s.activeID, idx, now)
	}
	return MakeProjectSnapshot(s.project, s.activeID, idx, now)
}

func (s *Session) bindLocked(id model.DraftID) {
	s.activeID = id
	if s.state == StateUnbound {
		s.state = StateBoundNew
	}
}

// Tick is one autosave. Empty forms and unchanged content are skipped.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}

	d := s.snapshotLocked()
	if d == nil {
		return
	}

	fp := Fingerprint(*d)
	if fp == s.lastFingerprint && s.activeID != "" {
		return
	}

	stored := s.store.Upsert(*d)
	s.bindLocked(stored.ID)
	s.lastFingerprint = fp

	draftsLogger.Debug().Str("session", string(s.id)).Str("id", string(stored.ID)).Msg("Autosaved draft")
}

// SaveNow is the manual "save as draft" action.
func (s *Session) SaveNow() (model.Draft, error) {
	s.mu.Lock()

	if s.state == StateClosed {
		s.mu.Unlock()
		return model.Draft{}, ErrSessionClosed
	}

	d := s.snapshotLocked()
	if d == nil {
		s.mu.Unlock()
		return model.Draft{}, ErrEmptyForm
	}

	stored := s.store.Upsert(*d)
	s.bindLocked(stored.ID)
	s.lastFingerprint = Fingerprint(*d)
	s.mu.Unlock()

	s.notify(LevelSuccess, MsgDraftSaved)
	return stored, nil
}

// Resume populates the form from an existing draft and binds the session to it.
func (s *Session) Resume(id model.DraftID) (Form, error) {
	s.mu.Lock()

	if s.state == StateClosed {
		s.mu.Unlock()
		return Form{}, ErrSessionClosed
	}

	d, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		return Form{}, ErrDraftNotFound
	}

	if s.Kind() == model.KindBlog {
		s.blog = ResumeBlog(d)
	} else {
		s.project = ResumeProject(d)
	}
	s.activeID = d.ID
	s.state = StateResumed
	s.lastFingerprint = Fingerprint(d)
	form := s.formLocked()
	s.mu.Unlock()

	s.notify(LevelInfo, MsgDraftLoaded)
	return form, nil
}

// Discard deletes the bound draft, if any, and resets the form.
func (s *Session) Discard() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	id := s.activeID
	s.unbindLocked()
	s.blog = model.BlogFields{}
	s.project = model.ProjectFields{}
	s.mu.Unlock()

	if id != "" && s.store.Delete(id) {
		s.notify(LevelInfo, MsgDraftDiscarded)
	}
	return nil
}

func (s *Session) unbindLocked() {
	s.activeID = ""
	s.lastFingerprint = ""
	if s.state != StateClosed {
		s.state = StateUnbound
	}
}

// forget unbinds the session when its draft was deleted elsewhere.
func (s *Session) forget(id model.DraftID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == id {
		s.unbindLocked()
	}
}

// Submit sends the form to the content API. On success the drafts carrying the
// submitted slug and the bound draft are deleted and the session is closed.
// On failure the session stays open and bound.
func (s *Session) Submit(ctx context.Context, sub Submitter) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	kind := s.Kind()
	blog, project := s.blog, s.project
	activeID := s.activeID
	s.mu.Unlock()

	var (
		slug string
		err  error
	)
	if kind == model.KindBlog {
		slug = blog.Slug
		err = sub.CreateBlog(ctx, blog)
	} else {
		slug = project.Slug
		err = sub.CreateProject(ctx, project)
	}
	if err != nil {
		draftsLogger.Warn().Err(err).Str("session", string(s.id)).Msg("Submit failed, keeping draft")
		return err
	}

	// Closed before the deletes so a tick cannot write the form back.
	s.retire()
	s.store.DeleteBySlug(slug)
	s.store.Delete(activeID)

	draftsLogger.Info().Str("session", string(s.id)).Str("slug", slug).Msg("Submitted, draft retired")
	return nil
}

// Unload saves the form through the normal path and synchronously to the fallback slot.
func (s *Session) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	d := s.snapshotLocked()
	if d == nil {
		return nil
	}

	stored := s.store.Upsert(*d)
	s.bindLocked(stored.ID)
	s.lastFingerprint = Fingerprint(*d)

	return s.store.WriteFallback(stored)
}

// Close cancels the autosave schedule. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	cancel := s.closeLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// retire closes the session and drops the submitted form.
func (s *Session) retire() {
	s.mu.Lock()
	cancel := s.closeLocked()
	s.blog = model.BlogFields{}
	s.project = model.ProjectFields{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Session) closeLocked() func() {
	s.state = StateClosed
	cancel := s.cancel
	s.cancel = nil
	return cancel
}

func (s *Session) notify(level Level, msg string) {
	s.notifier.Notify(Notification{
		Kind:    s.Kind(),
		Session: s.id,
		Level:   level,
		Message: msg,
	})
}
