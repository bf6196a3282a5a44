// Package api exposes the draft stores and editor sessions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/drafts"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/remote"
	"github.com/debemdeboas/draftdesk/internal/routes"
	"github.com/debemdeboas/draftdesk/internal/sse"
)

// Beacon bodies carry at most the form text plus file metadata.
const maxBodySize = 8 << 20

type Handler struct {
	registry  *drafts.Registry
	clients   *sse.SSEClients
	submitter drafts.Submitter
}

func NewHandler(registry *drafts.Registry, clients *sse.SSEClients, submitter drafts.Submitter) *Handler {
	return &Handler{
		registry:  registry,
		clients:   clients,
		submitter: submitter,
	}
}

// Register mounts the draft, session and notification routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.Drafts, h.ListDrafts)
	mux.HandleFunc("DELETE "+routes.Drafts, h.DeleteDraftsBySlug)
	mux.HandleFunc("GET "+routes.Draft, h.GetDraft)
	mux.HandleFunc("DELETE "+routes.Draft, h.DeleteDraft)

	mux.HandleFunc("POST "+routes.Sessions, h.OpenSession)
	mux.HandleFunc("GET "+routes.Session, h.GetSession)
	mux.HandleFunc("DELETE "+routes.Session, h.CloseSession)
	mux.HandleFunc("PUT "+routes.SessionForm, h.UpdateForm)
	mux.HandleFunc("POST "+routes.SessionSave, h.SaveDraft)
	mux.HandleFunc("POST "+routes.SessionResume, h.ResumeDraft)
	mux.HandleFunc("POST "+routes.SessionDiscard, h.DiscardDraft)
	mux.HandleFunc("POST "+routes.SessionSubmit, h.Submit)
	mux.HandleFunc("POST "+routes.SessionUnload, h.Unload)

	mux.HandleFunc("GET "+routes.SSEPath, h.Events)
}

type sessionResponse struct {
	ID       model.SessionID  `json:"id"`
	Kind     model.Kind       `json:"kind"`
	State    drafts.State     `json:"state"`
	ActiveID model.DraftID    `json:"active_id,omitempty"`
	Form     drafts.Form      `json:"form"`
	Reattach []model.FileMeta `json:"reattach,omitempty"`
	Interval string           `json:"autosave_interval,omitempty"`
}

func newSessionResponse(s *drafts.Session) sessionResponse {
	form := s.Form()
	return sessionResponse{
		ID:       s.ID(),
		Kind:     s.Kind(),
		State:    s.State(),
		ActiveID: s.ActiveID(),
		Form:     form,
		Reattach: form.Reattach(),
	}
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*drafts.Store, bool) {
	kind, ok := model.ParseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, config.ErrUnknownKind)
		return nil, false
	}
	st, ok := h.registry.Store(kind)
	if !ok {
		writeError(w, http.StatusNotFound, config.ErrUnknownKind)
		return nil, false
	}
	return st, true
}

// session resolves {sid} and checks it belongs to {kind}.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*drafts.Session, bool) {
	st, ok := h.store(w, r)
	if !ok {
		return nil, false
	}
	sess, ok := h.registry.Get(model.SessionID(r.PathValue("sid")))
	if !ok || sess.Kind() != st.Kind() {
		writeError(w, http.StatusNotFound, config.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Summaries())
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	d, ok := st.Get(model.DraftID(r.PathValue("id")))
	if !ok {
		writeError(w, http.StatusNotFound, config.ErrDraftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	if !st.Delete(model.DraftID(r.PathValue("id"))) {
		writeError(w, http.StatusNotFound, config.ErrDraftNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteDraftsBySlug(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	n := st.DeleteBySlug(r.URL.Query().Get("slug"))
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	sess, err := h.registry.Open(st.Kind())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Could not open editor session")
		writeError(w, http.StatusInternalServerError, config.ErrInternalServer)
		return
	}

	resp := newSessionResponse(sess)
	resp.Interval = h.registry.Interval().String()
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.registry.Close(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var form drafts.Form
	if err := decodeForm(r, sess.Kind(), &form); err != nil || formEmpty(form) {
		writeError(w, http.StatusBadRequest, config.ErrInvalidBody)
		return
	}
	if err := applyForm(sess, form); err != nil {
		writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := sess.SaveNow()
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) ResumeDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Resume(model.DraftID(r.PathValue("id"))); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Discard(); err != nil {
		writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	err := sess.Submit(r.Context(), h.submitter)
	if err == nil {
		h.registry.Close(sess.ID())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if errors.Is(err, drafts.ErrSessionClosed) {
		writeSessionError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Warn().Err(err).Str("session", string(sess.ID())).Msg("Submit failed")

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, config.ErrRemoteSubmit)
}

// Unload accepts the page-hide beacon. The body optionally carries the latest form.
func (h *Handler) Unload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var form drafts.Form
	if err := decodeForm(r, sess.Kind(), &form); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, config.ErrInvalidBody)
		return
	}
	if !formEmpty(form) {
		if err := applyForm(sess, form); err != nil {
			writeSessionError(w, r, err)
			return
		}
	}

	if err := sess.Unload(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("session", string(sess.ID())).Msg("Unload fallback write failed")
	}
	h.registry.Close(sess.ID())
	w.WriteHeader(http.StatusAccepted)
}

// decodeForm reads a Form envelope or, for convenience, the bare fields of kind.
func decodeForm(r *http.Request, kind model.Kind, form *drafts.Form) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return io.EOF
	}

	if err := json.Unmarshal(data, form); err != nil {
		return err
	}
	if !formEmpty(*form) {
		return nil
	}

	if kind == model.KindBlog {
		var f model.BlogFields
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		form.Blog = &f
		return nil
	}
	var f model.ProjectFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	form.Project = &f
	return nil
}

func formEmpty(f drafts.Form) bool {
	return f.Blog == nil && f.Project == nil
}

func applyForm(sess *drafts.Session, form drafts.Form) error {
	if form.Blog != nil {
		return sess.UpdateBlog(*form.Blog)
	}
	if form.Project != nil {
		return sess.UpdateProject(*form.Project)
	}
	return nil
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, drafts.ErrEmptyForm):
		writeError(w, http.StatusUnprocessableEntity, config.ErrEmptyForm)
	case errors.Is(err, drafts.ErrDraftNotFound):
		writeError(w, http.StatusNotFound, config.ErrDraftNotFound)
	case errors.Is(err, drafts.ErrKindMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, drafts.ErrSessionClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Session operation failed")
		writeError(w, http.StatusInternalServerError, config.ErrInternalServer)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
