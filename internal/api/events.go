package api

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/routes"
	"github.com/debemdeboas/draftdesk/internal/sse"
)

// RegisterHealth mounts the unauthenticated health check.
func (h *Handler) RegisterHealth(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.HealthPath, h.Health)
}

// Events streams the notifications of one editor session.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sid := model.SessionID(r.URL.Query().Get("session"))
	if sid == "" {
		http.Error(w, "Session parameter required", http.StatusBadRequest)
		return
	}
	sess, ok := h.registry.Get(sid)
	if !ok {
		http.Error(w, config.ErrSessionNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set(config.HCType, config.CTypeSSE)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set(config.HConnection, "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := sse.NewClient(sess.Kind(), sid)
	h.clients.Add(client)

	log := zerolog.Ctx(r.Context()).With().Str("session", string(sid)).Logger()
	log.Debug().Msg("New SSE client connected")

	defer func() {
		h.clients.Delete(client)
		log.Debug().Msg("SSE client disconnected")
	}()

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", sid)
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Clients  int    `json:"sse_clients"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: h.registry.Len(),
		Clients:  h.clients.Len(),
	})
}
