// Package sse fans editor notifications out to Server-Sent Events clients.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/drafts"
	"github.com/debemdeboas/draftdesk/internal/model"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

type Client struct {
	Msg     chan string
	Kind    model.Kind
	Session model.SessionID
}

func NewClient(kind model.Kind, session model.SessionID) *Client {
	return &Client{
		Msg:     make(chan string, 8),
		Kind:    kind,
		Session: session,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to the clients of session, or to every client of kind
// when session is empty. Slow clients drop the message.
func (s *SSEClients) Broadcast(kind model.Kind, session model.SessionID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Kind != kind {
			continue
		}
		if session != "" && client.Session != session {
			continue
		}
		select {
		case client.Msg <- msg:
		default:
			sseLogger.Debug().Str("session", string(client.Session)).Msg("Dropped notification for slow client")
		}
	}
}

// Notify implements drafts.Notifier.
func (s *SSEClients) Notify(n drafts.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		sseLogger.Error().Err(err).Msg("Could not encode notification")
		return
	}
	s.Broadcast(n.Kind, n.Session, string(data))
}
