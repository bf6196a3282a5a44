package drafts

import (
	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/model"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
)

const (
	MsgDraftSaved     = "Draft saved"
	MsgDraftLoaded    = "Draft loaded"
	MsgCouldNotSave   = "Could not save locally"
	MsgDraftDiscarded = "Draft discarded"
)

// Notification is a non-blocking message for the editor.
// An empty Session addresses every open editor of Kind.
type Notification struct {
	Kind    model.Kind      `json:"kind"`
	Session model.SessionID `json:"session,omitempty"`
	Level   Level           `json:"level"`
	Message string          `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to the package logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	var ev *zerolog.Event
	if n.Level == LevelWarn {
		ev = draftsLogger.Warn()
	} else {
		ev = draftsLogger.Info()
	}
	ev.Str("kind", string(n.Kind)).
		Str("session", string(n.Session)).
		Str("level", string(n.Level)).
		Msg(n.Message)
}

// Notifiers fans a notification out to every member.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notification) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
