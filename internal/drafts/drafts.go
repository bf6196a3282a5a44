// Package drafts keeps the bounded per-editor draft collections and the
// editor sessions that autosave into them.
package drafts

import (
	"errors"

	"github.com/rs/zerolog"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrEmptyForm     = errors.New("form is empty")
	ErrSessionClosed = errors.New("session closed")
	ErrKindMismatch  = errors.New("form does not match the session kind")
	ErrUnknownKind   = errors.New("unknown editor kind")
)

const DefaultMaxDrafts = 20

var draftsLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftsLogger = l
}
