// Package auth guards the draft API with an Ed25519 signed challenge.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	// WithHeaderAuthorization puts the user in the request context when the request is signed.
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)
}

// RequireUser rejects requests that WithHeaderAuthorization did not authenticate.
func RequireUser(p AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := p.EnforceUserAndGetID(w, r); err != nil {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OpenProvider authenticates every request as the same user. It is used when auth is disabled.
type OpenProvider struct {
	userID model.UserID
}

func NewOpenProvider(userID model.UserID) *OpenProvider {
	return &OpenProvider{userID: userID}
}

func (p *OpenProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.userID)))
		})
	}
}

func (p *OpenProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	return p.userID, nil
}

func (p *OpenProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	return p.userID, nil
}
