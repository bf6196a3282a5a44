package auth

import (
	"net/http"

	"github.com/debemdeboas/draftdesk/internal/routes"
)

// RegisterEd25519AuthRoutes registers the challenge and verification endpoints.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider) {
	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
}
