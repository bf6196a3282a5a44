package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/model"
)

// Ed25519AuthProvider implements AuthProvider with Ed25519-based auth
type Ed25519AuthProvider struct {
	publicKey  ed25519.PublicKey
	headerName string
	cookieName string
	userID     model.UserID

	mu        sync.RWMutex
	challenge []byte
}

// NewEd25519AuthProvider creates a new Ed25519-based auth provider
func NewEd25519AuthProvider(publicKeyPEM string, headerName string, userID model.UserID) (*Ed25519AuthProvider, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	return &Ed25519AuthProvider{
		publicKey:  publicKey,
		headerName: headerName,
		cookieName: config.CookieAuthToken,
		userID:     userID,
		challenge:  challenge,
	}, nil
}

func newChallenge() ([]byte, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	return challenge, nil
}

// WithHeaderAuthorization returns middleware that validates Ed25519-signed messages
func (p *Ed25519AuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())

			var signature []byte
			var err error

			// Header first, then cookie
			authHeader := r.Header.Get(p.headerName)
			if authHeader != "" {
				signature, err = base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(authHeader, "Signature ")))
				if err != nil {
					l.Debug().Err(err).Msg("Failed to decode signature from header")
				}
			}

			if len(signature) == 0 && authHeader == "" {
				cookie, err := r.Cookie(p.cookieName)
				if err == nil && cookie.Value != "" {
					signature, err = base64.StdEncoding.DecodeString(cookie.Value)
					if err != nil {
						l.Debug().Err(err).Msg("Failed to decode signature from cookie")
					}
				}
			}

			if len(signature) > 0 && p.Verify(signature) {
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.userID)))
				return
			}

			// No valid signature, proceed without user ID
			next.ServeHTTP(w, r)
		})
	}
}

// Verify checks signature against the current challenge.
func (p *Ed25519AuthProvider) Verify(signature []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ed25519.Verify(p.publicKey, p.challenge, signature)
}

func (p *Ed25519AuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Debug().Msg("No user ID found in context")
		return "", errors.New("no user ID in context")
	}
	return userID, nil
}

// GetChallenge returns the current challenge that needs to be signed
func (p *Ed25519AuthProvider) GetChallenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.challenge...)
}

// RefreshChallenge generates a new random challenge. Signatures of the old one stop working.
func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge, err := newChallenge()
	if err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return err
	}
	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

func (p *Ed25519AuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := p.GetUserIDFromSession(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthorized access attempt")
		http.Error(w, config.ErrUnauthorized, http.StatusUnauthorized)
		return "", err
	}
	return userID, nil
}
