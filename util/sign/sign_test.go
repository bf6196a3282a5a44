package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/auth"
	"github.com/debemdeboas/draftdesk/internal/auth/testdata"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return []byte(testdata.TestPrivateKeyPEM)
}

func TestParsePrivateKey(t *testing.T) {
	if _, err := parsePrivateKey(testKey(t)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := parsePrivateKey([]byte("garbage")); err == nil {
		t.Error("Expected error for non-PEM input")
	}
}

func TestLogin(t *testing.T) {
	auth.SetLogger(zerolog.Nop())
	provider, err := auth.NewEd25519AuthProvider(testdata.TestPublicKeyPEM, "Authorization", testdata.TestUserID)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	mux := http.NewServeMux()
	auth.RegisterEd25519AuthRoutes(mux, provider)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	key, _ := parsePrivateKey(testKey(t))
	sig, err := login(srv.Client(), srv.URL+"/", key)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sig == "" {
		t.Error("Expected a signature")
	}
}

func TestInteractive(t *testing.T) {
	key, _ := parsePrivateKey(testKey(t))

	var out bytes.Buffer
	in := strings.NewReader("not base64!\n\nZHJhZnQ=\nquit\n")
	if err := interactive(key, in, &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "invalid base64") {
		t.Errorf("Expected an error line, got %s", out.String())
	}
	if strings.Count(out.String(), "Signature: ") != 1 {
		t.Errorf("Expected exactly one signature, got %s", out.String())
	}
}
