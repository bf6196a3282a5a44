// Command sign answers the draft service's Ed25519 challenge.
//
// With -server it fetches a fresh challenge, signs it and prints the signature
// to send as the Authorization header. Without it, it signs challenges typed
// on stdin.
package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/draftdesk/internal/routes"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parsePrivateKey(privKeyBytes)
}

func parsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an Ed25519 private key")
	}
	return edPriv, nil
}

func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(strings.TrimSpace(challengeB64))
	if err != nil {
		return "", fmt.Errorf("invalid base64 challenge: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

// login rotates the server challenge, signs it and checks the signature is accepted.
func login(client *http.Client, server string, key ed25519.PrivateKey) (string, error) {
	server = strings.TrimRight(server, "/")

	resp, err := client.Post(server+routes.AuthChallenge, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge request returned %d", resp.StatusCode)
	}

	var body struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode challenge: %w", err)
	}

	signature, err := signChallenge(key, body.Challenge)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, server+routes.AuthVerify, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Signature "+signature)

	verify, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer verify.Body.Close()
	io.Copy(io.Discard, verify.Body)

	if verify.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signature rejected with status %d", verify.StatusCode)
	}
	return signature, nil
}

func interactive(key ed25519.PrivateKey, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		sig, err := signChallenge(key, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprintln(out, outputStyle.Render("Signature: "+sig))
	}
	return scanner.Err()
}

func main() {
	keyPath := flag.String("key", "privkey.pem", "PKCS#8 PEM file holding the Ed25519 private key")
	server := flag.String("server", "", "Base URL of the draft service, for example http://localhost:12600")
	flag.Parse()

	key, err := loadPrivateKey(*keyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error loading private key: "+err.Error()))
		os.Exit(1)
	}

	if *server == "" {
		if err := interactive(key, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "Error reading input:", err)
			os.Exit(1)
		}
		return
	}

	sig, err := login(&http.Client{Timeout: 10 * time.Second}, *server, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Login failed: "+err.Error()))
		os.Exit(1)
	}
	fmt.Println(outputStyle.Render("Authorization: Signature " + sig))
}
