// Package routes defines HTTP route constants for the application.
package routes

// API Routes
const (
	// Drafts
	Drafts = "/api/{kind}/drafts"
	Draft  = "/api/{kind}/drafts/{id}"

	// Editor sessions
	Sessions       = "/api/{kind}/sessions"
	Session        = "/api/{kind}/sessions/{sid}"
	SessionForm    = "/api/{kind}/sessions/{sid}/form"
	SessionSave    = "/api/{kind}/sessions/{sid}/save"
	SessionResume  = "/api/{kind}/sessions/{sid}/resume/{id}"
	SessionDiscard = "/api/{kind}/sessions/{sid}/discard"
	SessionSubmit  = "/api/{kind}/sessions/{sid}/submit"
	SessionUnload  = "/api/{kind}/sessions/{sid}/unload"

	// SSE
	SSEPath = "/sse"

	// Health
	HealthPath = "/healthz"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
)

// Remote content API paths, relative to the configured base URL.
const (
	RemoteBlogs    = "/blogs"
	RemoteProjects = "/projects"
)
