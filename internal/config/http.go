package config

const (
	HCType         = "Content-Type"
	HCacheControl  = "Cache-Control"
	HAuthorization = "Authorization"
	HConnection    = "Connection"

	CTypeJSON = "application/json"
	CTypeSSE  = "text/event-stream"
)

const (
	CookieAuthToken  = "auth_token"
	AuthCookieMaxAge = 3600 * 24
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)
