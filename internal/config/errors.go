package config

const (
	// Config errors
	ErrParseConfigFmt        = "failed to parse config file: %w"
	ErrWriteConfigContentFmt = "Failed to write config content: %v"

	// Storage errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrOpenStorageFmt        = "Failed to open draft storage: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrUnauthorized           = "Unauthorized"
	ErrRefreshChallenge       = "Failed to refresh challenge"

	// Draft API errors
	ErrUnknownKind     = "Unknown editor kind"
	ErrDraftNotFound   = "Draft not found"
	ErrSessionNotFound = "Editor session not found"
	ErrEmptyForm       = "Nothing to save: title and content are empty"
	ErrInvalidBody     = "Invalid request body"
	ErrRemoteSubmit    = "Could not submit to the content API"
	ErrSaveLocally     = "Could not save draft locally"
	ErrInternalServer  = "Internal server error"
)
