package contextkey

// Key is the type used for context values set by middleware.
type Key string

const (
	// RequestID identifies a single HTTP request across log lines.
	RequestID Key = "request_id"
)
