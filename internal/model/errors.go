package model

// ErrorCode is the typed failure taxonomy surfaced by provider clients,
// extraction jobs, and enrichment runs.
type ErrorCode string

// Error codes.
const (
	ErrNoAPIKey            ErrorCode = "no_api_key"
	ErrInvalidEmail        ErrorCode = "invalid_email"
	ErrRateLimited         ErrorCode = "rate_limited"
	ErrNetwork             ErrorCode = "network_error"
	ErrUnsupportedFileType ErrorCode = "unsupported_file_type"
	ErrParse               ErrorCode = "parse_error"
	ErrProvider            ErrorCode = "provider_error"
)

// Retryable reports whether the failure is transient.
func (c ErrorCode) Retryable() bool {
	return c == ErrRateLimited || c == ErrNetwork
}

// Failure is embedded in provider outcomes. A zero Code means success.
type Failure struct {
	Code    ErrorCode `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Failed reports whether the outcome carries an error.
func (f Failure) Failed() bool { return f.Code != "" }

// Fail builds a Failure.
func Fail(code ErrorCode, message string) Failure {
	return Failure{Code: code, Message: message}
}

// CodeForStatus maps a non-success provider HTTP status onto the taxonomy.
func CodeForStatus(status int) ErrorCode {
	switch status {
	case 429:
		return ErrRateLimited
	case 401, 403:
		return ErrNoAPIKey
	default:
		return ErrNetwork
	}
}
