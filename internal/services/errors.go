package services

// ValidationError marks missing or malformed input. Detected before any
// write, so it never leaves partial state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(message string) error {
	return &ValidationError{Message: message}
}

// AuthorizationError marks a failed secret-key or credential check.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password, so the response shape cannot distinguish the two.
var ErrInvalidCredentials = &AuthorizationError{Message: "Invalid credentials"}
