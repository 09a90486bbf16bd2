package relay

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidationError rejects a submission before any platform is contacted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// MissingCredentialsError is returned by a publisher whose credentials are incomplete.
// Variables names the unset settings; it goes to logs and `check`, not to clients.
type MissingCredentialsError struct {
	Provider  string
	Variables []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("%s credentials not configured", e.Provider)
}

// ProviderError carries the reason a platform gave for rejecting a call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Reason, e.StatusCode)
}

// StatusReason is the fallback reason for a non-2xx response without a usable body.
func StatusReason(code int) string {
	return fmt.Sprintf("request failed with status code %d", code)
}

// FailureReason maps a publisher error to the human-readable reason shown to clients.
// Transport errors are unwrapped from *url.Error so request URLs (which embed the
// Telegram bot token) never reach the response body.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Reason
	}
	var credsErr *MissingCredentialsError
	if errors.As(err, &credsErr) {
		return credsErr.Error()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
