package service

import "fmt"

// ValidationError reports a request the caller can fix.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidMediaURLError reports an external media URL that failed
// validation before any upload or provider call was made.
type InvalidMediaURLError struct {
	URL    string
	Reason string
}

func (e *InvalidMediaURLError) Error() string {
	return fmt.Sprintf("invalid media url %q: %s", e.URL, e.Reason)
}

// AuthExpiredError means the account's credentials are no longer
// usable and the user has to reconnect the account.
type AuthExpiredError struct {
	Platform  string
	AccountID int64
	Cause     error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s account %d: authorization expired, reconnect the account", e.Platform, e.AccountID)
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Cause
}

// StorageError wraps failures talking to the media object store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
