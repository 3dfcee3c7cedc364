package platform

import (
	"errors"
	"fmt"
)

// ProviderError is a platform-side rejection. AuthExpired marks errors the
// provider attributes to a bad or expired token; only those trigger the
// single refresh-and-retry in the publish flow.
type ProviderError struct {
	Platform    string
	StatusCode  int
	Code        string
	Message     string
	Step        string
	AuthExpired bool
}

func (e *ProviderError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %s failed: %s", e.Platform, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

// IsAuthExpired reports whether err is a provider rejection caused by an
// expired or revoked token.
func IsAuthExpired(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.AuthExpired
	}
	return false
}
