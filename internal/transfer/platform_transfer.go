package transfer

import "time"

// TokenRefresh is the outcome of a provider token rotation.
type TokenRefresh struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AccountInfo is the provider-side identity captured on OAuth connect.
type AccountInfo struct {
	AccountID      string
	Name           string
	Username       string
	ProfilePicture string
}

// Permalink is a resolved public URL. Confirmed is true when the URL came
// from the provider's lookup endpoint; false for a constructed fallback,
// which consumers must treat as provisional and which is never persisted.
type Permalink struct {
	URL       string `json:"url"`
	Confirmed bool   `json:"confirmed"`
}
