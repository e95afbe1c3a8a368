package graph

import "fmt"

// AuthError indicates the client-credentials token exchange failed. A failed
// exchange aborts the poll cycle before any write happens.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("token exchange failed: %s", e.Body)
}

// UpstreamError is a non-retryable or retry-exhausted Graph API failure.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("graph request failed with status %d: %s", e.Status, e.Body)
}
