package sync

import "fmt"

// ConfigError indicates a required setting is missing. It aborts a poll
// cycle before any side effect.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("required setting %q is not configured", e.Setting)
}

// DataIntegrityError marks a presence observation that references a user the
// store does not know. The observation is skipped; the cycle continues.
type DataIntegrityError struct {
	AADUserID string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("presence observation references unknown user %q", e.AADUserID)
}
