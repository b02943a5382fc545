package bridge

import "errors"

// ErrNotInitialized is returned when an operation runs before Init
// completed successfully. This is a sequencing fault in the host, never
// recoverable by retrying the operation.
var ErrNotInitialized = errors.New("memory bridge not initialized, call Init first")

// ConfigError reports a missing credential or an option that fails
// validation. It is fatal to initialization.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "memory bridge configuration: " + e.Reason
}
