package memgate

import "fmt"

// RemoteError is returned for any non-success HTTP outcome or transport
// failure from the memgate service. The bridge never retries; the host's
// own retry policy (if any) applies.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memgate: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("memgate: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error { return e.Err }
