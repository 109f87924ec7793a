package generate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCredentialMissing means no API key was configured. Raised
	// before any transport call is attempted.
	ErrCredentialMissing = errors.New("generation API key is missing")

	// ErrCredential means the remote service rejected the configured
	// credential. Distinct from ordinary generation failures so callers
	// can abort a whole batch instead of burning every chunk.
	ErrCredential = errors.New("generation API key rejected")

	// ErrEmptyResponse means the model returned no usable content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// RetryableError indicates a transient failure (rate limit, server
// error) that is worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsCredential reports whether an error is a credential problem of
// either kind.
func IsCredential(err error) bool {
	return errors.Is(err, ErrCredentialMissing) || errors.Is(err, ErrCredential)
}

// classifyAuth upgrades errors whose message looks like an auth or API
// key failure to ErrCredential, leaving everything else untouched.
func classifyAuth(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "auth") || strings.Contains(msg, "api key") {
		return fmt.Errorf("%w: %v", ErrCredential, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
