package secerr

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/google/uuid"
)

// maxMessageLen caps redacted messages so a hostile payload cannot smuggle
// arbitrary amounts of data into logs.
const maxMessageLen = 300

// credPatterns match credential-like key=value fragments in error text.
var credPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(passwd\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(token\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(api_?key\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(secret\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(authorization\s*[=:]\s*)\S+`),
}

// debugMode gates full-detail error passthrough. Off by default.
var debugMode atomic.Bool

// SetDebug toggles debug mode. When active, Boundary preserves the full
// error text (still masked) instead of truncating.
func SetDebug(on bool) {
	debugMode.Store(on)
}

// RedactedError is what callers outside the gateway see: a masked,
// length-capped message with a correlation id tying it back to the event
// log. The original error is retained for errors.As/Is matching but its
// text is never printed.
type RedactedError struct {
	ID      string
	Message string
	cause   error
}

func (e *RedactedError) Error() string {
	return fmt.Sprintf("%s [id=%s]", e.Message, e.ID)
}

func (e *RedactedError) Unwrap() error { return e.cause }

// Boundary sanitizes an error for the public surface: credential fragments
// are masked, the message is capped, and a random correlation id is
// attached. Returns nil for nil input.
func Boundary(err error) error {
	if err == nil {
		return nil
	}
	return &RedactedError{
		ID:      uuid.NewString()[:8],
		Message: Mask(err.Error()),
		cause:   err,
	}
}

// Mask replaces credential-like fragments with their key plus a placeholder
// and caps the result at maxMessageLen (unless debug mode is active).
func Mask(msg string) string {
	for _, re := range credPatterns {
		msg = re.ReplaceAllString(msg, "${1}[REDACTED]")
	}
	if !debugMode.Load() && len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}
	return msg
}
