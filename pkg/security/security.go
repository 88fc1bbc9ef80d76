// Package security provides validation, sanitization, and limits for the airdrop package.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// Security limits and configuration
const (
	// MaxJobIDLength is the maximum length for job identifiers
	MaxJobIDLength = 128

	// MaxRecipientsPerJob is the hard limit for recipients in one airdrop
	MaxRecipientsPerJob = 10000

	// MaxRequestBodySize is the maximum size in bytes for relay and validation requests (8MB)
	MaxRequestBodySize = 8 << 20

	// MaxRetries is the hard limit for storage retry attempts
	MaxRetries = 20

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096

	// DefaultPageLimit is the history page size when none is given
	DefaultPageLimit = 10

	// MaxPageLimit is the largest history page that can be requested
	MaxPageLimit = 100
)

// validJobID matches alphanumeric, hyphens, underscores, and dots
var validJobID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-\.]*$`)

// ValidateJobID validates a job identifier
func ValidateJobID(id string) error {
	if id == "" || len(id) > MaxJobIDLength {
		return core.ErrInvalidJobID
	}
	if !validJobID.MatchString(id) {
		return core.ErrInvalidJobID
	}
	return nil
}

// ValidateRecipientCount rejects empty and oversized recipient lists
func ValidateRecipientCount(n int) error {
	if n == 0 {
		return core.ErrNoRecipients
	}
	if n > MaxRecipientsPerJob {
		return core.ErrTooManyRecipients
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampRetries ensures retry count is within limits
func ClampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxRetries {
		return MaxRetries
	}
	return n
}

// ClampPage returns a 1-based page number and a bounded page size
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
