// FILE: lixenwraith/setty/errors.go
package setty

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxValueSize limits a single environment or command-line value
const MaxValueSize = 1024 * 1024

var (
	// ErrConfigNotFound is returned when a required configuration file is missing
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrDecode is returned when a merged value does not conform to the target type
	ErrDecode = errors.New("decode error")
	// ErrIO wraps source and sink access failures
	ErrIO = errors.New("io error")
	// ErrValidation wraps rejections by a configured validator
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPath is returned for malformed dotted paths
	ErrInvalidPath = errors.New("invalid path")
	// ErrDeprecated is returned in strict mode when deprecated properties are used
	ErrDeprecated = errors.New("deprecated configuration used")
	// ErrSchema is returned when a schema cannot be built or is inconsistent
	ErrSchema = errors.New("invalid schema")
	// ErrCLIParse is returned for malformed command-line overrides
	ErrCLIParse = errors.New("failed to parse command-line arguments")
	// ErrValueSize is returned when a value exceeds MaxValueSize
	ErrValueSize = fmt.Errorf("value exceeds maximum size of %d bytes", MaxValueSize)
)

// DecodeError describes a value that does not conform to the target type.
type DecodeError struct {
	// Path is the dotted path of the object containing the offending field
	Path string
	// Field is the offending field name, if any
	Field string
	// Reason is a human-readable explanation
	Reason string
	// Suggestion is the closest known field name for unknown fields
	Suggestion string
	// Err is the underlying decoder error, if any
	Err error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode error")
	if where := joinPath(e.Path, e.Field); where != "" {
		fmt.Fprintf(&b, " at %q", where)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is makes DecodeError match ErrDecode
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError wraps an error returned by a validator.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed: %v", e.Err)
}

// Is makes ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ioError wraps an access failure so it matches ErrIO while keeping the cause.
func ioError(op, name string, err error) error {
	return fmt.Errorf("%w: %s '%s': %w", ErrIO, op, name, err)
}

// suggest returns the candidate closest to name, or "" when nothing is close.
func suggest(name string, candidates []string) string {
	best := ""
	bestDist := -1
	lname := strings.ToLower(name)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(lname, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	// Only suggest when at most a third of the name differs
	if bestDist < 0 || bestDist > max(1, len(name)/3) {
		return ""
	}
	return best
}
