// Package errs wraps cockroachdb/errors and defines the error kinds the
// booking services report back to callers.
package errs

import (
	"errors"
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

// Kind sentinels. Concrete errors are marked with one of these so callers can
// classify them with Is regardless of how deeply they were wrapped.
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUpstream         = errors.New("upstream error")
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

func Is(err, target error) bool {
	return cr.Is(err, target)
}

// Validationf builds a validation error naming the offending field.
func Validationf(format string, args ...interface{}) error {
	return cr.Mark(cr.Newf(format, args...), ErrValidation)
}

func Conflictf(format string, args ...interface{}) error {
	return cr.Mark(cr.Newf(format, args...), ErrConflict)
}

func NotFoundf(format string, args ...interface{}) error {
	return cr.Mark(cr.Newf(format, args...), ErrNotFound)
}

func PermissionDeniedf(format string, args ...interface{}) error {
	return cr.Mark(cr.Newf(format, args...), ErrPermissionDenied)
}

// Upstream marks err as a failure of an outbound dependency.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Mark(cr.Wrap(err, msg), ErrUpstream)
}

func Upstreamf(format string, args ...interface{}) error {
	return cr.Mark(cr.Newf(format, args...), ErrUpstream)
}

// KindOf returns a short name for the kind err is marked with, or
// "internal" for unclassified errors.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case cr.Is(err, ErrValidation):
		return "validation"
	case cr.Is(err, ErrConflict):
		return "conflict"
	case cr.Is(err, ErrNotFound):
		return "not_found"
	case cr.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case cr.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}

// IsExpected reports whether err is a classified business error rather than
// an unexpected fault.
func IsExpected(err error) bool {
	k := KindOf(err)
	return k != "" && k != "internal"
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
