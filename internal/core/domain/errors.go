package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrConfiguration marks adapter misconfiguration (missing credentials,
	// bad endpoint). Never retried; aborts the workflow session.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnavailable marks a reachable-in-principle collaborator that failed
	// (network, timeout, 5xx). Distinct from a successful empty result.
	ErrUnavailable = errors.New("service unavailable")
	ErrTemporary   = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
