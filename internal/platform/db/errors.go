package db

import (
	"errors"
	"strings"
)

// Kind classifies a gateway failure for the caller.
type Kind string

const (
	// KindTransientInfra marks a bridge-level fault that was already retried
	// and exhausted. Only reads ever carry this kind.
	KindTransientInfra Kind = "transient_infra"
	// KindUnknown covers everything else, including all write failures.
	KindUnknown Kind = "unknown"
)

// Error wraps a backend failure with its classified kind. The underlying
// message is preserved verbatim for operator diagnosis.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return "db: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain. Errors that did not
// pass through the gateway report KindUnknown.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// transientMarkers is the classifier's detection rule. The backend offers no
// richer signal than its message text: "spawn" and "process" are the bridge's
// process-level fault markers, "locked" and "busy" are the SQLite equivalents.
var transientMarkers = []string{
	"spawn",
	"process",
	"database is locked",
	"busy",
}

// isTransient reports whether err looks like a transient infrastructure fault
// rather than a genuine SQL or constraint error.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
