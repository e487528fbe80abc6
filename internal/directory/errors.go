package directory

import (
	"errors"
	"fmt"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// ErrorKind names the terminal failure classes of a credential
// operation. Callers translate these into exit codes or HTTP statuses.
type ErrorKind string

const (
	// KindConnection is a transport failure. Transient; retried by the
	// LDAP layer before it ever reaches a caller.
	KindConnection ErrorKind = "connection"
	// KindAuthentication means the privileged bind was rejected. Never
	// retried; requires operator attention.
	KindAuthentication ErrorKind = "authentication"
	// KindNotFound means no entry matched the user identifier.
	KindNotFound ErrorKind = "not_found"
	// KindAmbiguousMatch means more than one entry matched. Ambiguity
	// is a data-integrity problem to surface, never to guess around.
	KindAmbiguousMatch ErrorKind = "ambiguous_match"
	// KindPolicyClient means the candidate failed local policy before
	// any network call was made.
	KindPolicyClient ErrorKind = "policy_violation"
	// KindPolicyServer means the directory rejected the value under its
	// own rules, i.e. something local validation did not catch.
	KindPolicyServer ErrorKind = "policy_violation_server"
	// KindStaleEntry means the entry disappeared or moved between
	// resolution and mutation.
	KindStaleEntry ErrorKind = "stale_entry"
	// KindDirectory is any other protocol-level failure.
	KindDirectory ErrorKind = "directory"
)

// Retryable reports whether the kind describes a transient condition.
// All other kinds are deterministic outcomes that retrying cannot fix.
func (k ErrorKind) Retryable() bool {
	return k == KindConnection
}

// OperationError is the failure type surfaced by directory operations.
// It never contains the attempted password.
type OperationError struct {
	Kind       ErrorKind
	Reason     string // human-readable, local
	Diagnostic string // server-provided diagnostic, if any
	Err        error  // underlying cause
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Diagnostic != "" {
		msg += " (server: " + e.Diagnostic + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// newOpError builds an OperationError with a local reason.
func newOpError(kind ErrorKind, reason string, err error) *OperationError {
	return &OperationError{
		Kind:       kind,
		Reason:     reason,
		Diagnostic: ldapc.ServerDiagnostic(err),
		Err:        err,
	}
}

// IsKind reports whether err is an OperationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Kind == kind
}

// classifyDirectoryError maps an error from the LDAP layer onto the
// operation taxonomy.
func classifyDirectoryError(reason string, err error) *OperationError {
	switch ldapc.GetErrorCategory(err) {
	case ldapc.ErrorCategoryAuthentication:
		return newOpError(KindAuthentication, reason, err)
	case ldapc.ErrorCategoryConnection:
		return newOpError(KindConnection, reason, err)
	default:
		return newOpError(KindDirectory, reason, err)
	}
}
