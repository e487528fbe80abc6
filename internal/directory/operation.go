package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// OperationState tracks where a credential operation is in its
// lifecycle. Each operation owns its own state; concurrent operations
// never share one.
type OperationState string

const (
	StateIdle       OperationState = "idle"
	StateValidating OperationState = "validating"
	StateResolving  OperationState = "resolving"
	StateMutating   OperationState = "mutating"
	StateSucceeded  OperationState = "succeeded"
	StateFailed     OperationState = "failed"
)

// OperationResult reports the outcome of a single credential
// operation. OperationID is assigned at the start and carried through
// every log line so a run can be traced end to end.
type OperationResult struct {
	OperationID string
	Success     bool
	State       OperationState
	Kind        ErrorKind
	Diagnostic  string
	Duration    time.Duration
}

// Manager drives the credential lifecycle: validate the candidate
// locally, resolve the identifier to exactly one entry, then mutate.
// Validation runs before any directory traffic, so a locally rejected
// candidate produces zero network calls.
type Manager struct {
	resolver *Resolver
	mutator  *Mutator
	policy   PasswordPolicy
	log      ldapc.Logger
}

// NewManager wires a Manager over an LDAP client.
func NewManager(client ldapc.Client, baseDN string, policy PasswordPolicy, log ldapc.Logger) *Manager {
	if log == nil {
		log = ldapc.NopLogger{}
	}
	return &Manager{
		resolver: NewResolver(client, baseDN, log),
		mutator:  NewMutator(client, log),
		policy:   policy,
		log:      log,
	}
}

// Resolver exposes the manager's entry resolver for callers that only
// need lookups.
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// ChangePassword runs the full lifecycle for one uid/candidate pair
// and always returns a result, with the error (if any) alongside it.
func (m *Manager) ChangePassword(ctx context.Context, uid, candidate string) (*OperationResult, error) {
	start := time.Now()
	result := &OperationResult{
		OperationID: uuid.NewString(),
		State:       StateIdle,
	}
	fields := map[string]any{
		"operation_id": result.OperationID,
		"uid":          uid,
	}
	m.log.Info("Password change started", fields)

	result.State = StateValidating
	if err := m.policy.Validate(candidate, uid); err != nil {
		return m.fail(result, start, fields, err)
	}

	result.State = StateResolving
	entry, err := m.resolver.ResolveUID(ctx, uid)
	if err != nil {
		return m.fail(result, start, fields, err)
	}

	result.State = StateMutating
	if err := m.mutator.ChangePassword(ctx, entry, candidate); err != nil {
		return m.fail(result, start, fields, err)
	}

	result.State = StateSucceeded
	result.Success = true
	result.Duration = time.Since(start)
	fields["duration_ms"] = result.Duration.Milliseconds()
	m.log.Info("Password change succeeded", fields)
	return result, nil
}

func (m *Manager) fail(result *OperationResult, start time.Time, fields map[string]any, err error) (*OperationResult, error) {
	result.State = StateFailed
	result.Duration = time.Since(start)

	var opErr *OperationError
	if errors.As(err, &opErr) {
		result.Kind = opErr.Kind
		result.Diagnostic = opErr.Diagnostic
	} else {
		result.Kind = KindDirectory
	}

	fields["duration_ms"] = result.Duration.Milliseconds()
	fields["error_kind"] = string(result.Kind)
	fields["error"] = err.Error()
	m.log.Error("Password change failed", fields)
	return result, err
}
