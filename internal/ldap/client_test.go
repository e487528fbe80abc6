package ldap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
)

func retryConfig(maxRetries int) *ConnectionConfig {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://localhost:9090"}
	cfg.MaxRetries = maxRetries
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestWithRetryTransientThenSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), retryConfig(3), NopLogger{}, func() error {
		attempts++
		if attempts <= 2 {
			return NewConnectionError("transient", true, nil)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry() unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), retryConfig(3), NopLogger{}, func() error {
		attempts++
		return NewConnectionError("still down", true, nil)
	})

	if err == nil {
		t.Fatal("withRetry() expected error after exhaustion")
	}
	// Initial attempt plus MaxRetries retries.
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error type = %T, want *ConnectionError", err)
	}
	if connErr.IsRetryable() {
		t.Error("exhaustion error should not itself be retryable")
	}
}

func TestWithRetryNonRetryableFailsFast(t *testing.T) {
	attempts := 0
	authErr := NewAuthenticationError("bind rejected", nil)

	err := withRetry(context.Background(), retryConfig(3), NopLogger{}, func() error {
		attempts++
		return authErr
	})

	if !errors.Is(err, authErr) {
		t.Fatalf("withRetry() = %v, want the bind rejection unchanged", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 for a rejected bind", attempts)
	}
}

func TestWithRetryZeroRetries(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), retryConfig(0), NopLogger{}, func() error {
		attempts++
		return NewConnectionError("down", true, nil)
	})

	if err == nil {
		t.Fatal("withRetry() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 with MaxRetries=0", attempts)
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	cfg := retryConfig(5)
	cfg.InitialBackoff = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := withRetry(ctx, cfg, NopLogger{}, func() error {
		attempts++
		return NewConnectionError("down", true, nil)
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("withRetry() = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 before cancellation", attempts)
	}
}

func TestBuildModifyRequestDeletesBeforeAdds(t *testing.T) {
	// A single-valued counter swap (delete observed value, add
	// successor) only succeeds if the server processes the delete
	// first.
	req := &ModifyRequest{
		DN: "sambaDomainName=DCC,dc=dcc,dc=ufrj,dc=br",
		DeleteAttributes: map[string][]string{
			"uidNumber":    {"5000"},
			"sambaNextRid": {"3000"},
		},
		AddAttributes: map[string][]string{
			"uidNumber":    {"5001"},
			"sambaNextRid": {"3001"},
		},
	}

	changes := buildModifyRequest(req).Changes
	if len(changes) != 4 {
		t.Fatalf("len(Changes) = %d, want 4", len(changes))
	}

	lastDelete := -1
	firstAdd := len(changes)
	for i, change := range changes {
		switch change.Operation {
		case ldap.DeleteAttribute:
			lastDelete = i
		case ldap.AddAttribute:
			if i < firstAdd {
				firstAdd = i
			}
		default:
			t.Fatalf("unexpected operation %d at index %d", change.Operation, i)
		}
	}

	if lastDelete > firstAdd {
		t.Errorf("delete at index %d after add at index %d; deletes must come first", lastDelete, firstAdd)
	}
}

func TestBuildModifyRequestReplaceOnly(t *testing.T) {
	req := &ModifyRequest{
		DN: "uid=joao,ou=alunos,ou=academicos,ou=usuarios,dc=dcc,dc=ufrj,dc=br",
		ReplaceAttributes: map[string][]string{
			"userPassword": {"{SSHA}x"},
		},
	}

	changes := buildModifyRequest(req).Changes
	if len(changes) != 1 {
		t.Fatalf("len(Changes) = %d, want 1", len(changes))
	}
	if changes[0].Operation != ldap.ReplaceAttribute {
		t.Errorf("Operation = %d, want replace", changes[0].Operation)
	}
	if changes[0].Modification.Type != "userPassword" {
		t.Errorf("attribute = %q, want userPassword", changes[0].Modification.Type)
	}
}

func TestNewClientValidation(t *testing.T) {
	cfg := DefaultConfig()
	// No URLs configured.
	if _, err := NewClient(cfg, NopLogger{}); err == nil {
		t.Error("NewClient() expected error without URLs")
	}

	cfg.URLs = []string{"ldap://localhost:9090"}
	client, err := NewClient(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
