package ldap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// client implements the Client interface on top of a connection pool.
type client struct {
	pool   ConnectionPool
	config *ConnectionConfig
	log    Logger
}

// NewClient creates a new LDAP client with connection pooling.
func NewClient(config *ConnectionConfig, log Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = NopLogger{}
	}

	pool, err := NewConnectionPool(config, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &client{
		pool:   pool,
		config: config,
		log:    log,
	}, nil
}

// Connect verifies that a session can be acquired and bound.
func (c *client) Connect(ctx context.Context) error {
	return LogOperation(c.log, "connection_test", nil, func() error {
		conn, err := c.pool.Get(ctx)
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		defer conn.Close()

		return c.ping(conn)
	})
}

// Close closes the client and all its sessions.
func (c *client) Close() error {
	return c.pool.Close()
}

// Search performs an LDAP search. Transient failures are retried on a
// fresh session; the session used is released on every path.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}

	fields := map[string]any{
		"base_dn": req.BaseDN,
		"scope":   req.Scope.String(),
		"filter":  req.Filter,
	}

	var result *ldap.SearchResult
	err := LogOperation(c.log, "search", fields, func() error {
		return withRetry(ctx, c.config, c.log, func() error {
			conn, err := c.pool.Get(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			ldapReq := ldap.NewSearchRequest(
				req.BaseDN,
				int(req.Scope),
				ldap.NeverDerefAliases,
				req.SizeLimit,
				int(req.TimeLimit.Seconds()),
				false,
				req.Filter,
				req.Attributes,
				nil,
			)

			result, err = conn.Conn().Search(ldapReq)
			if err != nil {
				if IsRetryableError(err) {
					conn.MarkBroken()
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, WrapError("search", err)
	}

	return &SearchResult{Entries: result.Entries}, nil
}

// Add creates a new LDAP entry.
func (c *client) Add(ctx context.Context, req *AddRequest) error {
	if req == nil {
		return errors.New("add request cannot be nil")
	}

	fields := map[string]any{"dn": req.DN}

	err := LogOperation(c.log, "add", fields, func() error {
		return withRetry(ctx, c.config, c.log, func() error {
			conn, err := c.pool.Get(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			ldapReq := ldap.NewAddRequest(req.DN, nil)
			for attr, values := range req.Attributes {
				ldapReq.Attribute(attr, values)
			}

			if err := conn.Conn().Add(ldapReq); err != nil {
				if IsRetryableError(err) {
					conn.MarkBroken()
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return WrapError("add", err)
	}
	return nil
}

// Modify modifies an existing LDAP entry.
func (c *client) Modify(ctx context.Context, req *ModifyRequest) error {
	if req == nil {
		return errors.New("modify request cannot be nil")
	}
	if req.DN == "" {
		return errors.New("DN cannot be empty")
	}

	fields := map[string]any{"dn": req.DN}

	err := LogOperation(c.log, "modify", fields, func() error {
		return withRetry(ctx, c.config, c.log, func() error {
			conn, err := c.pool.Get(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Conn().Modify(buildModifyRequest(req)); err != nil {
				if IsRetryableError(err) {
					conn.MarkBroken()
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return WrapError("modify", err)
	}
	return nil
}

// buildModifyRequest translates a ModifyRequest into the wire form.
// Servers apply modify changes in sequence, so deletes must precede
// adds: swapping a single-valued attribute (delete old value, add new
// value) is rejected mid-request if the add arrives while the old
// value still occupies the attribute.
func buildModifyRequest(req *ModifyRequest) *ldap.ModifyRequest {
	ldapReq := ldap.NewModifyRequest(req.DN, nil)
	for attr, values := range req.DeleteAttributes {
		ldapReq.Delete(attr, values)
	}
	for attr, values := range req.AddAttributes {
		ldapReq.Add(attr, values)
	}
	for attr, values := range req.ReplaceAttributes {
		ldapReq.Replace(attr, values)
	}
	return ldapReq
}

// Ping tests connectivity to the directory.
func (c *client) Ping(ctx context.Context) error {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return c.ping(conn)
}

// ping performs a root DSE read on an already checked-out session.
func (c *client) ping(conn *PooledConnection) error {
	searchReq := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 5, false,
		"(objectClass=*)",
		[]string{"namingContexts"},
		nil,
	)

	if _, err := conn.Conn().Search(searchReq); err != nil {
		conn.MarkBroken()
		return err
	}
	return nil
}

// Stats returns pool statistics.
func (c *client) Stats() PoolStats {
	return c.pool.Stats()
}

// withRetry executes op with bounded exponential backoff. Only
// transient failures are retried; deterministic outcomes (rejected
// binds, validation failures, missing entries) surface immediately.
// Each attempt acquires its own session inside op, so a retry never
// reuses a session already known to be broken.
func withRetry(ctx context.Context, config *ConnectionConfig, log Logger, op func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("Retrying operation", map[string]any{
				"attempt":    attempt,
				"max_retry":  config.MaxRetries,
				"backoff_ms": backoff.Milliseconds(),
				"last_error": lastErr.Error(),
			})
		}

		err := op()
		if err == nil {
			if attempt > 0 {
				log.Info("Operation succeeded after retries", map[string]any{
					"total_attempts": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			log.Warn("Operation cancelled during retry", map[string]any{
				"context_error": ctx.Err().Error(),
				"attempt":       attempt + 1,
			})
			return ctx.Err()
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*config.BackoffFactor), config.MaxBackoff)
		}
	}

	log.Error("Operation failed after all retries exhausted", map[string]any{
		"total_attempts": config.MaxRetries + 1,
		"final_error":    lastErr.Error(),
	})

	return NewConnectionError("operation failed after retries", false, lastErr)
}
