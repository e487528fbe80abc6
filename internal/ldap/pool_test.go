package ldap

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxConnections != 10 {
		t.Errorf("MaxConnections = %d, want 10", cfg.MaxConnections)
	}
	if cfg.MaxIdleTime != 5*time.Minute {
		t.Errorf("MaxIdleTime = %v, want 5m", cfg.MaxIdleTime)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.BackoffFactor != 2.0 {
		t.Errorf("BackoffFactor = %v, want 2.0", cfg.BackoffFactor)
	}
	if cfg.TLSConfig == nil {
		t.Error("TLSConfig is nil")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *ConnectionConfig {
		cfg := DefaultConfig()
		cfg.URLs = []string{"ldap://localhost:9090"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ConnectionConfig)
		wantErr bool
	}{
		{
			name:   "valid default config",
			mutate: func(*ConnectionConfig) {},
		},
		{
			name:    "zero max connections",
			mutate:  func(c *ConnectionConfig) { c.MaxConnections = 0 },
			wantErr: true,
		},
		{
			name:    "max connections above limit",
			mutate:  func(c *ConnectionConfig) { c.MaxConnections = MaxConnectionPoolLimit + 1 },
			wantErr: true,
		},
		{
			name:    "zero idle time",
			mutate:  func(c *ConnectionConfig) { c.MaxIdleTime = 0 },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *ConnectionConfig) { c.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative max retries",
			mutate:  func(c *ConnectionConfig) { c.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "backoff factor of one",
			mutate:  func(c *ConnectionConfig) { c.BackoffFactor = 1.0 },
			wantErr: true,
		},
		{
			name:   "zero retries is allowed",
			mutate: func(c *ConnectionConfig) { c.MaxRetries = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr && err == nil {
				t.Error("validateConfig() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateConfig() unexpected error: %v", err)
			}
		})
	}
}

func TestNewConnectionPool(t *testing.T) {
	tests := []struct {
		name    string
		config  *ConnectionConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: func() *ConnectionConfig {
				cfg := DefaultConfig()
				cfg.URLs = []string{"ldap://localhost:9090"}
				return cfg
			}(),
		},
		{
			name: "no URLs",
			config: func() *ConnectionConfig {
				return DefaultConfig()
			}(),
			wantErr: true,
		},
		{
			name: "bad URL scheme",
			config: func() *ConnectionConfig {
				cfg := DefaultConfig()
				cfg.URLs = []string{"http://localhost:8080"}
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid pool settings",
			config: func() *ConnectionConfig {
				cfg := DefaultConfig()
				cfg.URLs = []string{"ldap://localhost:9090"}
				cfg.MaxConnections = -1
				return cfg
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewConnectionPool(tt.config, NopLogger{})

			if tt.wantErr {
				if err == nil {
					t.Error("NewConnectionPool() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConnectionPool() unexpected error: %v", err)
			}
			pool.Close()
		})
	}
}

func TestPoolClosedGet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://localhost:9090"}

	pool, err := NewConnectionPool(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewConnectionPool() error: %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Closing twice must not error.
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	if _, err := pool.Get(context.Background()); err == nil {
		t.Error("Get() on closed pool expected error but got none")
	}
}

func TestPoolStats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://localhost:9090"}

	pool, err := NewConnectionPool(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewConnectionPool() error: %v", err)
	}
	defer pool.Close()

	stats := pool.Stats()
	if stats.Idle != 0 || stats.Active != 0 || stats.Created != 0 {
		t.Errorf("fresh pool stats = %+v, want all zero counters", stats)
	}
	if stats.Uptime < 0 {
		t.Errorf("Uptime = %v, want non-negative", stats.Uptime)
	}
}

func TestPooledConnectionHealth(t *testing.T) {
	conn := &PooledConnection{healthy: true, lastUsed: time.Now()}

	if !conn.IsHealthy() {
		t.Error("IsHealthy() = false for fresh connection")
	}

	conn.MarkBroken()
	if conn.IsHealthy() {
		t.Error("IsHealthy() = true after MarkBroken()")
	}
}

func TestBrokenConnectionNotReturned(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://localhost:9090"}

	p, err := NewConnectionPool(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewConnectionPool() error: %v", err)
	}
	defer p.Close()
	pool := p.(*connectionPool)

	conn := &PooledConnection{
		healthy:      true,
		lastUsed:     time.Now(),
		returnToPool: pool.returnConnection,
	}

	conn.MarkBroken()
	conn.Close()

	if got := len(pool.connections); got != 0 {
		t.Errorf("pool holds %d sessions after releasing a broken one, want 0", got)
	}
}

func TestIdleExpiredConnectionNotReturned(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://localhost:9090"}
	cfg.MaxIdleTime = time.Millisecond

	p, err := NewConnectionPool(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewConnectionPool() error: %v", err)
	}
	defer p.Close()
	pool := p.(*connectionPool)

	conn := &PooledConnection{
		healthy:      true,
		lastUsed:     time.Now().Add(-time.Second),
		returnToPool: pool.returnConnection,
	}
	conn.Close()

	if got := len(pool.connections); got != 0 {
		t.Errorf("pool holds %d sessions after releasing an expired one, want 0", got)
	}
}

func TestGetDialsEachServerOnce(t *testing.T) {
	// Retrying failed dials belongs to the operation retry layer; a
	// single Get must try each server exactly once regardless of
	// MaxRetries.
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://127.0.0.1:1"}
	cfg.MaxRetries = 3

	pool, err := NewConnectionPool(cfg, NopLogger{})
	if err != nil {
		t.Fatalf("NewConnectionPool() error: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Get(context.Background()); err == nil {
		t.Fatal("Get() against a closed port expected error but got none")
	}

	stats := pool.Stats()
	if stats.Errors != 1 {
		t.Errorf("Stats().Errors = %d, want 1 dial attempt", stats.Errors)
	}
	if stats.Created != 0 {
		t.Errorf("Stats().Created = %d, want 0", stats.Created)
	}
}

func TestConnectionErrorRetryable(t *testing.T) {
	transient := NewConnectionError("network unreachable", true, nil)
	if !transient.IsRetryable() {
		t.Error("transient connection error should be retryable")
	}

	permanent := NewConnectionError("exhausted", false, nil)
	if permanent.IsRetryable() {
		t.Error("permanent connection error should not be retryable")
	}
}

func TestAuthenticationErrorNeverRetryable(t *testing.T) {
	err := NewAuthenticationError("bind rejected", nil)
	if err.IsRetryable() {
		t.Error("authentication errors must never be retryable")
	}
}
