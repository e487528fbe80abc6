package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for LDAP connections.
type ConnectionConfig struct {
	// Connection settings
	URLs    []string      // LDAP URLs, tried in order (ldap:// or ldaps://)
	BaseDN  string        // Base DN for searches
	Timeout time.Duration `default:"30s"` // Per-operation network timeout

	// Authentication settings. BindDN/BindPassword select simple bind;
	// a Kerberos realm selects GSSAPI instead.
	BindDN         string // Privileged identity DN for simple bind
	BindPassword   string // Secret for simple bind; never logged
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to keytab file
	KerberosCCache string // Path to credential cache
	KerberosConfig string // Path to krb5.conf
	KerberosSPN    string // Explicit service principal override

	// TLS settings
	TLSConfig *tls.Config // Custom TLS configuration
	StartTLS  bool        // Upgrade ldap:// connections via StartTLS

	// Pool settings
	MaxConnections int           `default:"10"` // Maximum pooled sessions
	MaxIdleTime    time.Duration `default:"5m"` // Idle lifetime before a session is dropped

	// Retry settings
	MaxRetries     int           `default:"3"`     // Retry attempts for transient failures
	InitialBackoff time.Duration `default:"500ms"` // First retry delay
	MaxBackoff     time.Duration `default:"30s"`   // Backoff ceiling
	BackoffFactor  float64       `default:"2.0"`   // Backoff multiplier
}

// DefaultConfig returns a configuration with library defaults applied.
func DefaultConfig() *ConnectionConfig {
	cfg := &ConnectionConfig{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	if err := defaults.Set(cfg); err != nil {
		panic(err) // only possible with a malformed struct tag
	}
	return cfg
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	return AuthMethodSimpleBind
}

// HasAuthentication reports whether bind credentials are configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasSimple := c.BindDN != "" && c.BindPassword != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.BindDN != "")
	return hasSimple || hasKerberos
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // DN/password simple bind
	AuthMethodKerberos                     // GSSAPI/Kerberos bind
)

// String returns string representation of the authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// PooledConnection represents an authenticated session checked out of
// the pool. Close returns it to the pool; MarkBroken ensures it is
// discarded instead of reused.
type PooledConnection struct {
	conn          *ldap.Conn
	lastUsed      time.Time
	healthy       bool
	authenticated bool
	authTime      time.Time
	server        *ServerInfo
	returnToPool  func(*PooledConnection)
}

// Close releases the connection back to its pool. Broken connections
// are closed rather than reused.
func (pc *PooledConnection) Close() {
	if pc.returnToPool != nil {
		pc.returnToPool(pc)
	}
}

// Conn exposes the underlying protocol connection.
func (pc *PooledConnection) Conn() *ldap.Conn {
	return pc.conn
}

// MarkBroken flags the session so the pool discards it on release.
// Call this after any I/O error observed mid-use.
func (pc *PooledConnection) MarkBroken() {
	pc.healthy = false
}

// IsHealthy reports whether the session is still usable.
func (pc *PooledConnection) IsHealthy() bool {
	return pc.healthy
}

// LastUsed returns the time of last checkout.
func (pc *PooledConnection) LastUsed() time.Time {
	return pc.lastUsed
}

// Server returns the server this session is bound to.
func (pc *PooledConnection) Server() *ServerInfo {
	return pc.server
}

// ServerInfo contains information about an LDAP server endpoint.
type ServerInfo struct {
	Host   string
	Port   int
	UseTLS bool
}

// ConnectionPool manages a pool of authenticated LDAP sessions.
type ConnectionPool interface {
	// Get checks out a session, creating and binding one if needed.
	Get(ctx context.Context) (*PooledConnection, error)

	// Close closes all sessions and shuts down the pool.
	Close() error

	// Stats returns pool statistics.
	Stats() PoolStats
}

// PoolStats provides statistics about the connection pool.
type PoolStats struct {
	Idle    int           // Sessions waiting in the pool
	Active  int64         // Sessions currently checked out
	Created int64         // Total sessions created
	Errors  int64         // Total session creation errors
	Uptime  time.Duration // Pool uptime
}

// Client provides the directory operations the credential lifecycle
// needs. Implementations must be safe for concurrent use.
type Client interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error

	// Basic operations
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Add(ctx context.Context, req *AddRequest) error
	Modify(ctx context.Context, req *ModifyRequest) error

	// Health and statistics
	Ping(ctx context.Context) error
	Stats() PoolStats
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
	TimeLimit  time.Duration
}

// SearchResult contains search results.
type SearchResult struct {
	Entries []*ldap.Entry
}

// AddRequest encapsulates LDAP add parameters.
type AddRequest struct {
	DN         string
	Attributes map[string][]string
}

// ModifyRequest encapsulates LDAP modify parameters. DeleteAttributes
// maps attribute names to the specific values to remove; an empty
// value slice removes the attribute entirely.
type ModifyRequest struct {
	DN                string
	AddAttributes     map[string][]string
	ReplaceAttributes map[string][]string
	DeleteAttributes  map[string][]string
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the scope name.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// RetryableError indicates an error that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ConnectionError represents transport-level failures. These are
// usually transient and eligible for retry.
type ConnectionError struct {
	message   string
	retryable bool
	cause     error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnectionError) IsRetryable() bool {
	return e.retryable
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}

// AuthenticationError represents a bind rejected by the server. It is
// never retryable: the credentials are wrong until an operator fixes
// them.
type AuthenticationError struct {
	message string
	cause   error
}

func (e *AuthenticationError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *AuthenticationError) IsRetryable() bool {
	return false
}

func (e *AuthenticationError) Unwrap() error {
	return e.cause
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{message: message, cause: cause}
}
