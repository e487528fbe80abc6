package ldap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// MaxConnectionPoolLimit is the maximum allowed sessions in a pool.
// The directory session is serial per connection, so each concurrent
// credential operation needs its own; a hard ceiling keeps a
// misconfigured caller from exhausting the server's connection table.
const MaxConnectionPoolLimit = 100

// How long a bind is trusted before the session is re-authenticated.
const maxAuthAge = 5 * time.Minute

// connectionPool implements ConnectionPool.
type connectionPool struct {
	config      *ConnectionConfig
	log         Logger
	servers     []*ServerInfo
	connections chan *PooledConnection
	mu          sync.RWMutex
	closed      bool

	// Statistics
	activeConns  int64
	totalCreated int64
	totalErrors  int64
	startTime    time.Time
}

// NewConnectionPool creates a new connection pool for the configured
// endpoints. No connection is dialed until the first Get.
func NewConnectionPool(config *ConnectionConfig, log Logger) (ConnectionPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = NopLogger{}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if len(config.URLs) == 0 {
		return nil, errors.New("at least one LDAP URL must be specified")
	}

	var servers []*ServerInfo
	for _, url := range config.URLs {
		server, err := ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid LDAP URL %s: %w", url, err)
		}
		servers = append(servers, server)
	}

	log.Debug("Connection pool created", map[string]any{
		"server_count": len(servers),
		"max_sessions": config.MaxConnections,
		"auth_method":  config.GetAuthMethod().String(),
	})

	return &connectionPool{
		config:      config,
		log:         log,
		servers:     servers,
		connections: make(chan *PooledConnection, config.MaxConnections),
		startTime:   time.Now(),
	}, nil
}

// Get checks a session out of the pool, creating and binding a new one
// when none is available or the cached one is no longer trusted.
func (p *connectionPool) Get(ctx context.Context) (*PooledConnection, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, errors.New("connection pool is closed")
	}
	p.mu.RUnlock()

	select {
	case conn := <-p.connections:
		if p.isConnectionHealthy(conn) {
			if p.needsReAuthentication(conn) {
				if err := p.authenticateConnection(conn); err != nil {
					p.closeConnection(conn)
					break
				}
			}
			conn.lastUsed = time.Now()
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		}
		p.closeConnection(conn)
	default:
		// No idle sessions; fall through and dial.
	}

	return p.createConnection(ctx)
}

// createConnection creates a new authenticated session, trying each
// configured server once. Retrying and backoff belong to the caller's
// operation retry; a second layer here would multiply the attempt
// budget. A rejected bind aborts immediately: retrying wrong
// credentials cannot succeed.
func (p *connectionPool) createConnection(ctx context.Context) (*PooledConnection, error) {
	var lastErr error

	for _, server := range p.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := p.createSingleConnection(server)
		if err != nil {
			lastErr = err
			atomic.AddInt64(&p.totalErrors, 1)
			var authErr *AuthenticationError
			if errors.As(err, &authErr) {
				return nil, err
			}
			p.log.Debug("Server unreachable", map[string]any{
				"server": server.Host,
				"error":  err.Error(),
			})
			continue
		}

		atomic.AddInt64(&p.totalCreated, 1)
		atomic.AddInt64(&p.activeConns, 1)
		return conn, nil
	}

	return nil, NewConnectionError("all servers failed", true, lastErr)
}

// createSingleConnection dials and binds a session to one server.
func (p *connectionPool) createSingleConnection(server *ServerInfo) (*PooledConnection, error) {
	url := ServerInfoToURL(server)

	tlsConfig := p.config.TLSConfig
	if tlsConfig != nil && !tlsConfig.InsecureSkipVerify {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.ServerName = server.Host
	}

	var conn *ldap.Conn
	var err error

	if server.UseTLS {
		conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(url)
		if err == nil && p.config.StartTLS {
			err = conn.StartTLS(tlsConfig)
		}
	}

	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("failed to connect to %s", url), true, err)
	}

	conn.SetTimeout(p.config.Timeout)

	pooledConn := &PooledConnection{
		conn:         conn,
		lastUsed:     time.Now(),
		healthy:      true,
		server:       server,
		returnToPool: p.returnConnection,
	}

	if p.config.HasAuthentication() {
		if err := p.authenticateConnection(pooledConn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return pooledConn, nil
}

// authenticateConnection binds a session using the configured method.
func (p *connectionPool) authenticateConnection(pooledConn *PooledConnection) error {
	if pooledConn == nil || pooledConn.conn == nil {
		return errors.New("connection is nil")
	}

	var err error
	switch p.config.GetAuthMethod() {
	case AuthMethodSimpleBind:
		if p.config.BindDN == "" {
			return errors.New("bind DN is required for simple bind authentication")
		}
		err = pooledConn.conn.Bind(p.config.BindDN, p.config.BindPassword)
	case AuthMethodKerberos:
		err = performKerberosAuth(pooledConn.conn, p.config, pooledConn.server)
	}

	if err != nil {
		pooledConn.authenticated = false
		pooledConn.authTime = time.Time{}
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) ||
			ldap.IsErrorWithCode(err, ldap.LDAPResultInappropriateAuthentication) {
			return NewAuthenticationError("bind rejected by server", err)
		}
		return NewConnectionError("bind failed", true, err)
	}

	pooledConn.authenticated = true
	pooledConn.authTime = time.Now()
	return nil
}

// needsReAuthentication determines if a cached session's bind is stale.
func (p *connectionPool) needsReAuthentication(conn *PooledConnection) bool {
	if conn == nil || !conn.authenticated {
		return true
	}
	return time.Since(conn.authTime) > maxAuthAge
}

// returnConnection returns a session to the pool. Broken or idle-expired
// sessions are closed instead, so the next Get produces a fresh bind.
func (p *connectionPool) returnConnection(conn *PooledConnection) {
	if conn == nil {
		return
	}

	atomic.AddInt64(&p.activeConns, -1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.closeConnection(conn)
		return
	}

	if p.isConnectionHealthy(conn) && time.Since(conn.lastUsed) < p.config.MaxIdleTime {
		select {
		case p.connections <- conn:
		default:
			// Pool is full.
			p.closeConnection(conn)
		}
	} else {
		p.closeConnection(conn)
	}
}

// isConnectionHealthy checks if a session is usable.
func (p *connectionPool) isConnectionHealthy(conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil || !conn.healthy {
		return false
	}

	if time.Since(conn.lastUsed) > p.config.MaxIdleTime {
		return false
	}

	if p.config.HasAuthentication() && !conn.authenticated {
		return false
	}

	return true
}

// closeConnection closes a pooled session.
func (p *connectionPool) closeConnection(conn *PooledConnection) {
	if conn != nil && conn.conn != nil {
		conn.conn.Close()
		conn.healthy = false
		conn.authenticated = false
		conn.authTime = time.Time{}
	}
}

// Close closes all sessions and shuts down the pool.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	close(p.connections)
	for conn := range p.connections {
		p.closeConnection(conn)
	}

	return nil
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Idle:    len(p.connections),
		Active:  atomic.LoadInt64(&p.activeConns),
		Created: atomic.LoadInt64(&p.totalCreated),
		Errors:  atomic.LoadInt64(&p.totalErrors),
		Uptime:  time.Since(p.startTime),
	}
}

// validateConfig validates the connection configuration.
func validateConfig(config *ConnectionConfig) error {
	if config.MaxConnections <= 0 {
		return errors.New("MaxConnections must be positive")
	}

	if config.MaxConnections > MaxConnectionPoolLimit {
		return fmt.Errorf("MaxConnections too high (max %d)", MaxConnectionPoolLimit)
	}

	if config.MaxIdleTime <= 0 {
		return errors.New("MaxIdleTime must be positive")
	}

	if config.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if config.MaxRetries < 0 {
		return errors.New("MaxRetries cannot be negative")
	}

	if config.BackoffFactor <= 1.0 {
		return errors.New("BackoffFactor must be greater than 1.0")
	}

	return nil
}
