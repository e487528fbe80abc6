package ldap

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Default ports per scheme.
const (
	DefaultLDAPPort  = 389
	DefaultLDAPSPort = 636
)

// ParseURL parses an LDAP URL into ServerInfo. Only the ldap:// and
// ldaps:// schemes are accepted; the scheme decides transport security.
func ParseURL(url string) (*ServerInfo, error) {
	if url == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	var useTLS bool
	switch {
	case strings.HasPrefix(url, "ldaps://"):
		useTLS = true
		url = strings.TrimPrefix(url, "ldaps://")
	case strings.HasPrefix(url, "ldap://"):
		url = strings.TrimPrefix(url, "ldap://")
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	// Drop any path component; LDAP URLs used here carry only host:port.
	if i := strings.IndexByte(url, '/'); i >= 0 {
		url = url[:i]
	}

	port := DefaultLDAPPort
	if useTLS {
		port = DefaultLDAPSPort
	}

	// SplitHostPort handles bracketed IPv6 literals; when no port is
	// present it errors, and the whole string is the host.
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		host = strings.TrimSuffix(strings.TrimPrefix(url, "["), "]")
	} else {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", portStr)
		}
		port = p
	}

	server := &ServerInfo{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
	}

	return server, ValidateServerInfo(server)
}

// ValidateServerInfo validates server endpoint information.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return fmt.Errorf("server info cannot be nil")
	}

	if server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}

	return nil
}

// ServerInfoToURL converts ServerInfo back to an LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}

	return scheme + "://" + net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
}
