/*
Package ldap provides the directory access layer for alumnic.

The package owns the connection-oriented, stateful side of the
protocol so the domain layer never touches a raw connection:

  - ConnectionPool: authenticated sessions with scoped checkout. A
    session is checked out for one operation, released on every exit
    path via Close, and discarded (never reused) once MarkBroken has
    been called on it.
  - Client: search, add and modify with retry. Transient failures are
    retried with bounded exponential backoff, each attempt on a fresh
    session; rejected binds and validation failures surface
    immediately.
  - Error taxonomy: LDAPError classifies protocol result codes into
    categories (connection, authentication, not_found, validation, ...)
    and marks which are transient. ConnectionError and
    AuthenticationError cover failures below the protocol level.

Authentication is simple bind with the configured privileged DN by
default; a Kerberos realm in the configuration switches to GSSAPI.

Bind secrets and candidate passwords never appear in log fields or
error strings produced by this package.
*/
package ldap
