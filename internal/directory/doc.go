// Package directory implements the credential lifecycle for student
// accounts: resolving identifiers to entries, validating password
// candidates against local policy, rewriting credential attributes,
// and registering new accounts.
//
// The package never sends a password candidate over the wire before
// it passes local policy, and never places plaintext passwords in
// errors or log fields. Stored forms are {SSHA} for userPassword and
// the NT hash for sambaNTPassword.
package directory
