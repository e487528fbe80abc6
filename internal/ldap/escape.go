package ldap

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeFilterValue escapes a value for inclusion in a search filter
// per RFC 4515. User identifiers always pass through this before being
// interpolated into a filter.
func EscapeFilterValue(value string) string {
	return ldap.EscapeFilter(value)
}

// EscapeDNValue escapes special characters in a DN attribute value
// according to RFC 4514: the characters , + " \ < > ; always, a
// leading #, leading and trailing spaces, and NUL bytes.
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 8)

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}
