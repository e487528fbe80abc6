package directory

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// Registration inputs arrive from people typing into forms. These
// helpers normalize each field to the single representation the
// directory stores, returning ok=false when the input cannot be read
// as a valid value at all.

var (
	dreRe   = regexp.MustCompile(`^\s*(\d{9})\s*$`)
	phoneRe = regexp.MustCompile(`^\s*\+?[\d\s().-]+\s*$`)
)

// ProcessDRE validates a student registry number: exactly nine
// digits, surrounding whitespace tolerated.
func ProcessDRE(dre string) (string, bool) {
	m := dreRe.FindStringSubmatch(dre)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ProcessName validates a personal name and normalizes its casing:
// each word capitalized except the connective particles, which stay
// lowercase. The folding rules are the same ones ParseName applies.
func ProcessName(name string) (string, bool) {
	if _, err := ParseName(name); err != nil {
		return "", false
	}

	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		switch w {
		case "de", "do", "da", "dos", "das":
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " "), true
}

// ProcessEmail validates an external email address and lowercases its
// domain. The local part keeps its case.
func ProcessEmail(email string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", false
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at < 0 {
		return "", false
	}
	local, domain := addr.Address[:at], addr.Address[at+1:]
	return local + "@" + strings.ToLower(domain), true
}

// ProcessPhone validates a phone number and strips it down to digits,
// keeping a leading plus. Accepts between 8 and 13 digits.
func ProcessPhone(phone string) (string, bool) {
	if !phoneRe.MatchString(phone) {
		return "", false
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && b.Len() == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.Len()
	if strings.HasPrefix(b.String(), "+") {
		digits--
	}
	if digits < 8 || digits > 13 {
		return "", false
	}
	return b.String(), true
}

// RegistrationPasswordPolicy is the stricter rule set applied when an
// account is first created: the self-service change flow keeps the
// legacy limits, but new accounts start with stronger passwords.
func RegistrationPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		MaxLength:    25,
		RequireLower: true,
		RequireUpper: true,
		RequireDigit: true,
	}
}
