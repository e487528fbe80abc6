package directory

import (
	"fmt"
	"unicode"

	"github.com/creasty/defaults"
)

// PasswordPolicy is the process-wide rule set a candidate password
// must satisfy before it is sent anywhere. Read-only after
// initialization. The length bounds are deliberately configuration,
// not constants: deployments disagree on the acceptable range and the
// documented bounds may still change.
type PasswordPolicy struct {
	MinLength int `default:"6" mapstructure:"min_length"`
	MaxLength int `default:"12" mapstructure:"max_length"`

	RequireLower bool `mapstructure:"require_lower"`
	RequireUpper bool `mapstructure:"require_upper"`
	RequireDigit bool `mapstructure:"require_digit"`

	// AllowUIDAsPassword disables the default rejection of candidates
	// equal to the account's own identifier.
	AllowUIDAsPassword bool `mapstructure:"allow_uid_as_password"`
}

// DefaultPasswordPolicy returns the policy with library defaults
// applied.
func DefaultPasswordPolicy() PasswordPolicy {
	var p PasswordPolicy
	if err := defaults.Set(&p); err != nil {
		panic(err) // only possible with a malformed struct tag
	}
	return p
}

// Validate checks a candidate password against the policy. Checks run
// in a fixed order and the first violation is reported, so assertions
// on the failure reason are deterministic. Validation is all-or-
// nothing: a failing candidate must never reach the directory.
func (p PasswordPolicy) Validate(candidate, uid string) error {
	n := len([]rune(candidate))

	if n < p.MinLength {
		return newOpError(KindPolicyClient,
			fmt.Sprintf("password too short: minimum is %d characters", p.MinLength), nil)
	}

	if p.MaxLength > 0 && n > p.MaxLength {
		return newOpError(KindPolicyClient,
			fmt.Sprintf("password too long: maximum is %d characters", p.MaxLength), nil)
	}

	if p.RequireLower && !containsClass(candidate, unicode.IsLower) {
		return newOpError(KindPolicyClient, "password needs at least one lowercase letter", nil)
	}

	if p.RequireUpper && !containsClass(candidate, unicode.IsUpper) {
		return newOpError(KindPolicyClient, "password needs at least one uppercase letter", nil)
	}

	if p.RequireDigit && !containsClass(candidate, unicode.IsDigit) {
		return newOpError(KindPolicyClient, "password needs at least one digit", nil)
	}

	if !p.AllowUIDAsPassword && uid != "" && candidate == uid {
		return newOpError(KindPolicyClient, "password must not equal the account name", nil)
	}

	return nil
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}
