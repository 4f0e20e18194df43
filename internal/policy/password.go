package policy

import "strings"

const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// ValidatePasswordStrength checks the candidate against every rule and
// returns the full list of violations.
func ValidatePasswordStrength(password string) []string {
	var violations []string

	if len(password) < 8 {
		violations = append(violations, "Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		violations = append(violations, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		violations = append(violations, "Password must contain at least one special character")
	}

	return violations
}
