package logging

import (
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"secret",
	"private_key",
	"privatekey",
	"nsec",
	"password",
	"token",
}

// Patterns for secrets that should be redacted.
var secretPatterns = []*regexp.Regexp{
	// bech32 secret keys and encrypted secret keys
	regexp.MustCompile(`\bnsec1[02-9ac-hj-np-z]{58}\b`),
	regexp.MustCompile(`\bncryptsec1[02-9ac-hj-np-z]{20,}\b`),

	// Hex keys labelled as secrets
	regexp.MustCompile(`(?i)(secret[_-]?key|private[_-]?key|nsec)["']?\s*[=:]\s*["']?[0-9a-f]{64}["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a settings map, recursing into
// nested maps.
func RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case IsSensitiveField(k):
			result[k] = RedactedValue
		default:
			switch typed := v.(type) {
			case map[string]any:
				result[k] = RedactMap(typed)
			case string:
				result[k] = Redact(typed)
			default:
				result[k] = v
			}
		}
	}
	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
