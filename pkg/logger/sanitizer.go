package logger

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s&]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+[^\s&]+`)
	apiKeyPattern   = regexp.MustCompile(`(?i)(api[_-]?key|apikey)[\s:=]+[^\s&]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|private[_-]?key)[\s:=]+[^\s&]+`)
)

const redactedPlaceholder = "[REDACTED]"

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"token", "jwt", "bearer",
	"api_key", "apikey", "api-key",
	"secret", "private_key", "private-key",
	"password_hash", "passwordhash",
	"x-amz-signature", "x-amz-credential", "x-amz-security-token",
}

func SanitizeLogMessage(message string) string {
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = apiKeyPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	return message
}

func SanitizeMap(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitiveKey(k) {
			sanitized[k] = redactedPlaceholder
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}

// SanitizeURI redacts sensitive query parameters such as invite tokens
// or presigned signatures before a request URI is logged.
func SanitizeURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return SanitizeLogMessage(uri)
	}
	if u.RawQuery == "" {
		return uri
	}

	q := u.Query()
	changed := false
	for k := range q {
		if isSensitiveKey(k) {
			q.Set(k, redactedPlaceholder)
			changed = true
		}
	}
	if !changed {
		return uri
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitiveKey) {
			return true
		}
	}
	return false
}
