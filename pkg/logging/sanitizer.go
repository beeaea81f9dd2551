package logging

import (
	"regexp"
)

const (
	// MaxErrorLogLength is the maximum length of an error message kept in run history
	MaxErrorLogLength = 1024
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match AWS access key ids (long-term AKIA and temporary ASIA)
	accessKeyIDPattern = regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)

	// Pattern to match secret keys and session tokens written as key=value or key: value
	awsSecretPattern = regexp.MustCompile(`(?i)(aws_secret_access_key|aws_session_token|secret_access_key|session_token)(\s*[=:]\s*)[^\s,;&"]+`)

	// Pattern to match presigned URL credentials
	presignedPattern = regexp.MustCompile(`(?i)(X-Amz-Signature|X-Amz-Security-Token|X-Amz-Credential)=[^&\s"]+`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain credentials.
// AWS SDK errors can echo request parameters, so everything logged or
// persisted from a remote call goes through here.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText applies every redaction pattern to free text.
func SanitizeText(s string) string {
	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = awsSecretPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = presignedPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = accessKeyIDPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
