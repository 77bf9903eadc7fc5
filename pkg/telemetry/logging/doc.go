// Package logging builds the process-wide structured logger.
//
// Logs are slog-based, with level and format driven by configuration.
// Because almost every log line in this system is adjacent to clinical
// data, the logger can wrap its handler in a redaction layer that masks
// identifiers (medical record numbers, SSNs, phone numbers, email
// addresses) before they reach any sink. Redaction applies to attribute
// values and the message text, not to attribute keys.
package logging
