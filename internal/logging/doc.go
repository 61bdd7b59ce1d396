// Package logging provides opt-in, file-based structured logging with
// rotation for cgrep. When CGREP_LOG is set (§6 Environment), comprehensive
// JSON logs are written to ~/.cgrep/logs/cgrep.log for debugging.
//
// By default (CGREP_LOG unset), logging is minimal and goes to stderr only.
package logging
