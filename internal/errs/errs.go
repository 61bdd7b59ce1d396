// Package errs defines the engine's error taxonomy: a small set of sentinel
// kinds that every package wraps its errors against with fmt.Errorf("%w").
// Callers use errors.Is/errors.As against the sentinels rather than string
// matching, using typed, wrapped errors.
package errs

import "errors"

// Kind sentinels. Every returned error from a public function in this
// module should be wrappable to exactly one of these via errors.Is.
var (
	// ErrIO covers filesystem and OS-level failures: unreadable files,
	// permission errors, missing directories.
	ErrIO = errors.New("io error")

	// ErrParse covers AST/grammar parse failures in the Symbol Extractor.
	ErrParse = errors.New("parse error")

	// ErrSerialization covers JSON/TOML (de)serialization failures.
	ErrSerialization = errors.New("serialization error")

	// ErrProvider covers Embedding Provider failures: subprocess spawn,
	// malformed EP protocol responses, dimension mismatches.
	ErrProvider = errors.New("embedding provider error")

	// ErrSchema covers persisted-store schema mismatches (BM25 index,
	// embedding store) that require a rebuild.
	ErrSchema = errors.New("schema error")

	// ErrQuery covers malformed or unsupported query input: empty query
	// strings, invalid structural-query identifiers, bad cache keys.
	ErrQuery = errors.New("query error")
)

// Wrap annotates err with msg and associates it with kind so that
// errors.Is(result, kind) succeeds.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: kind, msg: msg, err: err}
}

type wrapped struct {
	kind error
	msg  string
	err  error
}

func (w *wrapped) Error() string {
	if w.msg == "" {
		return w.kind.Error() + ": " + w.err.Error()
	}
	return w.msg + ": " + w.err.Error()
}

func (w *wrapped) Unwrap() []error { return []error{w.kind, w.err} }

// Is reports whether err (or any error it wraps) matches kind.
func Is(err, kind error) bool { return errors.Is(err, kind) }
