package embed

import "github.com/cgrep/cgrep/internal/errs"

var errNoVector = errs.Wrap(errs.ErrProvider, "embed", errNoVectorCause)

var errNoVectorCause = errString("no embedding returned")

type errString string

func (e errString) Error() string { return string(e) }
