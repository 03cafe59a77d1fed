package app

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

var ErrUnitPanic = errors.New("unit panicked")

// recoverUnit turns a panic inside one fetch or clean into an error for that
// unit. It must be deferred directly.
func recoverUnit(l zerolog.Logger, unit string, errp *error) {
	if r := recover(); r != nil {
		l.Error().
			Str("unit", unit).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("unit aborted")
		*errp = fmt.Errorf("%s: %w: %v", unit, ErrUnitPanic, r)
	}
}
