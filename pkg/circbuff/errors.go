package circbuff

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCapacityExceeded = errors.New("buffer capacity exceeded")
	ErrUnderflow        = errors.New("buffer underflow")
)

// argError keeps the caller-visible message intact ("Illegal length: -1")
// while still matching ErrInvalidArgument.
type argError struct {
	what  string
	value int
}

func (e *argError) Error() string {
	return fmt.Sprintf("Illegal %s: %d", e.what, e.value)
}

func (e *argError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func illegalLength(n int) error {
	return errors.WithStack(&argError{what: "length", value: n})
}

func illegalOffset(n int) error {
	return errors.WithStack(&argError{what: "offset", value: n})
}

func illegalCapacity(n int) error {
	return errors.WithStack(&argError{what: "capacity", value: n})
}
