package tbd

import (
	"errors"
	"fmt"

	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

var (
	// ErrStreamTruncated means a record runs past the end of the load-command stream.
	ErrStreamTruncated = errors.New("load command stream truncated")
	// ErrCommandTooSmall means a record is shorter than its command's fixed layout.
	ErrCommandTooSmall = errors.New("load command too small")
	// ErrFieldOutOfBounds means an offset or count inside a record points outside it.
	ErrFieldOutOfBounds = errors.New("field out of bounds")
	// ErrOverflow is returned when an offset or size computation wraps.
	ErrOverflow = overflow.ErrOverflow

	ErrConflictingPlatform       = errors.New("conflicting platform")
	ErrConflictingIdentification = errors.New("conflicting identification")
	ErrStrictViolation           = errors.New("strict mode violation")

	// ErrNotMachO is returned by ParseSlice for anything that is not a thin Mach-O image.
	ErrNotMachO = errors.New("not a thin mach-o file")
	// ErrDuplicateArch is returned when two slices share an architecture.
	ErrDuplicateArch = errors.New("duplicate architecture")
	// ErrTooManyArchs is returned once an Info holds MaxArchs architectures.
	ErrTooManyArchs = errors.New("too many architectures")
	// ErrNoIdentification is returned in strict mode for a dylib without LC_ID_DYLIB.
	ErrNoIdentification = errors.New("dylib has no identification")
)

// DecodeError describes a load command that could not be decoded.
type DecodeError struct {
	Cmd    types.LoadCmd
	Offset uint32 // of the record within the load-command stream
	Field  string
	Val    any
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Cmd, e.Err)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s", e.Field)
		if e.Val != nil {
			msg += fmt.Sprintf(" '%v'", e.Val)
		}
		msg += ")"
	}
	msg += fmt.Sprintf(" in record at byte %#x", e.Offset)
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorCategory groups failures by what went wrong.
type ErrorCategory uint8

const (
	CategoryNone ErrorCategory = iota
	// CategoryStructural failures come from the bytes of the record.
	CategoryStructural
	// CategoryArithmetic failures come from wrapped offset or size sums.
	CategoryArithmetic
	// CategorySemantic failures come from well-formed records that contradict
	// earlier ones or break strict mode.
	CategorySemantic
	CategoryOther
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryStructural:
		return "structural"
	case CategoryArithmetic:
		return "arithmetic"
	case CategorySemantic:
		return "semantic"
	}
	return "other"
}

// Category classifies err.
func Category(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrOverflow):
		return CategoryArithmetic
	case errors.Is(err, ErrStreamTruncated),
		errors.Is(err, ErrCommandTooSmall),
		errors.Is(err, ErrFieldOutOfBounds),
		errors.Is(err, overflow.ErrOutOfBounds):
		return CategoryStructural
	case errors.Is(err, ErrConflictingPlatform),
		errors.Is(err, ErrConflictingIdentification),
		errors.Is(err, ErrStrictViolation):
		return CategorySemantic
	}
	return CategoryOther
}
