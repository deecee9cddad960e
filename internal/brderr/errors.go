package brderr

import (
	"errors"
	"fmt"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
)

type Kind string

const (
	SectionNotFound          Kind = "SectionNotFound"
	AmbiguousCommand         Kind = "AmbiguousCommand"
	GenerationEmptyResponse  Kind = "GenerationEmptyResponse"
	GenerationFailed         Kind = "GenerationFailed"
	MalformedGenerationJSON  Kind = "MalformedGenerationJSON"
	TitleMismatchAfterUpdate Kind = "TitleMismatchAfterUpdate"
	DocumentStructureMissing Kind = "DocumentStructureMissing"
	ReconstructionError      Kind = "ReconstructionError"
)

// Error is a classified failure. Msg is safe to show to the chat user.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
	coded error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	out := []error{e.coded}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

func New(kind Kind, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:  kind,
		Msg:   msg,
		coded: coded(kind, msg, nil),
	}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:  kind,
		Msg:   msg,
		cause: cause,
		coded: coded(kind, msg, cause),
	}
}

// KindOf returns the kind of the first classified error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func coded(kind Kind, msg string, cause error) error {
	switch kind {
	case GenerationEmptyResponse, GenerationFailed:
		return errbuilder.New().WithCode(errbuilder.CodeUnavailable).WithMsg(msg).WithCause(cause)
	case SectionNotFound, AmbiguousCommand, DocumentStructureMissing, TitleMismatchAfterUpdate:
		return errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg(msg).WithCause(cause)
	default:
		return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg).WithCause(cause)
	}
}
