package avframesplit

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	ErrorKindUndefined = ErrorKind(iota)
	ErrorKindNotFound
	ErrorKindValidation
	ErrorKindDecode
	ErrorKindIO
	ErrorKindUnexpected
)

// String returns the category prefix used in user-facing messages.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindUndefined:
		return "<undefined>"
	case ErrorKindNotFound:
		return "File Error"
	case ErrorKindValidation:
		return "Value Error"
	case ErrorKindDecode:
		return "Decode Error"
	case ErrorKindIO:
		return "I/O Error"
	case ErrorKindUnexpected:
		return "Unexpected Error"
	default:
		return fmt.Sprintf("<unknown_error_kind_%d>", int(k))
	}
}

func (k ErrorKind) ExitCode() int {
	switch k {
	case ErrorKindUndefined:
		return 0
	case ErrorKindNotFound:
		return 2
	case ErrorKindValidation:
		return 3
	case ErrorKindDecode:
		return 4
	case ErrorKindIO:
		return 5
	default:
		return 1
	}
}

// KindOf classifies err. A nil error is ErrorKindUndefined; an error not
// produced by this package is ErrorKindUnexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindUndefined
	}
	var kinder interface{ Kind() ErrorKind }
	if errors.As(err, &kinder) {
		return kinder.Kind()
	}
	return ErrorKindUnexpected
}

type ErrNotFound struct {
	Path string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("the video file '%s' does not exist", e.Path)
}

func (ErrNotFound) Kind() ErrorKind { return ErrorKindNotFound }

type ErrValidation struct {
	Reason string
}

func (e ErrValidation) Error() string {
	return e.Reason
}

func (ErrValidation) Kind() ErrorKind { return ErrorKindValidation }

type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("unable to decode the video: %v", e.Err)
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

func (ErrDecode) Kind() ErrorKind { return ErrorKindDecode }

// ErrIO is a filesystem failure on Path. Err is expected to name the path
// already (as *os.PathError does), so Path is not repeated in the message.
type ErrIO struct {
	Path string
	Err  error
}

func (e ErrIO) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("I/O failure on '%s'", e.Path)
	}
	return e.Err.Error()
}

func (e ErrIO) Unwrap() error {
	return e.Err
}

func (ErrIO) Kind() ErrorKind { return ErrorKindIO }

type ErrUnexpected struct {
	Err error
}

func (e ErrUnexpected) Error() string {
	return fmt.Sprintf("an unexpected error occurred: %v", e.Err)
}

func (e ErrUnexpected) Unwrap() error {
	return e.Err
}

func (ErrUnexpected) Kind() ErrorKind { return ErrorKindUnexpected }
