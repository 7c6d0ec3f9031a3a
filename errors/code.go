package errors

import (
	"fmt"
	"net/http"
)

const (
	// SuccessCode is returned for a nil error.
	SuccessCode = 0

	// All unclassified errors that do not provide a code are clubbed
	// under an internal error code and a generic message instead of
	// detailed error string.
	internalCode uint32 = 1
	internalLog         = "internal error"
)

type coder interface {
	Code() uint32
}

// Code returns the registered code of the root cause of given error. Any
// error that was not created using one of the registered errors is
// categorized as internal error with code 1. A group of errors returns the
// code of the first error, consistent with the fail fast approach.
func Code(err error) uint32 {
	if isNilErr(err) {
		return SuccessCode
	}

	for {
		if c, ok := err.(coder); ok {
			return c.Code()
		}
		if u, ok := err.(unpacker); ok {
			if errs := u.Unpack(); len(errs) > 0 {
				return Code(errs[0])
			}
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return internalCode
		}
	}
}

// Info returns the code and the message that can be exposed to a client.
// When not running in a debug mode all messages of errors that do not
// provide code information are replaced with generic "internal error".
func Info(err error, debug bool) (uint32, string) {
	if isNilErr(err) {
		return SuccessCode, ""
	}
	code := Code(err)
	if debug {
		return code, fmt.Sprintf("%+v", err)
	}
	if code == internalCode || code == ErrPanic.code {
		return internalCode, internalLog
	}
	return code, err.Error()
}

// HTTPStatus returns the HTTP response status that best represents given
// error.
func HTTPStatus(err error) int {
	switch {
	case isNilErr(err):
		return http.StatusOK
	case ErrUnauthorized.Is(err):
		return http.StatusUnauthorized
	case ErrNotFound.Is(err):
		return http.StatusNotFound
	case ErrTooEarly.Is(err):
		return http.StatusTooManyRequests
	case ErrNothingToDo.Is(err), ErrState.Is(err), ErrDuplicate.Is(err):
		return http.StatusConflict
	case ErrRemote.Is(err):
		return http.StatusBadGateway
	case ErrMsg.Is(err), ErrInput.Is(err), ErrAmount.Is(err),
		ErrSchedule.Is(err), ErrEmpty.Is(err), ErrOverflow.Is(err),
		ErrType.Is(err), ErrModel.Is(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
