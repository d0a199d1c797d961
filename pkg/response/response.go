package response

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/render"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST     ErrCode = "REQUEST_FAILED"
	BAD_REQUEST        ErrCode = "FAILED_TO_DECODE"
	NOT_FOUND          ErrCode = "NOT_FOUND"
	INVALID_ARGUMENT   ErrCode = "INVALID_ARGUMENT"
	ILLEGAL_TRANSITION ErrCode = "ILLEGAL_TRANSITION"
	LOCKED             ErrCode = "LOCKED"
	CONFLICT           ErrCode = "CONFLICT"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrLocked            = errors.New("resource is locked")
	ErrConflict          = errors.New("conflict")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}

// Status maps a service error onto the HTTP status and error code handlers reply with.
func Status(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, NOT_FOUND
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, INVALID_ARGUMENT
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, BAD_REQUEST
	case errors.Is(err, ErrIllegalTransition):
		return http.StatusConflict, ILLEGAL_TRANSITION
	case errors.Is(err, ErrLocked):
		return http.StatusLocked, LOCKED
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CONFLICT
	default:
		return http.StatusInternalServerError, FAILED_REQUEST
	}
}

var opPrefix = regexp.MustCompile(`^(?:[a-z]+(?:\.[A-Za-z]+)+: )+`)

// Render writes the error reply for err. Client errors carry the error text
// without its op prefixes, server errors only carry msg.
func Render(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, code := Status(err)
	if status < http.StatusInternalServerError {
		msg = opPrefix.ReplaceAllString(err.Error(), "")
	}

	w.WriteHeader(status)
	render.JSON(w, r, Error(string(code), msg))
}
