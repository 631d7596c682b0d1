package piisweep

import (
	"encoding/json"
	"fmt"
)

// UnknownErrorCode is used when a failed response carries no error code.
const UnknownErrorCode = "UNKNOWN_ERROR"

// Error is returned when the service answers with a non-2xx status.
// Transport failures and undecodable success bodies are reported as plain
// wrapped errors instead.
type Error struct {
	Code    string // machine-readable, e.g. "INVALID_KEY"
	Message string
	Status  int // HTTP status of the response
}

func (e *Error) Error() string {
	return fmt.Sprintf("piisweep: %s (code=%s, status=%d)", e.Message, e.Code, e.Status)
}

// errorEnvelope is the body shape of a failed response. Fields stay raw so
// each one is decoded on its own and a malformed field cannot discard a
// valid sibling.
type errorEnvelope struct {
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Message json.RawMessage `json:"message"`
	} `json:"error"`
}

// newError builds an Error from a failed response body. A body that cannot
// be parsed leaves the defaults in place.
func newError(status int, body []byte) *Error {
	e := &Error{
		Code:    UnknownErrorCode,
		Message: fmt.Sprintf("Request failed with status %d", status),
		Status:  status,
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return e
	}
	if code, ok := rawString(env.Error.Code); ok {
		e.Code = code
	}
	if msg, ok := rawString(env.Error.Message); ok {
		e.Message = msg
	}
	return e
}

// rawString decodes raw as a JSON string. Absent, null and non-string
// values report false.
func rawString(raw json.RawMessage) (string, bool) {
	var s *string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == nil {
		return "", false
	}
	return *s, true
}
