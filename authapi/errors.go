package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded or
	// lacks a required field.
	ErrMalformedResponse = errors.New("authapi: malformed response")
	// ErrTransport wraps failures to reach the server.
	ErrTransport = errors.New("authapi: transport failure")
)

// ServerError is a non-2xx response. Detail is empty when the body carried no
// usable message.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("authapi: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("authapi: %d %s", e.Status, http.StatusText(e.Status))
}

// Detail returns the server-provided message carried by err, if any.
func Detail(err error) (string, bool) {
	var se *ServerError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail, true
	}
	return "", false
}

// parseDetail extracts a string "detail" field. Structured details (such as
// validation error lists) are not user-facing messages and are ignored.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err != nil {
		return ""
	}
	return s
}
