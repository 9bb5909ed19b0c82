package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is a non-2xx response from the enrollment service.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// StatusOf returns the HTTP status carried by err, or 0 for transport errors.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf returns the server-reported detail in err, or fallback when there
// is none.
func DetailOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// readError builds an *Error from resp. The service reports either
// {"detail": "..."} or a validation list {"detail": [{"msg": "..."}]}.
func readError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(b) == 0 {
		return apiErr
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(b, &body); err != nil || len(body.Detail) == 0 {
		return apiErr
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		apiErr.Detail = s
		return apiErr
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil && len(list) > 0 {
		apiErr.Detail = list[0].Msg
	}
	return apiErr
}
