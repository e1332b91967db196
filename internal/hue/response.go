package hue

import (
	"encoding/json"
	"errors"
	"io"
)

// Response is one element of the array every v1 write endpoint answers with.
type Response[T any] struct {
	Success *T        `json:"success,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// DecodeResponses reads a v1 response array. A body that is not an array of
// success/error objects is reported as *ParseError.
func DecodeResponses[T any](op string, r io.Reader) ([]Response[T], error) {
	var out []Response[T]
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	if len(out) == 0 {
		return nil, &ParseError{Op: op, Err: errors.New("empty response array")}
	}
	for _, item := range out {
		if item.Success == nil && item.Error == nil {
			return nil, &ParseError{Op: op, Err: errors.New("response has neither success nor error")}
		}
	}
	return out, nil
}

// FirstError returns the first bridge error in the responses, if any.
func FirstError[T any](responses []Response[T]) error {
	for _, r := range responses {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}
