// Package jsonx provides strict JSON body decoding for low-trust inputs.
package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrTrailingJSON = errors.New("trailing data")
)

// ParseStrictJSONBody reads and strictly decodes a JSON request body into dst.
//
// Strictness covers structure/shape only: malformed syntax, empty body,
// trailing data after the first JSON value, unknown fields, and field-type
// mismatches all fail (map to 400). Required-field presence and business
// rules are the caller's concern.
//
// The reader is capped at 1MB.
func ParseStrictJSONBody[T any](r *http.Request, dst *T) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}

	// Ensure a single JSON value: a second decode must hit EOF.
	if dec.More() {
		return ErrTrailingJSON
	}
	return nil
}
