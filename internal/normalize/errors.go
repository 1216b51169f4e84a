// Package normalize turns raw provider payloads into canonical chain records.
package normalize

import (
	"errors"
	"fmt"

	"txsemantics/internal/payload"
)

// ErrMalformedPayload is matched by every normalization failure and by every
// payload the raw adapter rejects.
var ErrMalformedPayload = payload.ErrMalformed

// MalformedPayloadError describes which field of which record failed.
type MalformedPayloadError struct {
	Record string
	Field  string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: field %s: %s", e.Record, e.Field, e.Reason)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func malformed(record, field, format string, args ...interface{}) *MalformedPayloadError {
	return &MalformedPayloadError{Record: record, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// nest rewrites a nested record failure so the field path points into the parent.
func nest(err error, record, prefix string) error {
	var mp *MalformedPayloadError
	if errors.As(err, &mp) {
		return &MalformedPayloadError{Record: record, Field: prefix + "." + mp.Field, Reason: mp.Reason}
	}
	return err
}
