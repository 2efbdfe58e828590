// Package blocks turns line-oriented "Name : Value" command output into field
// blocks. It is the only package that looks at raw remote text.
package blocks

import (
	"errors"
	"fmt"
)

// DefaultSeparator splits a field name from its value
const DefaultSeparator = ":"

// ErrMalformedRecord is returned when text cannot be turned into the expected record
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError names the field that made a record unusable
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record: field %q %s", e.Field, e.Reason)
}

// Unwrap lets callers use errors.Is(err, ErrMalformedRecord)
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Missing builds the error for an absent field
func Missing(field string) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Reason: "is missing"}
}

// Invalid builds the error for a field whose value cannot be interpreted
func Invalid(field, value string, err error) *MalformedRecordError {
	reason := fmt.Sprintf("has invalid value %q", value)
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	return &MalformedRecordError{Field: field, Reason: reason}
}

// FieldBlock is an ordered mapping of field name to value for one entity.
// A repeated name overwrites the value but keeps its first position.
type FieldBlock struct {
	keys   []string
	values map[string]string
}

// NewFieldBlock returns an empty block
func NewFieldBlock() FieldBlock {
	return FieldBlock{values: make(map[string]string)}
}

// Set stores a field value
func (b *FieldBlock) Set(name, value string) {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	if _, exists := b.values[name]; !exists {
		b.keys = append(b.keys, name)
	}
	b.values[name] = value
}

// Get returns a field value and whether it was present
func (b FieldBlock) Get(name string) (string, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Value returns a field value or "" when absent
func (b FieldBlock) Value(name string) string {
	return b.values[name]
}

// Require returns a MalformedRecordError for the first absent field
func (b FieldBlock) Require(names ...string) error {
	for _, name := range names {
		if _, ok := b.values[name]; !ok {
			return Missing(name)
		}
	}
	return nil
}

// Keys returns field names in first-seen order
func (b FieldBlock) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len returns the number of fields
func (b FieldBlock) Len() int {
	return len(b.keys)
}
