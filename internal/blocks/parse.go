package blocks

import (
	"strings"
)

type options struct {
	separator string
	required  []string
	fields    map[string]bool
}

// Option tunes a parse call
type Option func(*options)

// WithSeparator changes the name/value separator (default ":")
func WithSeparator(sep string) Option {
	return func(o *options) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// WithRequired makes the parse fail when any of the named fields is absent
func WithRequired(names ...string) Option {
	return func(o *options) {
		o.required = append(o.required, names...)
	}
}

// WithFields keeps only the named fields and drops every other line
func WithFields(names ...string) Option {
	return func(o *options) {
		if o.fields == nil {
			o.fields = make(map[string]bool, len(names))
		}
		for _, n := range names {
			o.fields[n] = true
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// splitField splits a line on the first separator occurrence.
// ok is false for blank lines and lines without a separator.
func splitField(line, sep string) (name, value string, ok bool) {
	if strings.TrimSpace(line) == "" {
		return "", "", false
	}
	name, value, found := strings.Cut(line, sep)
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// splitLines handles \n and \r\n line endings
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// ParseSingle collects every "Name<sep>Value" line of text into one block.
// Lines without a separator carry no field and are skipped.
//
// Used for the service and feature checks, whose output describes a single entity.
func ParseSingle(text string, opts ...Option) (FieldBlock, error) {
	o := buildOptions(opts)
	block := NewFieldBlock()

	for _, line := range splitLines(text) {
		name, value, ok := splitField(line, o.separator)
		if !ok {
			continue
		}
		if o.fields != nil && !o.fields[name] {
			continue
		}
		block.Set(name, value)
	}

	if err := block.Require(o.required...); err != nil {
		return FieldBlock{}, err
	}
	return block, nil
}

// ParseMulti splits concatenated records on the sentinel field.
//
// A record starts on every line whose field name equals sentinel exactly
// ("SwitchName" never starts a "Name" record) and runs up to the next such
// line; the last record runs to the end of the input. Lines before the
// first sentinel belong to no record. Values are split on the first
// separator only, so "00:12:01.5" survives intact.
func ParseMulti(text, sentinel string, opts ...Option) ([]FieldBlock, error) {
	o := buildOptions(opts)
	lines := splitLines(text)

	var starts []int
	for i, line := range lines {
		if name, _, ok := splitField(line, o.separator); ok && name == sentinel {
			starts = append(starts, i)
		}
	}

	records := make([]FieldBlock, 0, len(starts))
	for n, start := range starts {
		end := len(lines)
		if n+1 < len(starts) {
			end = starts[n+1]
		}

		block := NewFieldBlock()
		for _, line := range lines[start:end] {
			name, value, ok := splitField(line, o.separator)
			if !ok {
				continue
			}
			if o.fields != nil && !o.fields[name] {
				continue
			}
			block.Set(name, value)
		}

		if block.Len() == 0 {
			return nil, &MalformedRecordError{Field: sentinel, Reason: "starts a record with no fields"}
		}
		if err := block.Require(o.required...); err != nil {
			return nil, err
		}
		records = append(records, block)
	}

	return records, nil
}
