package models

import (
	"errors"
	"fmt"
	"strings"
)

// EntryError records why a single input entry was rejected.
type EntryError struct {
	Index int    `json:"index"`
	Input string `json:"input"`
	Cause error  `json:"-"`
}

func (e EntryError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("entry %d: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("entry %d (%q): %v", e.Index, e.Input, e.Cause)
}

func (e EntryError) Unwrap() error { return e.Cause }

// EntryErrors aggregates per-entry failures that did not stop processing of
// the remaining entries.
type EntryErrors struct {
	Errors []EntryError `json:"errors"`
}

// Add records a failure for the entry at index.
func (v *EntryErrors) Add(index int, input string, err error) {
	if err == nil {
		return
	}
	v.Errors = append(v.Errors, EntryError{Index: index, Input: input, Cause: err})
}

// Len reports how many entries failed.
func (v *EntryErrors) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Errors)
}

// Err returns nil if nothing failed, otherwise the aggregate.
func (v *EntryErrors) Err() error {
	if v.Len() == 0 {
		return nil
	}
	return v
}

// Error implements error.
func (v *EntryErrors) Error() string {
	if v.Len() == 0 {
		return "no failed entries"
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d entries failed: ", len(v.Errors))
	for i, err := range v.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.Error())
	}
	return builder.String()
}

// Is allows errors.Is to match the cause of any entry.
func (v *EntryErrors) Is(target error) bool {
	if v == nil {
		return false
	}
	for _, err := range v.Errors {
		if err.Cause != nil && errors.Is(err.Cause, target) {
			return true
		}
	}
	return false
}
