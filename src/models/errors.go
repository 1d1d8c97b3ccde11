package models

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrInput      = errors.New("invalid input")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
	ErrDurability = errors.New("durability flush failed")
)

// InputError reports batch input that cannot be processed at all.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string        { return e.Msg }
func (e *InputError) Is(target error) bool { return target == ErrInput }

// ValidationError reports a missing or malformed required argument.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an unknown resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreError wraps a backend failure. Error() of the wrapped error is the
// backend's own message.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// DurabilityError is returned alongside a successful mutation whose flush to
// disk failed. The mutation stays visible to the running process.
type DurabilityError struct {
	Err error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("changes applied but not flushed to disk: %v", e.Err)
}
func (e *DurabilityError) Unwrap() error        { return e.Err }
func (e *DurabilityError) Is(target error) bool { return target == ErrDurability }
