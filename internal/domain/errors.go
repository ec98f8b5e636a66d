package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidAddress indicates input that is neither a valid IPv4, IPv6 nor
// MAC address, or a pair mixing address kinds. Caller error, never retried.
var ErrInvalidAddress = errors.New("invalid address")

// ErrValidation is the sentinel matched by every ValidationError.
var ErrValidation = errors.New("link validation failed")

// AddressNotFoundError is returned when an address is well-formed but no
// interface in the index matches it.
type AddressNotFoundError struct {
	Address string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("no interface matches address %q", e.Address)
}

// LinkNotFoundError is returned when both addresses resolve to interfaces
// but no link exists between them. It carries the resolved pair so that
// find-or-create can build the missing link without resolving twice.
type LinkNotFoundError struct {
	InterfaceA *Interface
	InterfaceB *Interface
}

func (e *LinkNotFoundError) Error() string {
	return fmt.Sprintf("no link between interfaces %q and %q", e.InterfaceA.MAC, e.InterfaceB.MAC)
}

// ValidationError reports a violated link save rule.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "link validation failed: " + e.Reason
}

// Is makes ValidationError match ErrValidation with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FetchError indicates the topology document could not be retrieved.
// The whole reconciliation run is aborted, nothing is mutated.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch topology %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError indicates a fetched topology document that could not be
// parsed. Fatal for the run, same as FetchError.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode topology document: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
