package clients

import (
	"errors"
	"fmt"
)

// InvalidAddressError is returned before any I/O when an address is malformed
type InvalidAddressError struct {
	Chain   string
	Address string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s address: %q", e.Chain, e.Address)
}

// APIError means the upstream ledger explicitly rejected a request
type APIError struct {
	Chain   string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Chain, e.Message)
}

// IsInvalidAddress reports whether err is or wraps an InvalidAddressError
func IsInvalidAddress(err error) bool {
	var target *InvalidAddressError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is or wraps an APIError
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}
