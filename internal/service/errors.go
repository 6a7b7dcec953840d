package service

import (
	"errors"
	"fmt"
)

// ErrLineNotFound means a quantity update referenced a product with no
// line in the cart. Removal of an absent line is not an error.
var ErrLineNotFound = errors.New("item not in cart")

// ValidationError rejects malformed input before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
