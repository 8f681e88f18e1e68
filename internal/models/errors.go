package models

import (
	"errors"
	"fmt"
)

// ErrInvalidDealID is returned when a deal id is not a finite number > 0.
var ErrInvalidDealID = errors.New("Invalid deal id")

// ErrInvalidAmount matches any InvalidAmountError via errors.Is.
var ErrInvalidAmount = errors.New("invalid amount")

// InvalidAmountError reports a stored amount that is not an unsigned integer.
type InvalidAmountError struct {
	Amount string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: expected an unsigned integer in the token's smallest unit", e.Amount)
}

func (e *InvalidAmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

// ConfigurationError reports a missing or malformed setting that a specific
// action needs. It never fails the process as a whole.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is %s", e.Setting, e.Reason)
}
