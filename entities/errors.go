package entities

import (
	"errors"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")
var ErrAmountOutOfRange = errors.New("amount exceeds the 64 bit unsigned range")
var ErrEncryptionUnavailable = errors.New("encryption runtime not available")
var ErrEncryptionFailed = errors.New("encrypting amount failed")
var ErrDecryptionFailed = errors.New("decrypting handles failed")
var ErrNoHandles = errors.New("no handles provided")
var ErrChainWriteRejected = errors.New("chain write rejected")
var ErrChainWriteFailed = errors.New("chain write failed")
var ErrNotOwner = errors.New("wallet is not the contract owner")

// FieldError is a local validation failure attached to one input field. Field
// errors never reach the network and are not propagated as plain errors.
type FieldError struct {
	Field   string
	Message string
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, fe := range v {
		messages = append(messages, fe.Field+": "+fe.Message)
	}
	return strings.Join(messages, "; ")
}

// Has reports whether a validation error exists for the given field.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}
