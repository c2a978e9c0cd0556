package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (hint: %s)", e.Code, e.Message, e.RecoveryHint)
}

var recoveryHints = map[rent.Kind]string{
	rent.KindUnauthorized:        "Check the caller and that the escrow is approved for the owner's assets",
	rent.KindNotFound:            "Use list_rents or get_rent to find the current offer",
	rent.KindInvalidParameters:   "Use a positive rate, a duration above the minimum and an expiry past the minimum lead",
	rent.KindExpired:             "Ask the owner to create a new offer",
	rent.KindRateMismatch:        "Read the offer with get_rent and confirm its rate",
	rent.KindFingerprintMismatch: "Fetch a fresh value with get_fingerprint and sign again",
	rent.KindInsufficientFunds:   "Top up the payment token balance",
	rent.KindTransferRejected:    "Check asset custody, escrow approval and payment token allowance",
	rent.KindAlreadySigned:       "Wait until the rent is finished",
	rent.KindNotYetDue:           "Retry after the due time",
	rent.KindNotActive:           "Only the tenant of an active rent can update the asset",
	rent.KindNotAContract:        "Check the contract reference",
}

// MapError maps rent errors to MCP error codes. It returns nil for
// infrastructure failures.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var rentErr *rent.Error
	if !errors.As(err, &rentErr) {
		return nil
	}
	message := strings.ToLower(strings.ReplaceAll(string(rentErr.Kind), "_", " "))
	if rentErr.Err != nil {
		message = rentErr.Err.Error()
	}
	return &APIError{
		Code:         string(rentErr.Kind),
		Message:      message,
		RecoveryHint: recoveryHints[rentErr.Kind],
	}
}

func invalidParams(format string, args ...any) *APIError {
	return &APIError{
		Code:         string(rent.KindInvalidParameters),
		Message:      fmt.Sprintf(format, args...),
		RecoveryHint: "Amounts are decimal strings in the token's smallest unit; fingerprints are hex",
	}
}
