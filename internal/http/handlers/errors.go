// Package handlers implements the read-only operator API over orders.
//
// This file lists the stable error codes carried in ErrorResponse.Code.
// Clients branch on the code; the message is for humans.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeInvalidStatus = "invalid_status"
	ErrCodeListFailed    = "list_failed"
)
