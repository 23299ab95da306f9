// Package services defines the business logic of the order workflow: the
// order state machine, the discount ledger and its approval pipeline, the
// shipment-document flow, and the support desk. This file centralizes the
// service-level error values so that callers can check them with errors.Is
// and translate them into conversation replies or HTTP statuses.
package services

import "errors"

// Order lifecycle errors.
var (
	// ErrOrderNotFound indicates that the referenced order does not exist.
	// Callers acknowledge it without mutating anything.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when the status graph has no edge
	// from the order's current status to the requested one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIncompleteDraft is returned by checkout when the draft is missing
	// product, size, payment method, or shipping details.
	ErrIncompleteDraft = errors.New("draft is incomplete")

	// ErrInvalidTracking is returned for tracking numbers that are not
	// 10 to 20 digits.
	ErrInvalidTracking = errors.New("tracking number must be 10-20 digits")

	// ErrNoPendingPayment is returned when a receipt arrives but the
	// customer has no card order waiting for one.
	ErrNoPendingPayment = errors.New("no order awaiting a payment receipt")
)

// Approval and free-text errors.
var (
	// ErrEmptyReason is returned when a rejection or reply text is blank.
	// The caller re-prompts and keeps the dialog open.
	ErrEmptyReason = errors.New("reason must not be empty")

	// ErrEmptyText is returned when a customer submits blank text.
	ErrEmptyText = errors.New("text must not be empty")

	// ErrRepostAlreadyUsed is returned when a customer whose repost discount
	// was ever approved submits another repost.
	ErrRepostAlreadyUsed = errors.New("repost discount already used")

	// ErrDiscountActive is returned when the discount being submitted is
	// already approved.
	ErrDiscountActive = errors.New("discount already active")

	// ErrIssueNotFound indicates that the support issue does not exist.
	ErrIssueNotFound = errors.New("support issue not found")
)
