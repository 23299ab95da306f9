// Package services – Ledger
//
// This file implements the Ledger, the service view of the per-user discount
// record. Rows are created lazily on first read, so none of the read paths
// fail for a user the system has never seen.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/repo"
)

// ErrUnknownDiscount is returned for a discount kind outside the closed set.
var ErrUnknownDiscount = errors.New("unknown discount kind")

// Ledger reads and mutates discount eligibility.
type Ledger struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Entry returns the full ledger row for userID, creating it if absent.
func (l *Ledger) Entry(ctx context.Context, userID int64) (*domain.Discount, error) {
	return repo.GetOrCreateDiscount(ctx, l.DB, userID)
}

// GetDiscounts returns the currently approved discounts.
func (l *Ledger) GetDiscounts(ctx context.Context, userID int64) (domain.Discounts, error) {
	d, err := l.Entry(ctx, userID)
	if err != nil {
		return domain.Discounts{}, err
	}
	return d.Active(), nil
}

// IsRepostEverUsed reports the one-time repost latch.
func (l *Ledger) IsRepostEverUsed(ctx context.Context, userID int64) (bool, error) {
	d, err := l.Entry(ctx, userID)
	if err != nil {
		return false, err
	}
	return d.RepostEverUsed, nil
}

// Approve sets the discount flag. Approving a repost also sets the latch.
func (l *Ledger) Approve(ctx context.Context, userID int64, kind domain.DiscountKind) error {
	if !kind.Valid() {
		return ErrUnknownDiscount
	}
	return repo.ApproveDiscount(ctx, l.DB, userID, kind)
}

// Reject clears the discount flag and records reason. The repost latch is
// left untouched.
func (l *Ledger) Reject(ctx context.Context, userID int64, kind domain.DiscountKind, reason string) error {
	if !kind.Valid() {
		return ErrUnknownDiscount
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	return repo.RejectDiscount(ctx, l.DB, userID, kind, reason)
}
