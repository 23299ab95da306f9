// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the per-user
// Discount ledger row.
package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// GetOrCreateDiscount returns the user's ledger row, inserting a zeroed row
// on first access.
func GetOrCreateDiscount(ctx context.Context, db *gorm.DB, userID int64) (*domain.Discount, error) {
	d := domain.Discount{UserID: userID}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&d).Error
	if err != nil {
		return nil, err
	}
	var out domain.Discount
	if err := db.WithContext(ctx).First(&out, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveDiscount sets the flag for kind and clears its rejection reason.
// Approving a repost also sets the one-time latch, which nothing clears.
func ApproveDiscount(ctx context.Context, db *gorm.DB, userID int64, kind domain.DiscountKind) error {
	flag, reason, _, err := discountColumns(kind)
	if err != nil {
		return err
	}
	updates := map[string]any{flag: true, reason: ""}
	if kind == domain.DiscountRepost {
		updates["repost_ever_used"] = true
	}
	return updateDiscount(ctx, db, userID, updates)
}

// RejectDiscount clears the flag for kind and records the reason. The repost
// latch is left as is.
func RejectDiscount(ctx context.Context, db *gorm.DB, userID int64, kind domain.DiscountKind, why string) error {
	flag, reason, _, err := discountColumns(kind)
	if err != nil {
		return err
	}
	return updateDiscount(ctx, db, userID, map[string]any{flag: false, reason: why})
}

// SetDiscountAdminMessage remembers the admin message showing the proof for
// kind so the decision can later be appended to it.
func SetDiscountAdminMessage(ctx context.Context, db *gorm.DB, userID int64, kind domain.DiscountKind, messageID int) error {
	_, _, msg, err := discountColumns(kind)
	if err != nil {
		return err
	}
	return updateDiscount(ctx, db, userID, map[string]any{msg: messageID})
}

func updateDiscount(ctx context.Context, db *gorm.DB, userID int64, updates map[string]any) error {
	if _, err := GetOrCreateDiscount(ctx, db, userID); err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Discount{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func discountColumns(kind domain.DiscountKind) (flag, reason, msg string, err error) {
	switch kind {
	case domain.DiscountUBD:
		return "ubd", "reject_reason_ubd", "admin_message_id_ubd", nil
	case domain.DiscountRepost:
		return "repost", "reject_reason_repost", "admin_message_id_repost", nil
	}
	return "", "", "", fmt.Errorf("unknown discount kind %q", kind)
}
