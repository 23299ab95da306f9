// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the replay guard for inbound transport
// updates: each update id is claimed once, and a second claim reports
// ErrDuplicate so the dispatcher can drop the redelivery.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// ErrDuplicate indicates that the update id has already been claimed.
var ErrDuplicate = errors.New("duplicate")

// ClaimUpdate records updateID as processed. It returns ErrDuplicate when the
// id was claimed before and has not yet been purged.
func ClaimUpdate(ctx context.Context, db *gorm.DB, updateID int, chatID int64, ttl time.Duration) error {
	now := time.Now().UTC()
	rec := &domain.ProcessedUpdate{
		UpdateID:  updateID,
		ChatID:    chatID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// PurgeExpiredUpdates deletes claims whose expiry is at or before now and
// returns how many rows were removed.
func PurgeExpiredUpdates(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedUpdate{})
	return res.RowsAffected, res.Error
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
