// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for SupportIssue.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// CreateSupportIssue stores a customer's support text and returns the row
// with its assigned ID.
func CreateSupportIssue(ctx context.Context, db *gorm.DB, userID int64, text string) (*domain.SupportIssue, error) {
	is := &domain.SupportIssue{
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(is).Error; err != nil {
		return nil, err
	}
	return is, nil
}

// GetSupportIssue fetches an issue by ID, or ErrNotFound.
func GetSupportIssue(ctx context.Context, db *gorm.DB, id uint) (*domain.SupportIssue, error) {
	var is domain.SupportIssue
	if err := db.WithContext(ctx).First(&is, id).Error; err != nil {
		return nil, err
	}
	return &is, nil
}
