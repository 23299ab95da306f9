// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used by the
// reconciliation metrics and the admin API's conditional responses.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// CountOrdersByStatus returns the number of orders in each status. Statuses
// with no orders are absent from the map.
func CountOrdersByStatus(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// OrdersStats returns the number of orders matching status (all when empty)
// and the greatest UpdatedAt among them, or nil when there are none.
func OrdersStats(ctx context.Context, db *gorm.DB, status domain.Status) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
