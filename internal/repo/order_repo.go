// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order model.
//
// Orders are never deleted. Status changes go through TransitionOrderStatus,
// which is a compare-and-set on the current status: the write only lands if
// the row still holds the status the caller read. This is what keeps an admin
// action and the reconciliation sweep from overwriting each other.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - A compare-and-set that matched no row returns ErrStaleStatus.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleStatus reports that an order's status changed between read and
// write, so the transition was not applied.
var ErrStaleStatus = errors.New("order status changed concurrently")

// CreateOrder inserts o and fills in its generated ID and timestamps.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Create(o).Error
}

// GetOrder fetches a single order by ID, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id uint) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersByUser returns a customer's orders, newest first. A non-positive
// limit returns all of them.
func ListOrdersByUser(ctx context.Context, db *gorm.DB, userID int64, limit int) ([]domain.Order, error) {
	var out []domain.Order
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListNonTerminalOrders returns every order whose status still has outgoing
// transitions, oldest first.
func ListNonTerminalOrders(ctx context.Context, db *gorm.DB) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Where("status NOT IN ?", domain.TerminalStatuses).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountOrders returns the number of orders with the given status, or all
// orders when status is empty.
func CountOrders(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListOrdersPage returns a page of orders, newest first, optionally filtered
// by status. Use CountOrders for pagination metadata.
func ListOrdersPage(ctx context.Context, db *gorm.DB, status domain.Status, offset, limit int) ([]domain.Order, error) {
	var out []domain.Order
	q := db.WithContext(ctx).Order("id desc").Offset(offset).Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&out).Error
	return out, err
}

// LatestAwaitingReceipt returns the customer's newest order that awaits
// payment and has no receipt attached yet, or ErrNotFound.
func LatestAwaitingReceipt(ctx context.Context, db *gorm.DB, userID int64) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND receipt_ref = ''", userID, domain.StatusAwaitingPayment).
		Order("id desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionOrderStatus moves order id from status from to status to, writing
// the extra columns in the same statement. It returns ErrStaleStatus if the
// row no longer holds from (or does not exist).
func TransitionOrderStatus(ctx context.Context, db *gorm.DB, id uint, from, to domain.Status, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SetOrderAdminMessage records which admin message carries the order's
// controls. Returns ErrNotFound if the order is missing.
func SetOrderAdminMessage(ctx context.Context, db *gorm.DB, id uint, messageID int) error {
	return updateOrderColumn(ctx, db, id, "admin_message_id", messageID)
}

// SetOrderReceipt stores the payment receipt reference. Only orders still
// awaiting payment accept a receipt; otherwise ErrStaleStatus is returned.
func SetOrderReceipt(ctx context.Context, db *gorm.DB, id uint, ref string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.StatusAwaitingPayment).
		Update("receipt_ref", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func updateOrderColumn(ctx context.Context, db *gorm.DB, id uint, col string, v any) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Update(col, v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
