// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// OrdersStats returns aggregate metadata for a client's orders: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When the client has no orders, the returned count is 0 and maxUpdatedAt
// is nil.
func OrdersStats(ctx context.Context, db *gorm.DB, clientID uint) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Order{}).Where("client_id = ?", clientID)

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

// MessagesStats returns aggregate metadata for an order's chat: the total
// number of messages, how many are still unread, and the newest CreatedAt.
// Messages are append-only and the read flag only moves one way, so the
// triple changes whenever the rendered chat would.
//
// Return values:
//   - count:     total messages for orderID
//   - unread:    messages with is_read = false
//   - latest:    pointer to the greatest CreatedAt, or nil if no rows
//   - err:       database error, if any
func MessagesStats(ctx context.Context, db *gorm.DB, orderID string) (count, unread int64, latest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("order_id = ?", orderID)
	}

	if err = base().Count(&count).Error; err != nil {
		return 0, 0, nil, err
	}
	if count == 0 {
		return 0, 0, nil, nil
	}
	if err = base().Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return 0, 0, nil, err
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = base().Select("created_at").Order("created_at DESC").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, nil, err
	}
	return count, unread, &row.CreatedAt, nil
}
