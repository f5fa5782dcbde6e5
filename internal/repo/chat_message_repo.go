// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the per-order
// chat: appending, the joined listing, the read flip, and the unread
// aggregates derived from the message table.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// MessageRow is a ChatMessage joined with its sender's identity.
type MessageRow struct {
	ID         uint        `json:"id"`
	OrderID    string      `json:"order_id"`
	SenderID   uint        `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	SenderRole domain.Role `json:"sender_role"`
	Body       string      `json:"body"`
	IsRead     bool        `json:"is_read"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateChatMessage appends a message to an order's chat.
func CreateChatMessage(ctx context.Context, db *gorm.DB, orderID string, senderID uint, body string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		OrderID:   orderID,
		SenderID:  senderID,
		Body:      body,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("Order", "Sender").Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListChatMessages returns an order's messages oldest first. Equal
// timestamps fall back to insertion order via the autoincrement id.
func ListChatMessages(ctx context.Context, db *gorm.DB, orderID string) ([]MessageRow, error) {
	var out []MessageRow
	err := db.WithContext(ctx).
		Table("chat_messages").
		Select(`chat_messages.id, chat_messages.order_id, chat_messages.sender_id,
			users.name AS sender_name, users.role AS sender_role,
			chat_messages.body, chat_messages.is_read, chat_messages.created_at`).
		Joins("JOIN users ON users.id = chat_messages.sender_id").
		Where("chat_messages.order_id = ?", orderID).
		Order("chat_messages.created_at asc").
		Order("chat_messages.id asc").
		Scan(&out).Error
	return out, err
}

// MarkMessagesRead flips every unread message in orderID not sent by
// readerID. It is a single UPDATE, so concurrent calls for the same
// (order, reader) cannot lose updates. Returns the number of rows changed.
func MarkMessagesRead(ctx context.Context, db *gorm.DB, orderID string, readerID uint) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("order_id = ? AND sender_id <> ? AND is_read = ?", orderID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnreadForClient counts unread messages across all of clientID's
// orders that someone else sent.
func CountUnreadForClient(ctx context.Context, db *gorm.DB, clientID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Table("chat_messages").
		Joins("JOIN orders ON orders.id = chat_messages.order_id").
		Where("orders.client_id = ? AND chat_messages.sender_id <> ? AND chat_messages.is_read = ?", clientID, clientID, false).
		Count(&n).Error
	return n, err
}

// CountUnreadForTechnician counts unread client-sent messages on Pending
// orders that are unassigned or assigned to technicianID.
func CountUnreadForTechnician(ctx context.Context, db *gorm.DB, technicianID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Table("chat_messages").
		Joins("JOIN orders ON orders.id = chat_messages.order_id").
		Joins("LEFT JOIN technician_assignments ON technician_assignments.order_id = orders.id").
		Where("orders.status = ?", domain.StatusPending).
		Where("technician_assignments.technician_id IS NULL OR technician_assignments.technician_id = ?", technicianID).
		Where("chat_messages.sender_id = orders.client_id").
		Where("chat_messages.sender_id <> ? AND chat_messages.is_read = ?", technicianID, false).
		Count(&n).Error
	return n, err
}

// UnreadByOrder returns, for each of orderIDs with at least one unread
// message not sent by readerID, the number of such messages.
func UnreadByOrder(ctx context.Context, db *gorm.DB, readerID uint, orderIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		OrderID string
		Count   int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Select("order_id, COUNT(*) AS count").
		Where("order_id IN ? AND sender_id <> ? AND is_read = ?", orderIDs, readerID, false).
		Group("order_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.OrderID] = r.Count
	}
	return out, nil
}

// LatestMessages returns the most recent message of each order in orderIDs
// that has any.
func LatestMessages(ctx context.Context, db *gorm.DB, orderIDs []string) (map[string]domain.ChatMessage, error) {
	out := make(map[string]domain.ChatMessage, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var msgs []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at desc").
		Order("id desc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if _, seen := out[m.OrderID]; !seen {
			out[m.OrderID] = m
		}
	}
	return out, nil
}

// CountChatMessages returns the total number of chat messages.
func CountChatMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ChatMessage{}).Count(&n).Error
	return n, err
}
