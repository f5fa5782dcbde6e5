// Package services – ChatService
//
// This file implements the per-order chat: an append-only message log with a
// one-way read flag, and the unread accounting derived from it. Eligibility
// is enforced here rather than at the HTTP edge:
//
//   - the client who booked the order may read and post;
//   - a technician may read and post while the order is Pending and
//     unassigned, or at any time once it is assigned to them;
//   - admins may read but never post.
//
// Observability: Append and MarkRead are OpenTelemetry-instrumented.
package services

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/observability"
	"github.com/tbourn/service-connect/internal/repo"
)

// DefaultMaxMessageRunes caps a chat message body when MaxRunes is unset.
const DefaultMaxMessageRunes = 2000

// Conversation is one order's chat as shown in a participant's chat list.
type Conversation struct {
	Order       repo.OrderRow       `json:"order"`
	Unread      int64               `json:"unread"`
	LastMessage *domain.ChatMessage `json:"last_message,omitempty"`
}

// ChatStats summarizes an order's chat for conditional GETs.
type ChatStats struct {
	Count  int64
	Unread int64
	Latest *time.Time
}

// ChatService owns the messaging log.
type ChatService struct {
	DB       *gorm.DB
	MaxRunes int
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, maxRunes int) *ChatService {
	return &ChatService{DB: db, MaxRunes: maxRunes}
}

func (s *ChatService) maxRunes() int {
	if s.MaxRunes > 0 {
		return s.MaxRunes
	}
	return DefaultMaxMessageRunes
}

// Append adds body to orderID's chat on behalf of actor. Everything the
// sender could see before posting is marked read in the same transaction.
func (s *ChatService) Append(ctx context.Context, actor domain.Actor, orderID, body string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.Int64("user.id", int64(actor.UserID)),
		),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationErr("message body is empty", ErrEmptyBody)
	}
	if utf8.RuneCountInString(body) > s.maxRunes() {
		return nil, validationErr("message body too long", ErrTooLong)
	}

	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.canPost(actor) {
		return nil, forbiddenErr("not allowed to post in this chat", ErrNotEligible)
	}

	var msg *domain.ChatMessage
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateChatMessage(ctx, tx, orderID, actor.UserID, body)
		if err != nil {
			return err
		}
		msg = m
		_, err = repo.MarkMessagesRead(ctx, tx, orderID, actor.UserID)
		return err
	})
	if err != nil {
		return nil, storageErr("chat.append", err)
	}

	observability.MessagesAppended.WithLabelValues(string(actor.Role)).Inc()
	return msg, nil
}

// List returns orderID's messages oldest first with sender identity.
func (s *ChatService) List(ctx context.Context, actor domain.Actor, orderID string) ([]repo.MessageRow, error) {
	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.canReadChat(actor) {
		return nil, forbiddenErr("not allowed to read this chat", ErrNotEligible)
	}
	rows, err := repo.ListChatMessages(ctx, s.DB, orderID)
	if err != nil {
		return nil, storageErr("chat.list", err)
	}
	if rows == nil {
		rows = []repo.MessageRow{}
	}
	return rows, nil
}

// MarkRead flips every unread message in orderID that actor did not send.
// Repeating the call changes nothing. Returns the number of messages flipped.
func (s *ChatService) MarkRead(ctx context.Context, actor domain.Actor, orderID string) (int64, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return 0, err
	}
	if !acc.canPost(actor) {
		return 0, forbiddenErr("not allowed to read this chat", ErrNotEligible)
	}
	n, err := repo.MarkMessagesRead(ctx, s.DB, orderID, actor.UserID)
	if err != nil {
		return 0, storageErr("chat.mark_read", err)
	}
	span.SetAttributes(attribute.Int64("messages.flipped", n))
	return n, nil
}

// UnreadCount is the badge count for actor. Clients count unread messages
// from others across their orders; technicians count unread client messages
// on Pending orders that are unassigned or assigned to them. Admins take no
// part in chats and always get zero.
func (s *ChatService) UnreadCount(ctx context.Context, actor domain.Actor) (int64, error) {
	var (
		n   int64
		err error
	)
	switch actor.Role {
	case domain.RoleClient:
		n, err = repo.CountUnreadForClient(ctx, s.DB, actor.UserID)
	case domain.RoleTechnician:
		n, err = repo.CountUnreadForTechnician(ctx, s.DB, actor.UserID)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("chat.unread", err)
	}
	return n, nil
}

// Conversations lists the chats actor takes part in, newest order first.
func (s *ChatService) Conversations(ctx context.Context, actor domain.Actor) ([]Conversation, error) {
	var (
		orders []repo.OrderRow
		err    error
	)
	switch actor.Role {
	case domain.RoleClient:
		orders, err = repo.ListOrdersForClient(ctx, s.DB, actor.UserID)
	case domain.RoleTechnician:
		orders, err = s.technicianOrders(ctx, actor.UserID)
	default:
		return nil, forbiddenErr("only clients and technicians have chats", nil)
	}
	if err != nil {
		return nil, storageErr("chat.conversations", err)
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	unread, err := repo.UnreadByOrder(ctx, s.DB, actor.UserID, ids)
	if err != nil {
		return nil, storageErr("chat.conversations.unread", err)
	}
	latest, err := repo.LatestMessages(ctx, s.DB, ids)
	if err != nil {
		return nil, storageErr("chat.conversations.latest", err)
	}

	out := make([]Conversation, 0, len(orders))
	for _, o := range orders {
		c := Conversation{Order: o, Unread: unread[o.ID]}
		if m, ok := latest[o.ID]; ok {
			c.LastMessage = &m
		}
		out = append(out, c)
	}
	return out, nil
}

// technicianOrders merges the open queue (Pending, unassigned or held by
// techID) with every order assigned to techID.
func (s *ChatService) technicianOrders(ctx context.Context, techID uint) ([]repo.OrderRow, error) {
	pending, err := repo.ListPendingOrders(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	mine, err := repo.ListOrdersAssignedTo(ctx, s.DB, techID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(pending)+len(mine))
	out := make([]repo.OrderRow, 0, len(pending)+len(mine))
	for _, o := range pending {
		if o.TechnicianID != nil && *o.TechnicianID != techID {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	for _, o := range mine {
		if _, dup := seen[o.ID]; !dup {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Stats returns message counts for orderID, subject to the same read rules
// as List.
func (s *ChatService) Stats(ctx context.Context, actor domain.Actor, orderID string) (*ChatStats, error) {
	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.canReadChat(actor) {
		return nil, forbiddenErr("not allowed to read this chat", ErrNotEligible)
	}
	count, unread, latest, err := repo.MessagesStats(ctx, s.DB, orderID)
	if err != nil {
		return nil, storageErr("chat.stats", err)
	}
	return &ChatStats{Count: count, Unread: unread, Latest: latest}, nil
}
