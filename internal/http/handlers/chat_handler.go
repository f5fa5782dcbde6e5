// Chat HTTP handlers.
//
// Every order carries one chat between its client and the technicians
// allowed to serve it:
//   - GET  /orders/{id}/messages        (history, ETag support)
//   - POST /orders/{id}/messages        (append)
//   - POST /orders/{id}/messages/read   (mark the other side's messages read)
//   - GET  /chats                       (conversation list)
//   - GET  /chats/unread                (total unread badge)
//
// Handlers are transport-thin: they normalize the body, call ChatService
// and translate results into HTTP responses (including conditional ones).
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

// PostMessageRequest is the JSON payload for a chat message.
type PostMessageRequest struct {
	Body string `json:"body" binding:"required" example:"I can come by at 10am, does that work?"`
}

// ListMessagesResponse wraps an order's chat, oldest first.
type ListMessagesResponse struct {
	Messages []repo.MessageRow `json:"messages"`
}

// MarkReadResponse reports how many messages flipped to read.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// UnreadResponse is the caller's total unread count.
type UnreadResponse struct {
	Unread int64 `json:"unread"`
}

// ConversationsResponse wraps the caller's chat list.
type ConversationsResponse struct {
	Conversations []services.Conversation `json:"conversations"`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody converts CRLF/CR to LF, collapses blank-line runs and trims.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     An order's chat history
// @Description Messages are ordered by creation time, then id. Supports a weak ETag via
// @Description If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       id             path      string  true   "Order ID"  format(uuid)
// @Param       If-None-Match  header    string  false  "Return 304 if ETag matches"
// @Success     200            {object}  handlers.ListMessagesResponse
// @Header      200            {string}  ETag  "Weak ETag for current result"
// @Success     304            {string}  string  "Not Modified"
// @Failure     403            {object}  handlers.ErrorResponse
// @Failure     404            {object}  handlers.ErrorResponse
// @Router      /orders/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()

	st, err := h.chat.Stats(ctx, a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	var ts int64
	if st.Latest != nil {
		ts = st.Latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"msgs:%s:%d:%d:%d"`, id, st.Count, st.Unread, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	items, err := h.chat.List(ctx, a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Append a chat message
// @Description Only the order's client or an eligible technician may post.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                       true  "Order ID"  format(uuid)
// @Param       body  body      handlers.PostMessageRequest  true  "Message"
// @Success     201   {object}  domain.ChatMessage
// @Failure     400   {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /orders/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}
	msg, err := h.chat.Append(c.Request.Context(), a, id, sanitizeBody(req.Body))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// MarkMessagesRead godoc
// @ID          markMessagesRead
// @Summary     Mark the other participants' messages read
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID"  format(uuid)
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /orders/{id}/messages/read [post]
func (h *Handlers) MarkMessagesRead(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	n, err := h.chat.MarkRead(c.Request.Context(), a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: n})
}

// ListConversations godoc
// @ID          listConversations
// @Summary     The caller's chats with unread counts and last message
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ConversationsResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /chats [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	convs, err := h.chat.Conversations(c.Request.Context(), a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ConversationsResponse{Conversations: convs})
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Total unread messages for the caller
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UnreadResponse
// @Router      /chats/unread [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	n, err := h.chat.UnreadCount(c.Request.Context(), a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadResponse{Unread: n})
}
