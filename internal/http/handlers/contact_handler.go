// Public HTTP handlers that need no account:
//   - POST /contact      (contact form)
//   - POST /assistant    (navigation help; personalised when a token is sent)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/assistant"
	"github.com/tbourn/service-connect/internal/http/middleware"
	"github.com/tbourn/service-connect/internal/services"
)

// ContactRequest is the contact-form payload.
type ContactRequest struct {
	Name    string `json:"name" binding:"required" example:"Sam Visitor"`
	Email   string `json:"email" binding:"required" example:"sam@example.com"`
	Subject string `json:"subject" binding:"required" example:"Partnership"`
	Message string `json:"message" binding:"required" example:"Do you cover Alexandria?"`
}

// AssistantRequest is one question to the assistant. Page names the screen
// the visitor is on, e.g. "orders".
type AssistantRequest struct {
	Message string `json:"message" binding:"required" example:"how do I book a cleaning?"`
	Page    string `json:"page" example:"home"`
}

// SubmitContact godoc
// @ID          submitContact
// @Summary     Leave a message for support
// @Tags        Public
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ContactRequest  true  "Message"
// @Success     201   {object}  domain.ContactMessage
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, subject and message are required")
		return
	}
	m, err := h.contact.Submit(c.Request.Context(), services.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// Ask godoc
// @ID          askAssistant
// @Summary     Ask the navigation assistant
// @Description Anonymous visitors get generic answers; a bearer token tailors them to the role.
// @Tags        Public
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.AssistantRequest  true  "Question"
// @Success     200   {object}  assistant.Reply
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /assistant [post]
func (h *Handlers) Ask(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	q := assistant.Request{Input: req.Message, Page: req.Page}
	if a, found := middleware.ActorFrom(c); found {
		q.Role = a.Role
	}
	ok(c, http.StatusOK, h.assistant.Respond(q))
}
