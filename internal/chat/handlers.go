package chat

import (
	"net/http"
	"strconv"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/gin-gonic/gin"
)

// VisibilityRequest is the body of the moderation route
type VisibilityRequest struct {
	IsShow *bool `json:"isShow"`
}

// Handler serves the chat routes
type Handler struct {
	service    *Service
	hub        *Hub
	writeLimit gin.HandlerFunc
	admin      gin.HandlerFunc
}

// Option configures a Handler
type Option func(*Handler)

// WithWriteLimit guards message posting with mw
func WithWriteLimit(mw gin.HandlerFunc) Option {
	return func(h *Handler) { h.writeLimit = mw }
}

// WithAdmin enables the moderation route behind mw
func WithAdmin(mw gin.HandlerFunc) Option {
	return func(h *Handler) { h.admin = mw }
}

// NewHandler creates the chat handler
func NewHandler(service *Service, hub *Hub, opts ...Option) *Handler {
	h := &Handler{service: service, hub: hub}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the chat routes on r
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/chat")
	g.GET("/messages", h.handleList)

	post := []gin.HandlerFunc{}
	if h.writeLimit != nil {
		post = append(post, h.writeLimit)
	}
	g.POST("/messages", append(post, h.handlePost)...)

	g.GET("/ws", h.handleWebSocket)

	if h.admin != nil {
		r.PATCH("/admin/chat/messages/:id", h.admin, h.handleVisibility)
	}
}

func (h *Handler) handleList(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errors.Respond(c, errors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	messages, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) handlePost(c *gin.Context) {
	var in PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		errors.Respond(c, errors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	msg, err := h.service.Post(c.Request.Context(), in)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) handleWebSocket(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

func (h *Handler) handleVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsShow == nil {
		errors.Respond(c, errors.NewValidationError("isShow is required"))
		return
	}

	if err := h.service.SetVisibility(c.Request.Context(), c.Param("id"), *req.IsShow); err != nil {
		errors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
