package projects

import (
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the body of POST /admin/login
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the admin bearer token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler serves the catalog and admin login routes
type Handler struct {
	service    *Service
	auth       *Auth
	readCache  gin.HandlerFunc
	loginLimit gin.HandlerFunc
}

// Option configures a Handler
type Option func(*Handler)

// WithReadCache caches the public GET routes with mw
func WithReadCache(mw gin.HandlerFunc) Option {
	return func(h *Handler) { h.readCache = mw }
}

// WithLoginLimit guards the login route with mw
func WithLoginLimit(mw gin.HandlerFunc) Option {
	return func(h *Handler) { h.loginLimit = mw }
}

// NewHandler creates the catalog handler
func NewHandler(service *Service, auth *Auth, opts ...Option) *Handler {
	h := &Handler{service: service, auth: auth}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the catalog routes on r
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	public := r.Group("/projects")
	if h.readCache != nil {
		public.Use(h.readCache)
	}
	public.GET("", h.handleList)
	public.GET("/:slug", h.handleGet)

	admin := r.Group("", h.auth.RequireAdmin())
	admin.POST("/projects", h.handleCreate)
	admin.PUT("/projects/:slug", h.handleUpdate)
	admin.DELETE("/projects/:slug", h.handleDelete)
	admin.GET("/admin/projects", h.handleListAll)

	login := []gin.HandlerFunc{}
	if h.loginLimit != nil {
		login = append(login, h.loginLimit)
	}
	r.POST("/admin/login", append(login, h.handleLogin)...)
}

func (h *Handler) handleList(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), c.Query("q"), c.Query("stack"))
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleListAll(c *gin.Context) {
	projects, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) handleGet(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) handleCreate(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		errors.Respond(c, errors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	project, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) handleUpdate(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		errors.Respond(c, errors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	project, err := h.service.Update(c.Request.Context(), c.Param("slug"), in)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) handleDelete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		errors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		errors.Respond(c, errors.NewValidationError("password is required"))
		return
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
