package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/stats"
)

// ContributionSource produces the contribution calendar summary
type ContributionSource interface {
	FetchContributions(ctx context.Context) (*stats.ContributionSummary, error)
}

// TrafficSource produces the site traffic summary anchored at now
type TrafficSource interface {
	FetchTraffic(ctx context.Context, now time.Time) (*stats.TrafficSummary, error)
}

// CodingSource produces the weekly coding activity summary
type CodingSource interface {
	FetchCodingActivity(ctx context.Context) (*stats.CodingActivitySummary, error)
}

// TypingSource produces the typing test summary
type TypingSource interface {
	FetchTyping(ctx context.Context) (*stats.TypingSummary, error)
}

// Handler serves the four dashboard summaries
type Handler struct {
	contributions ContributionSource
	traffic       TrafficSource
	coding        CodingSource
	typing        TypingSource
	now           func() time.Time
}

// Option customizes a Handler
type Option func(*Handler)

// WithClock replaces the wall clock used to anchor the traffic chart
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// New creates a Handler over the given sources
func New(contributions ContributionSource, traffic TrafficSource, coding CodingSource, typing TypingSource, opts ...Option) *Handler {
	h := &Handler{
		contributions: contributions,
		traffic:       traffic,
		coding:        coding,
		typing:        typing,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the summaries on r
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/github", h.GitHub)
	r.GET("/umami", h.Umami)
	r.GET("/wakatime", h.WakaTime)
	r.GET("/monkeytype", h.Monkeytype)
}

// GitHub handles GET /github
func (h *Handler) GitHub(c *gin.Context) {
	summary, err := h.contributions.FetchContributions(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Umami handles GET /umami
func (h *Handler) Umami(c *gin.Context) {
	summary, err := h.traffic.FetchTraffic(c.Request.Context(), h.now())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// WakaTime handles GET /wakatime
func (h *Handler) WakaTime(c *gin.Context) {
	summary, err := h.coding.FetchCodingActivity(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Monkeytype handles GET /monkeytype
func (h *Handler) Monkeytype(c *gin.Context) {
	summary, err := h.typing.FetchTyping(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
