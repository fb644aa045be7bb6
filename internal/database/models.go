package database

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a portfolio catalog entry
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Image       *string   `json:"image"`
	LinkDemo    *string   `json:"linkDemo"`
	LinkGithub  *string   `json:"linkGithub"`
	Stacks      []string  `json:"stacks"`
	Content     *string   `json:"content"`
	IsShow      bool      `json:"isShow"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasStack reports whether the project lists stack, ignoring case
func (p *Project) HasStack(stack string) bool {
	for _, s := range p.Stacks {
		if strings.EqualFold(s, stack) {
			return true
		}
	}
	return false
}

// Message is a chat room entry. The email is stored for moderation and
// erasure requests and never serialized.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"-"`
	Image     *string   `json:"image"`
	Message   string    `json:"message"`
	IsReply   bool      `json:"isReply"`
	ReplyTo   *string   `json:"replyTo"`
	IsShow    bool      `json:"isShow"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a visible message with a fresh id
func NewMessage(name, email, text string, image, replyTo *string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Image:     image,
		Message:   text,
		IsReply:   replyTo != nil,
		ReplyTo:   replyTo,
		IsShow:    true,
		CreatedAt: time.Now().UTC(),
	}
}
