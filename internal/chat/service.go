package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/ZanzyTHEbar/devfolio/internal/database"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
	"github.com/ZanzyTHEbar/devfolio/internal/security"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength    = 100
	maxEmailLength   = 254
	maxMessageLength = 1000

	// DefaultHistoryLimit is the number of messages returned when no limit is given
	DefaultHistoryLimit = 100
	// MaxHistoryLimit caps the limit query parameter
	MaxHistoryLimit = 500
)

// Store is the persistence the chat room needs
type Store interface {
	InsertMessage(ctx context.Context, m *database.Message) error
	ListMessages(ctx context.Context, limit int) ([]database.Message, error)
	GetMessage(ctx context.Context, id string) (*database.Message, error)
	SetMessageVisibility(ctx context.Context, id string, show bool) error
}

// Publisher receives every stored message
type Publisher interface {
	Broadcast(msg *database.Message)
}

// PostInput is the body of a new chat message
type PostInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email" validate:"email"`
	Image   *string `json:"image" validate:"omitempty,url"`
	Message string  `json:"message"`
	ReplyTo *string `json:"replyTo"`
}

// Service implements the chat room
type Service struct {
	store     Store
	publisher Publisher
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *monitoring.Metrics
}

// NewService creates a chat service. publisher may be nil.
func NewService(store Store, publisher Publisher, logger *slog.Logger, metrics *monitoring.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		store:     store,
		publisher: publisher,
		validate:  validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// List returns up to limit visible messages, oldest first
func (s *Service) List(ctx context.Context, limit int) ([]database.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	messages, err := s.store.ListMessages(ctx, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list messages", err)
	}
	return messages, nil
}

// Post validates in, stores the message and pushes it to subscribers
func (s *Service) Post(ctx context.Context, in PostInput) (*database.Message, error) {
	for _, raw := range []struct{ field, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"message", in.Message},
	} {
		if err := security.ValidateText(raw.field, raw.value, 0); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	in.Name = security.SanitizeText(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = security.SanitizeText(in.Message)
	in.Image = optional(in.Image)
	in.ReplyTo = optional(in.ReplyTo)

	required := []struct {
		field  string
		value  string
		maxLen int
	}{
		{"name", in.Name, maxNameLength},
		{"email", in.Email, maxEmailLength},
		{"message", in.Message, maxMessageLength},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("%s is required", r.field))
		}
		if err := security.ValidateText(r.field, r.value, r.maxLen); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("%s is invalid", fieldErrs[0].Field()))
		}
		return nil, errors.NewValidationError("Invalid message", err.Error())
	}

	if in.ReplyTo != nil {
		if _, err := s.store.GetMessage(ctx, *in.ReplyTo); err != nil {
			if stderrors.Is(err, database.ErrNotFound) {
				return nil, errors.NewValidationError("replyTo refers to an unknown message")
			}
			return nil, errors.NewInternalError("failed to look up reply target", err)
		}
	}

	msg := database.NewMessage(in.Name, in.Email, in.Message, in.Image, in.ReplyTo)
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, errors.NewInternalError("failed to store message", err)
	}

	s.metrics.IncrementChatMessage()
	s.logger.Info("Chat message stored", "id", msg.ID, "is_reply", msg.IsReply)

	if s.publisher != nil {
		s.publisher.Broadcast(msg)
	}

	return msg, nil
}

// SetVisibility shows or hides a message
func (s *Service) SetVisibility(ctx context.Context, id string, show bool) error {
	if err := s.store.SetMessageVisibility(ctx, id, show); err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return errors.NewNotFoundError("message")
		}
		return errors.NewInternalError("failed to update message", err)
	}

	s.logger.Info("Chat message visibility changed", "id", id, "is_show", show)
	return nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
