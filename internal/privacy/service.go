package privacy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the message persistence erasure and retention act on
type Store interface {
	DeleteMessagesByEmail(ctx context.Context, email string) (int64, error)
	DeleteHiddenMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrivacyService handles erasure requests and retention of chat data
type PrivacyService struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new privacy service. Hidden messages older than
// retention are purged by PurgeExpired.
func NewService(store Store, retention time.Duration, logger *slog.Logger) *PrivacyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrivacyService{store: store, retention: retention, logger: logger, now: time.Now}
}

// AnonymizeEmail returns a stable digest of email safe to log
func AnonymizeEmail(email string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(hash[:])
}

// DeleteUserData removes every chat message sent with email
func (ps *PrivacyService) DeleteUserData(ctx context.Context, email string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, fmt.Errorf("email is required")
	}

	subject := AnonymizeEmail(email)[:8] + "..."
	ps.logger.Info("Initiating data deletion", "subject", subject)

	deleted, err := ps.store.DeleteMessagesByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	ps.logger.Info("Data deletion completed", "subject", subject, "messages_deleted", deleted)
	return deleted, nil
}

// PurgeExpired deletes hidden messages older than the retention period
func (ps *PrivacyService) PurgeExpired(ctx context.Context) (int64, error) {
	if ps.retention <= 0 {
		return 0, nil
	}

	cutoff := ps.now().Add(-ps.retention)
	deleted, err := ps.store.DeleteHiddenMessagesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge hidden messages: %w", err)
	}

	if deleted > 0 {
		ps.logger.Info("Data cleanup completed", "cutoff_date", cutoff, "messages_deleted", deleted)
	}
	return deleted, nil
}

// ScheduleDataCleanup runs PurgeExpired every interval until ctx is done
func (ps *PrivacyService) ScheduleDataCleanup(ctx context.Context, interval time.Duration) {
	if ps.retention <= 0 || interval <= 0 {
		return
	}

	ps.logger.Info("Scheduling data cleanup",
		"retention_days", int(ps.retention.Hours()/24),
		"interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ps.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				ps.logger.Warn("Scheduled data cleanup failed", "error", err)
			}
		}
	}
}

// GetDataRetentionInfo describes how chat data is kept
func (ps *PrivacyService) GetDataRetentionInfo() map[string]interface{} {
	return map[string]interface{}{
		"hidden_message_retention_days": int(ps.retention.Hours() / 24),
		"email_exposure":                "never returned by the API",
		"anonymization_method":          "SHA-256",
		"erasure":                       "all messages sent with an email address are deleted on request",
	}
}
