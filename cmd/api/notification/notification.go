package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/metrics"
)

// Notifier tells an account holder about a balance change.
type Notifier interface {
	Notify(ctx context.Context, acc account.Account, message string) error
}

// Notification is the payload every outbound notifier serializes.
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Balance   string    `json:"balance"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotification(acc account.Account, message string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		AccountID: acc.ID,
		Balance:   acc.Balance.String(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Logger writes notifications to the service log.
type Logger struct{}

func (Logger) Notify(_ context.Context, acc account.Account, message string) error {
	log.WithFields(log.Fields{
		"account": acc.ID,
		"balance": acc.Balance.String(),
	}).Info(message)
	return nil
}

// Multi delivers to every notifier, the first failure does not stop the rest.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, acc account.Account, message string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, acc, message); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "notify account %s", acc.ID)
			}
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}
	return firstErr
}
