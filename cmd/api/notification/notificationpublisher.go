package notification

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/mq"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends notifications to the balance-notifications topic exchange.
type Publisher struct {
	mu sync.RWMutex
	ch channel
}

func NewPublisher(conn mq.Conn) *Publisher {
	return &Publisher{ch: conn.Channel}
}

// Use switches publishing to the channel of a reconnected conn.
func (p *Publisher) Use(conn mq.Conn) {
	p.mu.Lock()
	p.ch = conn.Channel
	p.mu.Unlock()
}

func (p *Publisher) Notify(_ context.Context, acc account.Account, message string) error {
	n := newNotification(acc, message)

	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()

	err = ch.Publish(mq.NotificationsExchangeName, mq.NotificationRouteKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    n.ID,
		Timestamp:    n.CreatedAt,
		Body:         body,
		DeliveryMode: amqp.Transient,
	})
	if err != nil {
		return errors.Wrap(err, "publish to balance-notifications topic")
	}

	return nil
}
