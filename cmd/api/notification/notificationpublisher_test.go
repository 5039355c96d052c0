package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/mq"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisherNotify(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch}
	acc := account.New("Id-123", decimal.RequireFromString("500.50"))

	err := p.Notify(context.Background(), acc, "Account successfully debited by amount €500.00")
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, mq.NotificationsExchangeName, sent.exchange)
	assert.Equal(t, mq.NotificationRouteKey, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Transient, sent.msg.DeliveryMode)

	var n Notification
	require.NoError(t, json.Unmarshal(sent.msg.Body, &n))
	assert.Equal(t, sent.msg.MessageId, n.ID)
	assert.Equal(t, "Id-123", n.AccountID)
	assert.Equal(t, "500.5", n.Balance)
	assert.Equal(t, "Account successfully debited by amount €500.00", n.Message)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestPublisherNotifyError(t *testing.T) {
	p := &Publisher{ch: &fakeChannel{err: errors.New("channel/connection is not open")}}

	err := p.Notify(context.Background(), account.New("Id-123", decimal.Zero), "msg")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "balance-notifications")
}

func TestPublisherUse(t *testing.T) {
	p := &Publisher{ch: &fakeChannel{}}

	p.Use(mq.Conn{})

	assert.Equal(t, channel((*amqp.Channel)(nil)), p.ch)
}
