package mq

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

const (
	PaymentsExchangeName      = "payments"
	NotificationsExchangeName = "balance-notifications"
	TransferQueueName         = "transfers"
	TransferRouteKey          = "trnsfr"
	NotificationRouteKey      = "notif"
	kind                      = "topic"
)

// DeclareQueues declares the payments exchange with its transfer queue and
// the notifications exchange, and sets the prefetch for concurrency consumers.
func (conn Conn) DeclareQueues(concurrency int) (amqp.Queue, error) {
	err := conn.Channel.ExchangeDeclare(PaymentsExchangeName, kind, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, errors.Wrap(err, "declare payments exchange")
	}

	err = conn.Channel.ExchangeDeclare(NotificationsExchangeName, kind, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, errors.Wrap(err, "declare notifications exchange")
	}

	transfer, err := conn.Channel.QueueDeclare(TransferQueueName, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, errors.Wrap(err, "declare transfer queue")
	}

	err = conn.Channel.QueueBind(TransferQueueName, TransferRouteKey, PaymentsExchangeName, false, nil)
	if err != nil {
		return amqp.Queue{}, errors.Wrap(err, "bind transfer queue")
	}

	if concurrency < 1 {
		concurrency = 1
	}
	prefetchCount := concurrency * 4
	if err = conn.Channel.Qos(prefetchCount, 0, false); err != nil {
		return amqp.Queue{}, errors.Wrap(err, "set mq qos")
	}

	return transfer, nil
}
