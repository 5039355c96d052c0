package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/transfer"
	"github.com/tamasbrandstadter/transfers-api/internal/mq"
)

type transferer interface {
	Transfer(ctx context.Context, req transfer.Request) (transfer.Result, error)
}

const consumerTag = "transfer-consumer"

type TransferConsumer struct {
	Transfer    amqp.Queue
	Concurrency int
	Coordinator transferer
	// Reconnected, if set, is called with every new connection the
	// listener opens.
	Reconnected func(conn mq.Conn)

	mu      sync.Mutex
	conn    mq.Conn
	stopped bool
	workers sync.WaitGroup
}

// StartConsume runs Concurrency workers over the transfer queue. Workers stop
// when the channel closes or Stop cancels the consumer.
func (tc *TransferConsumer) StartConsume(ctx context.Context, conn mq.Conn) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.stopped {
		return errors.New("transfer consumer is stopped")
	}

	transfers, err := conn.Channel.Consume(tc.Transfer.Name, consumerTag, false, false,
		false, false, nil,
	)
	if err != nil {
		return errors.Wrap(err, "consume transfer queue")
	}

	tc.conn = conn
	tc.run(ctx, transfers)

	log.Infof("started %d transfer consumers", tc.Concurrency)
	return nil
}

// run starts the workers. Callers hold mu.
func (tc *TransferConsumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for i := 0; i < tc.Concurrency; i++ {
		tc.workers.Add(1)
		go func() {
			defer tc.workers.Done()
			tc.consume(ctx, deliveries)
		}()
	}
}

// Conn returns the connection consumers currently run on, which changes
// after a reconnect.
func (tc *TransferConsumer) Conn() mq.Conn {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.conn
}

// Stop cancels the consumer and waits until workers have settled every
// delivery already handed to them. It leaves the connection open.
func (tc *TransferConsumer) Stop() {
	tc.mu.Lock()
	tc.stopped = true
	ch := tc.conn.Channel
	tc.mu.Unlock()

	if ch != nil {
		if err := ch.Cancel(consumerTag, false); err != nil {
			log.WithError(err).Warn("cancel transfer consumer")
		}
	}

	tc.workers.Wait()
	log.Info("transfer consumers stopped")
}

func (tc *TransferConsumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if err := tc.handleTransfer(ctx, d); err != nil {
			log.WithError(err).WithField("message", d.MessageId).Warn("transfer message rejected")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

// ClosedConnectionListener reopens the connection after an unexpected close,
// trying up to MaxReconnect times, and resumes consuming on the new one.
func (tc *TransferConsumer) ClosedConnectionListener(ctx context.Context, cfg mq.Config, closed <-chan *amqp.Error) {
	err := <-closed
	if err == nil {
		log.Info("mq connection closed normally, will not reconnect")
		return
	}

	log.Errorf("closed mq connection: %v", err)

	for i := 0; i < cfg.MaxReconnect; i++ {
		if ctx.Err() != nil {
			return
		}

		log.Info("attempting to reconnect to mq")

		conn, err := tc.resume(ctx, cfg)
		if err == nil {
			log.Info("reconnected to mq")
			if tc.Reconnected != nil {
				tc.Reconnected(conn)
			}
			go tc.ClosedConnectionListener(ctx, cfg, conn.Channel.NotifyClose(make(chan *amqp.Error, 1)))
			return
		}

		log.WithError(err).Warn("mq reconnect failed")
		time.Sleep(1 * time.Second)
	}

	log.Error("reached max attempts, unable to reconnect to mq")
}

func (tc *TransferConsumer) resume(ctx context.Context, cfg mq.Config) (mq.Conn, error) {
	conn, err := mq.NewConnection(cfg)
	if err != nil {
		return mq.Conn{}, err
	}

	if _, err = conn.DeclareQueues(cfg.Concurrency); err != nil {
		_ = conn.Close()
		return mq.Conn{}, err
	}

	if err = tc.StartConsume(ctx, conn); err != nil {
		_ = conn.Close()
		return mq.Conn{}, err
	}

	return conn, nil
}

// handleTransfer runs the transfer a message asks for. Any error means the
// message must not be redelivered.
func (tc *TransferConsumer) handleTransfer(ctx context.Context, d amqp.Delivery) error {
	payload, err := decodeMessage(d)
	if err != nil {
		return err
	}

	if err = validate(payload); err != nil {
		return err
	}

	res, err := tc.Coordinator.Transfer(ctx, transfer.Request{
		SourceAccountID:      payload.FromID,
		DestinationAccountID: payload.ToID,
		Amount:               *payload.Amount,
	})
	if err != nil {
		return errors.Wrapf(err, "transfer %s", res.ID)
	}

	log.Infof("successfully transferred amount %s from account %s to account %s", payload.Amount.String(), payload.FromID, payload.ToID)
	return nil
}

func decodeMessage(d amqp.Delivery) (TransferMessage, error) {
	var payload TransferMessage

	r := bytes.NewReader(d.Body)
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return TransferMessage{}, errors.New("invalid message payload, unable to parse")
	}

	return payload, nil
}

func validate(m TransferMessage) error {
	if m.FromID == "" || m.ToID == "" {
		return errors.New("from and to account ids are required")
	}
	if m.Amount == nil {
		return errors.New("transfer amount is required")
	}
	if m.Amount.IsNegative() {
		return errors.New("transfer amount can't be negative")
	}
	return nil
}
