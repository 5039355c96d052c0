package mq

import (
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type Config struct {
	User         string
	Pass         string
	Host         string
	Port         int
	Concurrency  int
	MaxReconnect int
}

func (c Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Pass, c.Host, c.Port)
}

type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

// NewConnection dials the broker, retrying up to MaxReconnect times.
func NewConnection(cfg Config) (Conn, error) {
	attempts := uint(cfg.MaxReconnect)
	if attempts == 0 {
		attempts = 1
	}

	log.Info("connecting to mq")

	var conn *amqp.Connection
	err := retry.Do(
		func() error {
			c, err := amqp.Dial(cfg.URL())
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("mq dial attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return Conn{}, errors.Wrap(err, "dial mq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return Conn{}, errors.Wrap(err, "open mq channel")
	}

	log.Info("verified mq connection")

	return Conn{Connection: conn, Channel: ch}, nil
}

func (c Conn) Close() error {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			log.Warnf("error closing mq channel: %v", err)
		}
	}
	if c.Connection != nil {
		return c.Connection.Close()
	}
	return nil
}
