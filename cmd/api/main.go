package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/consumer"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/handler"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/notification"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/transfer"
	c "github.com/tamasbrandstadter/transfers-api/internal/cache"
	"github.com/tamasbrandstadter/transfers-api/internal/env"
	"github.com/tamasbrandstadter/transfers-api/internal/mq"
)

func main() {
	log.SetFormatter(&log.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})

	envCfg, err := env.GetEnvCfg()
	if err != nil {
		log.Fatalf("error parsing env vars: %v", err)
	}
	log.SetLevel(envCfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifiers := notification.Multi{notification.Logger{}}

	var redis *c.Redis
	transfers := c.NewLocal(envCfg.IdempotencyTTL)
	if envCfg.RedisEnabled() {
		redis, err = connectRedis(envCfg)
		if err != nil {
			log.Errorf("error connecting to redis: %v", err)
			return
		}
		defer func() {
			if err := redis.Close(); err != nil {
				log.Errorf("error closing redis: %v", err)
			}
		}()

		transfers = redis.Transfers
		notifiers = append(notifiers, notification.NewStreamNotifier(redis.Client))
	}

	var conn mq.Conn
	var publisher *notification.Publisher
	if envCfg.MQEnabled() {
		conn, err = mq.NewConnection(mqConfig(envCfg))
		if err != nil {
			log.Errorf("error connecting to mq: %v", err)
			return
		}

		publisher = notification.NewPublisher(conn)
		notifiers = append(notifiers, publisher)
	}

	dispatcher := notification.NewDispatcher(notifiers, envCfg.NotifyWorkers, envCfg.NotifyBuffer)

	// consumers stop before the dispatcher flushes, the broker closes last
	var tc *consumer.TransferConsumer
	defer func() {
		if tc != nil {
			tc.Stop()
			conn = tc.Conn()
		}
		dispatcher.Close()
		if err := conn.Close(); err != nil {
			log.Errorf("error closing mq connection: %v", err)
		}
	}()

	store := account.NewStore()
	coordinator := transfer.NewCoordinator(store, dispatcher, envCfg.Currency)

	if envCfg.MQEnabled() {
		tc, err = startConsumers(ctx, envCfg, conn, coordinator, publisher)
		if err != nil {
			log.Errorf("error starting consumers: %v", err)
			return
		}
	}

	server := http.Server{
		Addr: fmt.Sprintf(":%d", envCfg.Port),
		Handler: handler.NewApplication(store, coordinator, handler.Options{
			Currency:       envCfg.Currency,
			Transfers:      transfers,
			IdempotencyTTL: envCfg.IdempotencyTTL,
		}),
		ReadTimeout:    envCfg.ReadTimeout,
		WriteTimeout:   envCfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infof("server started successfully, listening on %s", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		log.Errorf("server failed to start: %v", err)
		return
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), envCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: Graceful shutdown did not complete in %v : %v", envCfg.ShutdownTimeout, err)

		if err := server.Close(); err != nil {
			log.Warnf("shutdown: Error killing server : %v", err)
		}
	}
}

func connectRedis(envCfg env.Cfg) (*c.Redis, error) {
	return c.NewConnection(c.Config{
		Host: envCfg.RedisHost,
		Pass: envCfg.RedisPass,
		Port: envCfg.RedisPort,
	})
}

func mqConfig(envCfg env.Cfg) mq.Config {
	return mq.Config{
		User:         envCfg.MQUser,
		Pass:         envCfg.MQPass,
		Host:         envCfg.MQHost,
		Port:         envCfg.MQPort,
		Concurrency:  envCfg.MQConcurrency,
		MaxReconnect: envCfg.MQMaxReconnect,
	}
}

func startConsumers(ctx context.Context, envCfg env.Cfg, conn mq.Conn, coordinator *transfer.Coordinator, publisher *notification.Publisher) (*consumer.TransferConsumer, error) {
	mqCfg := mqConfig(envCfg)

	queue, err := conn.DeclareQueues(mqCfg.Concurrency)
	if err != nil {
		return nil, err
	}

	tc := &consumer.TransferConsumer{
		Transfer:    queue,
		Concurrency: mqCfg.Concurrency,
		Coordinator: coordinator,
		Reconnected: publisher.Use,
	}
	if err := tc.StartConsume(ctx, conn); err != nil {
		return nil, err
	}

	go tc.ClosedConnectionListener(ctx, mqCfg, conn.Channel.NotifyClose(make(chan *amqp.Error, 1)))

	return tc, nil
}
