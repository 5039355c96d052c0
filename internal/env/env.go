package env

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Cfg struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Currency string `envconfig:"CURRENCY" default:"EUR"`

	NotifyWorkers int `envconfig:"NOTIFY_WORKERS" default:"5"`
	NotifyBuffer  int `envconfig:"NOTIFY_BUFFER" default:"256"`

	MQUser         string `envconfig:"MQ_USER"`
	MQPass         string `envconfig:"MQ_PASSWORD"`
	MQHost         string `envconfig:"MQ_HOST"`
	MQPort         int    `envconfig:"MQ_PORT" default:"5672"`
	MQMaxReconnect int    `envconfig:"MQ_MAX_RECONNECT" default:"5"`
	MQConcurrency  int    `envconfig:"MQ_CONCURRENCY" default:"5"`

	RedisHost      string        `envconfig:"REDIS_HOST"`
	RedisPass      string        `envconfig:"REDIS_PASSWORD"`
	RedisPort      int           `envconfig:"REDIS_PORT" default:"6379"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"10m"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func GetEnvCfg() (Cfg, error) {
	var cfg Cfg

	if err := envconfig.Process("APP", &cfg); err != nil {
		return Cfg{}, errors.Wrap(err, "parse environment variables")
	}
	if cfg.NotifyWorkers < 1 || cfg.MQConcurrency < 1 {
		return Cfg{}, errors.New("worker counts must be positive")
	}

	return cfg, nil
}

// MQEnabled reports whether a broker is configured.
func (c Cfg) MQEnabled() bool { return c.MQHost != "" }

func (c Cfg) RedisEnabled() bool { return c.RedisHost != "" }

// Level parses LogLevel, falling back to info.
func (c Cfg) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using info", c.LogLevel)
		return log.InfoLevel
	}
	return lvl
}
