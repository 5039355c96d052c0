package notification

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/metrics"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

type job struct {
	ctx     context.Context
	acc     account.Account
	message string
}

// Dispatcher hands notifications to a pool of workers so callers never wait
// on delivery. When the buffer is full the notification is dropped.
type Dispatcher struct {
	next Notifier
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Notifier, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}

	d := &Dispatcher{
		next: next,
		jobs: make(chan job, buffer),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}

	return d
}

func (d *Dispatcher) Notify(ctx context.Context, acc account.Account, message string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), acc: acc, message: message}:
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for j := range d.jobs {
		if err := d.next.Notify(j.ctx, j.acc, j.message); err != nil {
			log.WithError(err).WithField("account", j.acc.ID).Warn("failed to deliver notification")
		}
	}
}
