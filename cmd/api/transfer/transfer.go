// Package transfer moves money between two accounts of the account store as
// a debit followed by a credit. The two steps are not atomic together: a
// concurrent reader may see the source debited before the destination is
// credited. When the credit fails the debit is compensated by crediting the
// source back.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/notification"
	"github.com/tamasbrandstadter/transfers-api/internal/metrics"
)

// State is the position of a transfer in its lifecycle. Completed, Reversed,
// DebitFailed and CompensationFailed are terminal.
type State string

const (
	Initiated          State = "initiated"
	Debited            State = "debited"
	Compensating       State = "compensating_credit"
	Completed          State = "completed"
	Reversed           State = "reversed"
	DebitFailed        State = "debit_failed"
	CompensationFailed State = "compensation_failed"
)

type Request struct {
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
}

type Result struct {
	ID    string
	State State
}

// Store is the part of the account store a transfer mutates.
type Store interface {
	Debit(id string, amount decimal.Decimal) (account.Account, error)
	Credit(id string, amount decimal.Decimal) (account.Account, error)
}

type Coordinator struct {
	store    Store
	notifier notification.Notifier
	currency string
}

func NewCoordinator(store Store, notifier notification.Notifier, currency string) *Coordinator {
	if notifier == nil {
		notifier = notification.Logger{}
	}
	return &Coordinator{
		store:    store,
		notifier: notifier,
		currency: currency,
	}
}

// Transfer debits the source and credits the destination. Debit failures are
// returned as is with nothing mutated. A credit failure is compensated and
// the credit failure is returned; if the compensation fails too a
// CompensationFailedError is returned instead.
func (c *Coordinator) Transfer(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{ID: uuid.New().String(), State: Initiated}

	logger := log.WithFields(log.Fields{
		"transfer": res.ID,
		"from":     req.SourceAccountID,
		"to":       req.DestinationAccountID,
		"amount":   req.Amount.String(),
	})
	logger.Info("initiating transfer")

	defer func() {
		metrics.TransfersTotal.WithLabelValues(string(res.State)).Inc()
		metrics.TransferDuration.Observe(time.Since(start).Seconds())
	}()

	debited, err := c.store.Debit(req.SourceAccountID, req.Amount)
	if err != nil {
		res.State = DebitFailed
		logger.WithError(err).Warn("exception while debiting the account")
		return res, err
	}
	res.State = Debited
	c.notify(ctx, logger, debited, fmt.Sprintf("Account successfully debited by amount %s", c.display(req.Amount)))

	credited, err := c.store.Credit(req.DestinationAccountID, req.Amount)
	if err != nil {
		res.State = Compensating
		logger.WithError(err).Warn("exception while crediting the account, reversing debit")
		return c.compensate(ctx, logger, res, req, err)
	}
	c.notify(ctx, logger, credited, fmt.Sprintf("Account successfully credited by amount %s", c.display(req.Amount)))

	res.State = Completed
	logger.Info("transfer completed")

	return res, nil
}

func (c *Coordinator) compensate(ctx context.Context, logger *log.Entry, res Result, req Request, creditErr error) (Result, error) {
	restored, err := c.store.Credit(req.SourceAccountID, req.Amount)
	if err != nil {
		res.State = CompensationFailed
		cfe := &CompensationFailedError{
			TransferID: res.ID,
			AccountID:  req.SourceAccountID,
			Amount:     req.Amount,
			Original:   creditErr,
			Err:        err,
		}
		logger.WithError(cfe).Error("compensating credit failed, source account left debited")
		return res, cfe
	}

	res.State = Reversed
	c.notify(ctx, logger, restored, fmt.Sprintf("Account credited back by amount %s after failed transfer", c.display(req.Amount)))
	logger.Info("transfer reversed")

	return res, creditErr
}

// notify never fails the transfer.
func (c *Coordinator) notify(ctx context.Context, logger *log.Entry, acc account.Account, message string) {
	if err := c.notifier.Notify(ctx, acc, message); err != nil {
		logger.WithError(err).WithField("account", acc.ID).Warn("failed to notify account holder")
	}
}

func (c *Coordinator) display(amount decimal.Decimal) string {
	return account.Display(amount, c.currency)
}
