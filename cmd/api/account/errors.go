package account

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Kind classifies a failure so adapters can pick an outcome without
// matching concrete error types.
type Kind int

const (
	KindUnknown Kind = iota
	KindDuplicate
	KindNotFound
	KindInsufficientFunds
	KindCompensationFailed
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindCompensationFailed:
		return "compensation_failed"
	default:
		return "unknown"
	}
}

type kinder interface {
	Kind() Kind
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

type DuplicateAccountError struct {
	ID string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account id %s already exists", e.ID)
}

func (e *DuplicateAccountError) Kind() Kind { return KindDuplicate }

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account with id %s is not present", e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

// InsufficientFundsError carries the negative balance the rejected debit
// would have produced.
type InsufficientFundsError struct {
	ID      string
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("after debit, account %s would have balance of %s, account cannot have negative balance",
		e.ID, e.Balance.String())
}

func (e *InsufficientFundsError) Kind() Kind { return KindInsufficientFunds }

// DebitFailedError wraps a NotFoundError or InsufficientFundsError. Nothing
// was mutated when it is returned.
type DebitFailedError struct {
	ID  string
	Err error
}

func (e *DebitFailedError) Error() string {
	return fmt.Sprintf("debit account %s: %v", e.ID, e.Err)
}

func (e *DebitFailedError) Unwrap() error { return e.Err }

func (e *DebitFailedError) Kind() Kind { return KindOf(e.Err) }

// CreditFailedError wraps the NotFoundError of a credit.
type CreditFailedError struct {
	ID  string
	Err error
}

func (e *CreditFailedError) Error() string {
	return fmt.Sprintf("credit account %s: %v", e.ID, e.Err)
}

func (e *CreditFailedError) Unwrap() error { return e.Err }

func (e *CreditFailedError) Kind() Kind { return KindOf(e.Err) }
