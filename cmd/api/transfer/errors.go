package transfer

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
)

// CompensationFailedError means a transfer debited the source, failed to
// credit the destination, and then failed to credit the source back. The
// store is inconsistent by Amount. Original is the credit failure that
// triggered the compensation, Err the failure of the compensation itself.
type CompensationFailedError struct {
	TransferID string
	AccountID  string
	Amount     decimal.Decimal
	Original   error
	Err        error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("transfer %s: reversing debit of %s on account %s failed: %v (after: %v)",
		e.TransferID, e.Amount.String(), e.AccountID, e.Err, e.Original)
}

func (e *CompensationFailedError) Unwrap() error { return e.Err }

func (e *CompensationFailedError) Kind() account.Kind { return account.KindCompensationFailed }
