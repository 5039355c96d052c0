package account

import "github.com/shopspring/decimal"

// CreationRequest is the payload of POST /v1/accounts. Balance is a pointer
// so a missing balance is told apart from zero.
type CreationRequest struct {
	AccountID string           `json:"accountId" validate:"required"`
	Balance   *decimal.Decimal `json:"balance" validate:"required"`
}

func (r CreationRequest) Account() Account {
	return New(r.AccountID, *r.Balance)
}
