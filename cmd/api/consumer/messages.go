package consumer

import "github.com/shopspring/decimal"

type TransferMessage struct {
	FromID string           `json:"from"`
	ToID   string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}
