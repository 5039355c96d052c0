package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-redis/cache/v8"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/transfer"
	"github.com/tamasbrandstadter/transfers-api/internal/web"
)

type transferCommand struct {
	FromAccountID string           `json:"fromAccountId" validate:"required"`
	ToAccountID   string           `json:"toAccountId" validate:"required"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
}

type transferResponse struct {
	TransferID string         `json:"transferId"`
	State      transfer.State `json:"state"`
}

func (a *Application) Transfer(w http.ResponseWriter, r *http.Request) {
	// request validation
	var cmd transferCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}
	defer r.Body.Close()

	if err := validate.Struct(cmd); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("fromAccountId, toAccountId and amount are required fields"))
		return
	}
	if cmd.Amount.IsNegative() {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("amount to be transferred can't be negative"))
		return
	}

	req := transfer.Request{
		SourceAccountID:      cmd.FromAccountID,
		DestinationAccountID: cmd.ToAccountID,
		Amount:               *cmd.Amount,
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" || a.opts.Transfers == nil {
		a.transfer(r, req).Write(w, r)
		return
	}

	// concurrent requests with one key run the transfer once and share the outcome
	fingerprint := fingerprintOf(req)
	var cached replay
	err := a.opts.Transfers.Once(&cache.Item{
		Ctx:   r.Context(),
		Key:   "transfer:" + key,
		Value: &cached,
		TTL:   a.opts.IdempotencyTTL,
		Do: func(*cache.Item) (interface{}, error) {
			return replay{Fingerprint: fingerprint, Outcome: a.transfer(r, req)}, nil
		},
	})
	if err != nil {
		web.RespondError(w, r, http.StatusInternalServerError, errors.Wrapf(err, "replay transfer %s", key))
		return
	}

	if cached.Fingerprint != fingerprint {
		web.RespondError(w, r, http.StatusUnprocessableEntity, errors.New("idempotency key reused with a different payload"))
		return
	}

	cached.Outcome.Write(w, r)
}

// replay is what the idempotency cache keeps per key: the outcome and the
// request it answered.
type replay struct {
	Fingerprint string
	Outcome     web.Outcome
}

func fingerprintOf(req transfer.Request) string {
	return req.SourceAccountID + "\x00" + req.DestinationAccountID + "\x00" + req.Amount.String()
}

func (a *Application) transfer(r *http.Request, req transfer.Request) web.Outcome {
	res, err := a.Coordinator.Transfer(r.Context(), req)
	if err != nil {
		return web.Failure(r, transferStatus(err), transferCause(err))
	}

	return web.Result(r, http.StatusOK, transferResponse{TransferID: res.ID, State: res.State})
}

func transferStatus(err error) int {
	switch account.KindOf(err) {
	case account.KindNotFound:
		return http.StatusBadRequest
	case account.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// transferCause unwraps a debit or credit failure to the store error that
// caused it, so clients see which account was missing or short.
func transferCause(err error) error {
	var nf *account.NotFoundError
	if errors.As(err, &nf) && account.KindOf(err) == account.KindNotFound {
		return nf
	}
	var inf *account.InsufficientFundsError
	if errors.As(err, &inf) {
		return inf
	}
	return err
}
