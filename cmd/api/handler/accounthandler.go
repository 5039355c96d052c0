package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/web"
)

func (a *Application) CreateAccount(w http.ResponseWriter, r *http.Request) {
	// request validation
	var payload account.CreationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("invalid request payload, unable to parse"))
		return
	}
	defer r.Body.Close()

	if err := validate.Struct(payload); err != nil {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("accountId and balance are required fields"))
		return
	}
	if payload.Balance.IsNegative() {
		web.RespondError(w, r, http.StatusBadRequest, errors.New("initial balance can't be negative"))
		return
	}

	acc := payload.Account()
	if err := a.Store.Create(acc); err != nil {
		if account.KindOf(err) == account.KindDuplicate {
			web.RespondError(w, r, http.StatusConflict, err)
			return
		}
		web.RespondError(w, r, http.StatusInternalServerError, errors.Wrap(err, "create account"))
		return
	}

	web.Respond(w, r, http.StatusCreated, acc)
}

func (a *Application) GetAccountById(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	acc, ok := a.Store.Get(id)
	if !ok {
		web.RespondError(w, r, http.StatusNotFound, &account.NotFoundError{ID: id})
		return
	}

	web.Respond(w, r, http.StatusOK, acc)
}

func (a *Application) FindAllAccounts(w http.ResponseWriter, r *http.Request) {
	web.Respond(w, r, http.StatusOK, a.Store.All())
}

// ClearAccounts drops every account. It races with in-flight transfers.
func (a *Application) ClearAccounts(w http.ResponseWriter, r *http.Request) {
	a.Store.Clear()
	web.Respond(w, r, http.StatusNoContent, nil)
}
