package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/internal/web"
)

func (a *Application) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	acc, ok := a.Store.Get(id)
	if !ok {
		web.RespondError(w, r, http.StatusNotFound, &account.NotFoundError{ID: id})
		return
	}

	web.Respond(w, r, http.StatusOK, map[string]string{
		"accountId": acc.ID,
		"balance":   account.Display(acc.Balance, a.opts.Currency),
	})
}
