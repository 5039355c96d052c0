package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/notification"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/transfer"
	c "github.com/tamasbrandstadter/transfers-api/internal/cache"
)

var decimalEqual = cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })

type errorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newTestApp(t *testing.T, transfers *cache.Cache) *Application {
	t.Helper()
	store := account.NewStore()
	return NewApplication(store, transfer.NewCoordinator(store, notification.Logger{}, "EUR"), Options{
		Currency:       "EUR",
		Transfers:      transfers,
		IdempotencyTTL: time.Minute,
	})
}

func newLocalApp(t *testing.T) *Application {
	return newTestApp(t, c.NewLocal(time.Minute))
}

func serve(t *testing.T, app *Application, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err, "error creating request")
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, app *Application, id, balance string) {
	t.Helper()
	require.NoError(t, app.Store.Create(account.New(id, decimal.RequireFromString(balance))))
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body), "error decoding response body")
	require.Len(t, body.Errors, 1)
	return body.Errors[0].Message
}

func balanceOf(t *testing.T, app *Application, id string) decimal.Decimal {
	t.Helper()
	acc, ok := app.Store.Get(id)
	require.True(t, ok, "account %s missing", id)
	return acc.Balance
}
