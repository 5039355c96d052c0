package account

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/transfers-api/internal/metrics"
)

// Account is an immutable snapshot. The store never mutates a published
// snapshot, every debit or credit swaps in a new value.
type Account struct {
	ID      string          `json:"accountId"`
	Balance decimal.Decimal `json:"balance"`
}

func New(id string, balance decimal.Decimal) Account {
	return Account{ID: id, Balance: balance}
}

// Store holds accounts keyed by id. Updates to one id are serialized with a
// compare-and-swap on that key only, unrelated ids never contend.
type Store struct {
	accounts sync.Map // string -> *Account
}

func NewStore() *Store {
	return &Store{}
}

// Create inserts acc unless its id is taken. Check and insert are a single
// LoadOrStore, so two concurrent creates with one id cannot both succeed.
func (s *Store) Create(acc Account) error {
	snapshot := acc
	if _, loaded := s.accounts.LoadOrStore(acc.ID, &snapshot); loaded {
		return &DuplicateAccountError{ID: acc.ID}
	}
	metrics.AccountsCreatedTotal.Inc()

	log.WithFields(log.Fields{
		"account": acc.ID,
		"balance": acc.Balance.String(),
	}).Info("account created")

	return nil
}

// Get returns the current snapshot of the account and whether it exists.
func (s *Store) Get(id string) (Account, bool) {
	v, ok := s.accounts.Load(id)
	if !ok {
		return Account{}, false
	}
	return *v.(*Account), true
}

// All returns snapshots of every account ordered by id.
func (s *Store) All() []Account {
	accounts := make([]Account, 0)
	s.accounts.Range(func(_, v any) bool {
		accounts = append(accounts, *v.(*Account))
		return true
	})

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})

	return accounts
}

// Debit subtracts amount from the balance of id. A debit that would leave a
// negative balance fails with InsufficientFundsError and changes nothing.
func (s *Store) Debit(id string, amount decimal.Decimal) (Account, error) {
	acc, err := s.update(id, func(cur Account) (Account, error) {
		newBalance := cur.Balance.Sub(amount)
		if newBalance.IsNegative() {
			return Account{}, &InsufficientFundsError{ID: id, Balance: newBalance}
		}
		return New(cur.ID, newBalance), nil
	})
	if err != nil {
		return Account{}, &DebitFailedError{ID: id, Err: err}
	}

	return acc, nil
}

// Credit adds amount to the balance of id.
func (s *Store) Credit(id string, amount decimal.Decimal) (Account, error) {
	acc, err := s.update(id, func(cur Account) (Account, error) {
		return New(cur.ID, cur.Balance.Add(amount)), nil
	})
	if err != nil {
		return Account{}, &CreditFailedError{ID: id, Err: err}
	}

	return acc, nil
}

// Clear drops every account. It is not atomic with in-flight debits or
// credits, callers coordinate externally.
func (s *Store) Clear() {
	s.accounts.Clear()
	log.Info("accounts cleared")
}

// update applies fn to the current snapshot of id and publishes the result
// only if no other update replaced the snapshot meanwhile. A lost swap means
// another writer got there first; fn is re-run against the newer snapshot so
// the balance check always sees the value it replaces.
func (s *Store) update(id string, fn func(Account) (Account, error)) (Account, error) {
	for {
		v, ok := s.accounts.Load(id)
		if !ok {
			return Account{}, &NotFoundError{ID: id}
		}

		cur := v.(*Account)
		next, err := fn(*cur)
		if err != nil {
			return Account{}, err
		}

		if s.accounts.CompareAndSwap(id, cur, &next) {
			return next, nil
		}
	}
}
