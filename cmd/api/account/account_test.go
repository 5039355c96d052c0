package account

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountId = "ID-123"

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCreate(t *testing.T) {
	s := NewStore()

	err := s.Create(New(accountId, dec(1000)))
	require.NoError(t, err)

	acc, ok := s.Get(accountId)
	assert.True(t, ok)
	assert.Equal(t, accountId, acc.ID)
	assert.True(t, dec(1000).Equal(acc.Balance))
}

func TestCreateDuplicate(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Create(New(accountId, dec(1000))))
	err := s.Create(New(accountId, dec(5)))

	var dup *DuplicateAccountError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, accountId, dup.ID)
	assert.Equal(t, KindDuplicate, KindOf(err))

	acc, _ := s.Get(accountId)
	assert.True(t, dec(1000).Equal(acc.Balance), "first balance must survive, got %s", acc.Balance)
}

func TestCreateConcurrentSameId(t *testing.T) {
	s := NewStore()

	const workers = 50
	var created int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			if err := s.Create(New(accountId, dec(int64(i)))); err == nil {
				atomic.AddInt32(&created, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
}

func TestGetMissing(t *testing.T) {
	s := NewStore()

	acc, ok := s.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, Account{}, acc)
}

func TestAllSortedById(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New("b", dec(2))))
	require.NoError(t, s.Create(New("a", dec(1))))
	require.NoError(t, s.Create(New("c", dec(3))))

	accounts := s.All()

	require.Len(t, accounts, 3)
	assert.Equal(t, "a", accounts[0].ID)
	assert.Equal(t, "b", accounts[1].ID)
	assert.Equal(t, "c", accounts[2].ID)
}

func TestAllEmpty(t *testing.T) {
	assert.NotNil(t, NewStore().All())
	assert.Len(t, NewStore().All(), 0)
}

func TestDebitAbsentAccount(t *testing.T) {
	s := NewStore()

	_, err := s.Debit(accountId, dec(100))

	var debitErr *DebitFailedError
	require.True(t, errors.As(err, &debitErr))
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "account with id ID-123 is not present", notFound.Error())
}

func TestDebitNegativeBalance(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(500))))

	_, err := s.Debit(accountId, dec(1000))

	var debitErr *DebitFailedError
	require.True(t, errors.As(err, &debitErr))
	var funds *InsufficientFundsError
	require.True(t, errors.As(err, &funds))
	assert.True(t, dec(-500).Equal(funds.Balance))
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Contains(t, err.Error(), "account cannot have negative balance")

	acc, _ := s.Get(accountId)
	assert.True(t, dec(500).Equal(acc.Balance))
}

func TestDebit(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(1000))))

	acc, err := s.Debit(accountId, dec(500))

	require.NoError(t, err)
	assert.True(t, dec(500).Equal(acc.Balance))

	stored, _ := s.Get(accountId)
	assert.True(t, decimal.RequireFromString("500.0").Equal(stored.Balance))
}

func TestDebitWholeBalance(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, decimal.RequireFromString("10.25"))))

	acc, err := s.Debit(accountId, decimal.RequireFromString("10.25"))

	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
}

func TestDebitAndCreditZeroAmount(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(0))))

	_, err := s.Debit(accountId, decimal.Zero)
	require.NoError(t, err)
	_, err = s.Credit(accountId, decimal.Zero)
	require.NoError(t, err)

	acc, _ := s.Get(accountId)
	assert.True(t, acc.Balance.IsZero())
}

func TestCreditAbsentAccount(t *testing.T) {
	s := NewStore()

	_, err := s.Credit(accountId, dec(1000))

	var creditErr *CreditFailedError
	require.True(t, errors.As(err, &creditErr))
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCredit(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(1000))))

	acc, err := s.Credit(accountId, dec(500))

	require.NoError(t, err)
	assert.True(t, dec(1500).Equal(acc.Balance))

	stored, _ := s.Get(accountId)
	assert.True(t, decimal.RequireFromString("1500.0").Equal(stored.Balance))
}

func TestSnapshotsAreNotShared(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(100))))

	before, _ := s.Get(accountId)
	_, err := s.Credit(accountId, dec(1))
	require.NoError(t, err)

	assert.True(t, dec(100).Equal(before.Balance))
}

func TestClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(1))))

	s.Clear()

	_, ok := s.Get(accountId)
	assert.False(t, ok)
	assert.NoError(t, s.Create(New(accountId, dec(2))))
}

func TestConcurrentEqualDebitsNoLostUpdate(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := NewStore()
		require.NoError(t, s.Create(New(accountId, dec(120))))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func(j int) {
				defer wg.Done()
				_, errs[j] = s.Debit(accountId, dec(60))
			}(j)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		acc, _ := s.Get(accountId)
		require.True(t, acc.Balance.IsZero(), "balance=%s", acc.Balance)
	}
}

func TestConcurrentDebitsOnlySomeFit(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(New(accountId, dec(1000))))

	const workers = 100
	var (
		wg        sync.WaitGroup
		succeeded int64
		rejected  int64
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Debit(accountId, dec(30))
			if err == nil {
				atomic.AddInt64(&succeeded, 1)
				return
			}
			if KindOf(err) == KindInsufficientFunds {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(33), succeeded)
	assert.Equal(t, int64(workers-33), rejected)

	acc, _ := s.Get(accountId)
	assert.True(t, dec(1000-33*30).Equal(acc.Balance), "balance=%s", acc.Balance)
}

func TestConcurrentMixedUpdatesOnManyAccounts(t *testing.T) {
	s := NewStore()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, s.Create(New(id, dec(1000))))
	}

	const rounds = 250
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, _ = s.Credit(id, dec(2))
			}
		}(id)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, _ = s.Debit(id, dec(1))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		acc, _ := s.Get(id)
		assert.True(t, dec(1000+rounds).Equal(acc.Balance), "%s balance=%s", id, acc.Balance)
		assert.False(t, acc.Balance.IsNegative())
	}
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "not_found", KindNotFound.String())
}
