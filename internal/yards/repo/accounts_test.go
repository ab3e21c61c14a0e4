package repo

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsloashh/yards-app/internal/models"
)

func TestAccountsInsertAndLookup(t *testing.T) {
	r := NewAccountsRepo()
	require.NoError(t, r.Insert(models.Account{ID: "a1", Name: "Ann", Email: " Ann@Example.com "}))

	got, err := r.GetByEmail("ANN@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.True(t, r.EmailTaken("ann@EXAMPLE.com"))

	err = r.Insert(models.Account{ID: "a2", Email: "ANN@example.com"})
	assert.True(t, errors.Is(err, models.ErrDuplicateEmail))
	assert.Equal(t, 1, r.Len())
}

func TestAccountsMutateKeepsCredentials(t *testing.T) {
	r := NewAccountsRepo()
	require.NoError(t, r.Insert(models.Account{ID: "a1", Name: "Ann", Email: "ann@example.com", PasswordHash: []byte("hash")}))

	got, err := r.Mutate("a1", func(a *models.Account) error {
		a.Name = "Annie"
		a.Bio = "hi"
		a.Email = "evil@example.com"
		a.PasswordHash = nil
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)

	stored, err := r.GetByID("a1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
	assert.Equal(t, "hi", stored.Bio)
	assert.Equal(t, "ann@example.com", stored.Email)
	assert.Equal(t, []byte("hash"), stored.PasswordHash)

	_, err = r.Mutate("missing", func(*models.Account) error { return nil })
	assert.True(t, errors.Is(err, models.ErrAccountNotFound))
}

func TestAccountsMutateErrorLeavesAccount(t *testing.T) {
	r := NewAccountsRepo()
	require.NoError(t, r.Insert(models.Account{ID: "a1", Name: "Ann", Email: "ann@example.com"}))

	boom := errors.New("rejected")
	_, err := r.Mutate("a1", func(a *models.Account) error {
		a.Name = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := r.GetByID("a1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestAccountsMutateIsAtomic(t *testing.T) {
	r := NewAccountsRepo()
	require.NoError(t, r.Insert(models.Account{ID: "a1", Email: "ann@example.com"}))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Mutate("a1", func(a *models.Account) error {
				a.SalesPosted++
				return nil
			})
		}()
		go func(i int) {
			defer wg.Done()
			_, _ = r.Mutate("a1", func(a *models.Account) error {
				a.Bio = fmt.Sprintf("bio %d", i)
				return nil
			})
		}(i)
	}
	wg.Wait()

	got, err := r.GetByID("a1")
	require.NoError(t, err)
	assert.Equal(t, workers, got.SalesPosted)
	assert.NotEmpty(t, got.Bio)
}
