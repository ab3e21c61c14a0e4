package repo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/itsloashh/yards-app/internal/models"
)

// AccountsRepo stores accounts in memory, unique by lowercased email.
type AccountsRepo struct {
	mu      sync.RWMutex
	byID    map[string]models.Account
	byEmail map[string]string
}

// NewAccountsRepo constructs an empty AccountsRepo.
func NewAccountsRepo() *AccountsRepo {
	return &AccountsRepo{
		byID:    make(map[string]models.Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailTaken reports whether an account uses email, ignoring case.
func (r *AccountsRepo) EmailTaken(email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[normalizeEmail(email)]
	return ok
}

// Insert adds a. The email uniqueness check and the insert are atomic.
func (r *AccountsRepo) Insert(a models.Account) error {
	key := normalizeEmail(a.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return models.ErrDuplicateEmail
	}
	a.Email = key
	r.byID[a.ID] = a
	r.byEmail[key] = a.ID
	return nil
}

// GetByID returns the account with id.
func (r *AccountsRepo) GetByID(id string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %s: %w", id, models.ErrAccountNotFound)
	}
	return a, nil
}

// GetByEmail looks an account up by email, ignoring case.
func (r *AccountsRepo) GetByEmail(email string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return r.byID[id], nil
}

// Mutate applies fn to the stored account under the write lock and saves the
// result. Nothing is saved when fn fails. Email and password hash are kept.
func (r *AccountsRepo) Mutate(id string, fn func(*models.Account) error) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %s: %w", id, models.ErrAccountNotFound)
	}
	next := cur
	if err := fn(&next); err != nil {
		return models.Account{}, err
	}
	next.ID = cur.ID
	next.Email = cur.Email
	next.PasswordHash = cur.PasswordHash
	r.byID[id] = next
	return next, nil
}

// Len returns the number of accounts.
func (r *AccountsRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
