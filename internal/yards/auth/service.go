// Package auth implements sign-up, login and profile edits over the
// in-memory account store. Passwords are kept as bcrypt hashes.
package auth

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/repo"
)

const (
	minPasswordLen = 8

	msgNameRequired     = "Name is required"
	msgEmailRequired    = "Email is required"
	msgEmailInvalid     = "Invalid email"
	msgEmailTaken       = "Account already exists"
	msgPasswordShort    = "At least 8 characters"
	msgPasswordLong     = "At most 72 bytes"
	msgPasswordMismatch = "Passwords don't match"
	msgLoginEmail       = "Email required"
	msgLoginPassword    = "Password required"
	msgColorInvalid     = "Unknown avatar color"

	// MsgInvalidCredentials is the only message a failed login shows.
	MsgInvalidCredentials = "Invalid email or password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Service owns account credentials.
type Service struct {
	accounts  *repo.AccountsRepo
	cost      int
	now       func() time.Time
	dummyHash []byte
}

// NewService constructs a Service; cost <= 0 selects bcrypt.DefaultCost.
func NewService(accounts *repo.AccountsRepo, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("yards-dummy-password"), cost)
	return &Service{accounts: accounts, cost: cost, now: time.Now, dummyHash: dummy}
}

// SignUp validates req and creates the account.
func (s *Service) SignUp(req models.SignUpRequest) (models.Account, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	errs := FieldErrors{}
	if name == "" {
		errs["name"] = msgNameRequired
	}
	switch {
	case email == "":
		errs["email"] = msgEmailRequired
	case !emailPattern.MatchString(email):
		errs["email"] = msgEmailInvalid
	case s.accounts.EmailTaken(email):
		errs["email"] = msgEmailTaken
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		errs["password"] = msgPasswordShort
	} else if len(req.Password) > 72 {
		errs["password"] = msgPasswordLong
	}
	if req.Password != req.Confirm {
		errs["confirm"] = msgPasswordMismatch
	}
	if len(errs) > 0 {
		return models.Account{}, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return models.Account{}, err
	}

	id := uuid.New()
	acc := models.Account{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
		AvatarColor:  models.AvatarColors[int(id[0])%len(models.AvatarColors)].Hex,
	}
	if err := s.accounts.Insert(acc); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return models.Account{}, FieldErrors{"email": msgEmailTaken}
		}
		return models.Account{}, err
	}
	return acc, nil
}

// Login checks credentials. Any mismatch yields models.ErrInvalidCredentials.
func (s *Service) Login(req models.LoginRequest) (models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	errs := FieldErrors{}
	if email == "" {
		errs["email"] = msgLoginEmail
	}
	if req.Password == "" {
		errs["password"] = msgLoginPassword
	}
	if len(errs) > 0 {
		return models.Account{}, errs
	}

	acc, err := s.accounts.GetByEmail(email)
	if err != nil {
		// keep the timing of unknown emails close to wrong passwords
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return models.Account{}, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)); err != nil {
		return models.Account{}, models.ErrInvalidCredentials
	}
	return acc, nil
}

// Get returns the account with id.
func (s *Service) Get(id string) (models.Account, error) {
	return s.accounts.GetByID(id)
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Service) UpdateProfile(id string, upd models.ProfileUpdate) (models.Account, error) {
	return s.accounts.Mutate(id, func(acc *models.Account) error {
		errs := FieldErrors{}
		name := acc.Name
		if upd.Name != nil {
			if name = strings.TrimSpace(*upd.Name); name == "" {
				errs["name"] = msgNameRequired
			}
		}
		color := acc.AvatarColor
		if upd.AvatarColor != nil {
			if color = *upd.AvatarColor; !models.IsAvatarColor(color) {
				errs["avatar_color"] = msgColorInvalid
			}
		}
		if len(errs) > 0 {
			return errs
		}

		acc.Name = name
		acc.AvatarColor = color
		if upd.Bio != nil {
			acc.Bio = strings.TrimSpace(*upd.Bio)
		}
		if upd.Phone != nil {
			acc.Phone = strings.TrimSpace(*upd.Phone)
		}
		return nil
	})
}

// RecordSale bumps the posted-sales counter of account id.
func (s *Service) RecordSale(id string) (models.Account, error) {
	return s.accounts.Mutate(id, func(acc *models.Account) error {
		acc.SalesPosted++
		return nil
	})
}
