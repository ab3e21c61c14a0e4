package session

import (
	"fmt"
	"strings"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/filter"
	"github.com/itsloashh/yards-app/internal/yards/geo"
)

type Screen string

const (
	ScreenBrowse  Screen = "browse"
	ScreenMap     Screen = "map"
	ScreenSaved   Screen = "saved"
	ScreenProfile Screen = "profile"
)

type Modal string

const (
	ModalNone        Modal = "none"
	ModalDetail      Modal = "detail"
	ModalAuth        Modal = "auth"
	ModalCreate      Modal = "create"
	ModalEditProfile Modal = "edit_profile"
)

type AuthMode string

const (
	AuthLogin  AuthMode = "login"
	AuthSignUp AuthMode = "signup"
)

const defaultRadius = 10

// State is the view state of one client: which screen and modal are open
// and the active filters. Radius is in miles.
type State struct {
	Screen          Screen   `json:"screen"`
	Modal           Modal    `json:"modal"`
	SelectedListing int64    `json:"selected_listing,omitempty"`
	AuthMode        AuthMode `json:"auth_mode"`
	Radius          int      `json:"radius"`
	Unit            geo.Unit `json:"unit"`
	Category        string   `json:"category"`
	Query           string   `json:"query"`
}

// DefaultState is the state of a fresh session.
func DefaultState() State {
	return State{
		Screen:   ScreenBrowse,
		Modal:    ModalNone,
		AuthMode: AuthLogin,
		Radius:   defaultRadius,
		Unit:     geo.Miles,
	}
}

// Criteria returns the pipeline configuration for s.
func (s State) Criteria() filter.Criteria {
	return filter.Criteria{
		Radius:   float64(s.Radius),
		Unit:     s.Unit,
		Category: s.Category,
		Query:    s.Query,
	}
}

// Patch holds optional state changes.
type Patch struct {
	Screen          *string `json:"screen,omitempty"`
	Modal           *string `json:"modal,omitempty"`
	SelectedListing *int64  `json:"selected_listing,omitempty"`
	AuthMode        *string `json:"auth_mode,omitempty"`
	Radius          *int    `json:"radius,omitempty"`
	Unit            *string `json:"unit,omitempty"`
	Category        *string `json:"category,omitempty"`
	Query           *string `json:"query,omitempty"`
}

// Apply validates p against s and returns the merged state. s is unchanged
// when an error is returned.
func (s State) Apply(p Patch) (State, error) {
	next := s
	if p.Screen != nil {
		switch sc := Screen(strings.TrimSpace(*p.Screen)); sc {
		case ScreenBrowse, ScreenMap, ScreenSaved, ScreenProfile:
			next.Screen = sc
		default:
			return s, fmt.Errorf("invalid screen %q", *p.Screen)
		}
	}
	if p.Modal != nil {
		switch m := Modal(strings.TrimSpace(*p.Modal)); m {
		case ModalNone, ModalDetail, ModalAuth, ModalCreate, ModalEditProfile:
			next.Modal = m
		case "":
			next.Modal = ModalNone
		default:
			return s, fmt.Errorf("invalid modal %q", *p.Modal)
		}
	}
	if p.SelectedListing != nil {
		next.SelectedListing = *p.SelectedListing
	}
	if next.Modal != ModalDetail {
		next.SelectedListing = 0
	}
	if p.AuthMode != nil {
		switch a := AuthMode(strings.TrimSpace(*p.AuthMode)); a {
		case AuthLogin, AuthSignUp:
			next.AuthMode = a
		default:
			return s, fmt.Errorf("invalid auth mode %q", *p.AuthMode)
		}
	}
	if p.Radius != nil {
		if !geo.ValidRadius(*p.Radius) {
			return s, fmt.Errorf("radius %d: %w", *p.Radius, models.ErrInvalidRadius)
		}
		next.Radius = *p.Radius
	}
	if p.Unit != nil {
		u, err := geo.ParseUnit(*p.Unit)
		if err != nil {
			return s, err
		}
		next.Unit = u
	}
	if p.Category != nil {
		next.Category = strings.TrimSpace(*p.Category)
	}
	if p.Query != nil {
		next.Query = *p.Query
	}
	return next, nil
}
