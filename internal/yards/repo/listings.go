package repo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
)

const (
	// createdIDBase keeps created ids clear of the seed id range.
	createdIDBase = 1000
	defaultDate   = "TBD"
	sellerRating  = 5.0
	anonymousName = "You"
)

// DefaultCoords is used for a created listing when no location is known.
var DefaultCoords = models.Coordinate{Lat: 49.2827, Lng: -123.1207}

// Draft carries the create-form fields.
type Draft struct {
	Title       string
	Description string
	Address     string
	Date        string
	Tags        []string
	Coords      *models.Coordinate
	SellerName  string
}

// ListingsRepo is an in-memory, insertion-ordered listing collection.
type ListingsRepo struct {
	mu     sync.RWMutex
	items  []models.Listing
	nextID int64
	now    func() time.Time
}

// NewListingsRepo constructs an empty ListingsRepo.
func NewListingsRepo(now func() time.Time) *ListingsRepo {
	if now == nil {
		now = time.Now
	}
	return &ListingsRepo{nextID: createdIDBase, now: now}
}

func (r *ListingsRepo) indexOf(id int64) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the listing with id.
func (r *ListingsRepo) Get(id int64) (models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return models.Listing{}, fmt.Errorf("listing %d: %w", id, models.ErrListingNotFound)
	}
	return r.items[i].Clone(), nil
}

// List returns every listing in insertion order.
func (r *ListingsRepo) List() []models.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Listing, len(r.items))
	for i, l := range r.items {
		out[i] = l.Clone()
	}
	return out
}

// Saved returns saved listings in insertion order.
func (r *ListingsRepo) Saved() []models.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Listing
	for _, l := range r.items {
		if l.Saved {
			out = append(out, l.Clone())
		}
	}
	return out
}

// Len returns the number of stored listings.
func (r *ListingsRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// ToggleSaved flips the saved flag and returns the updated listing.
func (r *ListingsRepo) ToggleSaved(id int64) (models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return models.Listing{}, fmt.Errorf("listing %d: %w", id, models.ErrListingNotFound)
	}
	r.items[i].Saved = !r.items[i].Saved
	return r.items[i].Clone(), nil
}

// Create appends a listing built from d. A draft without title or
// description is ignored and ok is false.
func (r *ListingsRepo) Create(d Draft) (models.Listing, bool) {
	title := strings.TrimSpace(d.Title)
	desc := strings.TrimSpace(d.Description)
	if title == "" || desc == "" {
		return models.Listing{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID

	tags := append([]string(nil), d.Tags...)
	if len(tags) == 0 {
		tags = []string{models.DefaultTag}
	}
	date := strings.TrimSpace(d.Date)
	if date == "" {
		date = defaultDate
	}
	coords := DefaultCoords
	if d.Coords != nil {
		coords = *d.Coords
	}
	seller := strings.TrimSpace(d.SellerName)
	if seller == "" {
		seller = anonymousName
	}

	l := models.Listing{
		ID:          id,
		Title:       title,
		Description: desc,
		Address:     strings.TrimSpace(d.Address),
		Date:        date,
		Photos:      []string{models.SalePhotos[int(id)%len(models.SalePhotos)]},
		Tags:        tags,
		Coords:      coords,
		Seller:      models.Seller{Name: seller, Rating: sellerRating},
		CreatedAt:   r.now(),
	}
	r.items = append(r.items, l)
	return l.Clone(), true
}

// ReplaceSeeded swaps the generator-produced subset for listings and keeps
// user-created listings after them in their original order.
func (r *ListingsRepo) ReplaceSeeded(listings []models.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.Listing, 0, len(listings)+len(r.items))
	for _, l := range listings {
		l = l.Clone()
		l.Seeded = true
		next = append(next, l)
	}
	for _, l := range r.items {
		if !l.Seeded {
			next = append(next, l)
		}
	}
	r.items = next
}

// ReplaceAll discards the whole collection, created listings included.
func (r *ListingsRepo) ReplaceAll(listings []models.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		next = append(next, l.Clone())
	}
	r.items = next
}

// FormatSchedule renders the create-form date and times, for example
// "Sat, Oct 24, 8am – 2pm". An empty date yields "TBD".
func FormatSchedule(date, start, end string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return defaultDate, nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	out := day.Format("Mon, Jan 2")
	if s := strings.TrimSpace(start); s != "" {
		out += ", " + s
	}
	if e := strings.TrimSpace(end); e != "" {
		out += " – " + e
	}
	return out, nil
}
