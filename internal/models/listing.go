package models

import "time"

type Seller struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Sales       int     `json:"sales"`
	Bio         string  `json:"bio"`
	Phone       string  `json:"phone"`
	AvatarColor string  `json:"avatar_color"`
}

// Listing is a single yard-sale posting.
type Listing struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Address      string     `json:"address"`
	Date         string     `json:"date"`
	Photos       []string   `json:"photos"`
	Tags         []string   `json:"tags"`
	Coords       Coordinate `json:"coords"`
	Seller       Seller     `json:"seller"`
	Saved        bool       `json:"saved"`
	LocationName string     `json:"location_name"`
	Seeded       bool       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Clone returns a copy that shares no slices with l.
func (l Listing) Clone() Listing {
	c := l
	c.Photos = append([]string(nil), l.Photos...)
	c.Tags = append([]string(nil), l.Tags...)
	return c
}

// HasTag reports an exact, case-sensitive tag match.
func (l Listing) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type CreateListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Date        string   `json:"date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Categories  []string `json:"categories"`
}
