package models

// Categories is the fixed tag list offered by the category filter.
var Categories = []string{
	"Furniture", "Electronics", "Kids", "Clothing", "Tools",
	"Books", "Antiques", "Kitchen", "Sports", "Garden", "Music", "Art",
	"Toys", "Baby", "Outdoor", "Vintage", "Jewelry", "Automotive",
}

// DefaultTag is used for listings created without any category.
const DefaultTag = "General"

type AvatarColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

var AvatarColors = []AvatarColor{
	{Name: "Emerald", Hex: "#059669"},
	{Name: "Blue", Hex: "#3b82f6"},
	{Name: "Purple", Hex: "#a855f7"},
	{Name: "Rose", Hex: "#f43f5e"},
	{Name: "Amber", Hex: "#f59e0b"},
	{Name: "Teal", Hex: "#14b8a6"},
	{Name: "Indigo", Hex: "#6366f1"},
	{Name: "Orange", Hex: "#f97316"},
}

// SalePhotos are the stock images attached to seeded and created listings.
var SalePhotos = []string{
	"https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1555041469-a586c61ea9bc?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1513519245088-0e12902e5a38?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1595428774223-ef52624120d2?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1566576912321-d58ddd7a6088?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1530124566582-a618bc2615dc?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1603048588665-791ca8aea617?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=400&h=300&fit=crop",
	"https://images.unsplash.com/photo-1504280390367-361c6d9f38f4?w=400&h=300&fit=crop",
}

// IsAvatarColor reports whether hex is one of the palette entries.
func IsAvatarColor(hex string) bool {
	for _, c := range AvatarColors {
		if c.Hex == hex {
			return true
		}
	}
	return false
}
