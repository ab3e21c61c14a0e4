// Package seed produces the deterministic demo listings placed around an origin.
package seed

import (
	"fmt"

	"github.com/itsloashh/yards-app/internal/models"
)

// Count is the number of listings Generate returns.
const Count = 7

var streetNames = [Count]string{"Oak St", "Maple Ave", "Pine Rd", "Birch Ln", "Cedar Dr", "Elm Way", "Willow Ct"}

type template struct {
	title  string
	desc   string
	tags   []string
	dLat   float64
	dLng   float64
	seller models.Seller
}

var templates = [Count]template{
	{
		title: "Moving Sale — Everything Must Go!",
		desc:  "Furniture, electronics, kids toys, kitchen appliances, vintage records, and much more. 20+ years of treasures!",
		tags:  []string{"Furniture", "Electronics", "Kids"},
		dLat:  0.008,
		dLng:  0.005,
		seller: models.Seller{Name: "Martha J.", Rating: 4.8, Sales: 12, Bio: "Love finding new homes for old treasures!", AvatarColor: "#059669"},
	},
	{
		title: "Estate Sale — Antiques & Collectibles",
		desc:  "Beautiful antique furniture, fine china, crystal glassware, vintage jewelry, old books, and rare collectibles.",
		tags:  []string{"Antiques", "Jewelry", "Books"},
		dLat:  -0.012,
		dLng:  0.018,
		seller: models.Seller{Name: "Robert K.", Rating: 4.9, Sales: 8, Bio: "Collector for 30 years. Time to share.", AvatarColor: "#3b82f6"},
	},
	{
		title: "Baby & Kids Mega Sale",
		desc:  "Gently used baby gear, strollers, cribs, toys, clothes (newborn to size 8), books, and outdoor play equipment.",
		tags:  []string{"Baby", "Kids", "Toys"},
		dLat:  0.025,
		dLng:  -0.015,
		seller: models.Seller{Name: "Sarah M.", Rating: 4.7, Sales: 5, Bio: "Mom of 3 — outgrown everything!", AvatarColor: "#a855f7"},
	},
	{
		title: "Tools & Garage Cleanout",
		desc:  "Power tools, hand tools, lawn equipment, automotive supplies, workbenches, and miscellaneous garage items.",
		tags:  []string{"Tools", "Automotive", "Garden"},
		dLat:  -0.035,
		dLng:  -0.028,
		seller: models.Seller{Name: "Dave P.", Rating: 4.6, Sales: 3, AvatarColor: "#f59e0b"},
	},
	{
		title: "Vintage Vinyl & Music Gear",
		desc:  "Thousands of vinyl records, turntables, speakers, guitars, amps, and music memorabilia.",
		tags:  []string{"Music", "Vintage", "Electronics"},
		dLat:  0.055,
		dLng:  0.042,
		seller: models.Seller{Name: "Mike T.", Rating: 5.0, Sales: 15, Bio: "DJ & vinyl addict since '85", AvatarColor: "#6366f1"},
	},
	{
		title: "Designer Clothing & Accessories",
		desc:  "High-end designer clothing, handbags, shoes, and accessories. Most items 70-90% off retail!",
		tags:  []string{"Clothing", "Vintage", "Jewelry"},
		dLat:  -0.068,
		dLng:  0.055,
		seller: models.Seller{Name: "Lisa R.", Rating: 4.9, Sales: 22, Bio: "Fashion buyer downsizing my closet", AvatarColor: "#f43f5e"},
	},
	{
		title: "Outdoor & Camping Gear Sale",
		desc:  "Tents, sleeping bags, hiking gear, fishing equipment, kayaks, bikes, and more outdoor adventure gear.",
		tags:  []string{"Outdoor", "Sports"},
		dLat:  0.095,
		dLng:  -0.075,
		seller: models.Seller{Name: "Tom H.", Rating: 4.7, Sales: 9, AvatarColor: "#14b8a6"},
	},
}

// Generate returns the seed listings positioned at fixed offsets from origin.
// The result depends only on origin. Listing at index 1 starts saved.
func Generate(origin models.Coordinate) []models.Listing {
	photos := models.SalePhotos
	out := make([]models.Listing, 0, Count)
	for i, tpl := range templates {
		date := "Sat–Sun, 9am – 4pm"
		if i%2 == 0 {
			date = "Today, 8am – 2pm"
		}
		out = append(out, models.Listing{
			ID:          int64(i + 1),
			Title:       tpl.title,
			Description: tpl.desc,
			Address:     fmt.Sprintf("%d %s", 1234+i*111, streetNames[i]),
			Date:        date,
			Photos:      []string{photos[i%len(photos)], photos[(i+3)%len(photos)]},
			Tags:        append([]string(nil), tpl.tags...),
			Coords:      models.Coordinate{Lat: origin.Lat + tpl.dLat, Lng: origin.Lng + tpl.dLng},
			Seller:      tpl.seller,
			Saved:       i == 1,
			Seeded:      true,
		})
	}
	return out
}
