package directory

import (
	"time"
)

// Provider is the searchable entity: a health care provider with its nested child records.
//
// Providers are value objects. Every search produces fresh instances; nothing is shared with the
// loaded dataset or with other results.
type Provider struct {
	Contract     string      `json:"contract"`
	Name         string      `json:"name"`
	Network      string      `json:"network"`
	Type         string      `json:"type"`
	PhoneNumber  *string     `json:"phone_number"`
	Status       string      `json:"status"`
	Website      *string     `json:"website"`
	GoogleURL    string      `json:"google_url"`
	Rating       *float64    `json:"rating"` // nil means not yet rated
	TotalRatings int64       `json:"total_ratings"`
	Location     Location    `json:"location"`
	Specialties  []Specialty `json:"specialties"`
	Categories   []Category  `json:"categories"`
	Reviews      []Review    `json:"reviews"`
}

// PrimarySpecialty returns the specialty flagged as primary, if any.
func (p Provider) PrimarySpecialty() (Specialty, bool) {
	for _, s := range p.Specialties {
		if s.IsPrimary {
			return s, true
		}
	}

	return Specialty{}, false
}

// RatingOrZero returns the rating with "not yet rated" mapped to zero.
func (p Provider) RatingOrZero() float64 {
	if p.Rating == nil {
		return 0
	}

	return *p.Rating
}

// Location is the 1:1 address and coordinate record of a Provider.
type Location struct {
	Contract   string  `json:"contract"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Address    string  `json:"address"`
	PostalCode *string `json:"postal_code"`
	Country    string  `json:"country"`
	State      string  `json:"state"`
	City       string  `json:"city"`
}

// Specialty is a medical specialty tag of a Provider.
type Specialty struct {
	Contract  string `json:"contract"`
	Specialty string `json:"specialty"`
	IsPrimary bool   `json:"is_primary"`
}

// Category is a category tag of a Provider.
type Category struct {
	Contract string `json:"contract"`
	Category string `json:"category"`
}

// Review is a single user review of a Provider.
type Review struct {
	Contract       string    `json:"contract"`
	AuthorName     string    `json:"author_name"`
	AuthorPhotoURL *string   `json:"author_photo_url"`
	Rating         float64   `json:"rating"`
	Text           string    `json:"text"`
	Time           time.Time `json:"time"`
}
