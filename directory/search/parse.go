package search

import (
	"time"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// Row parsers return false for rows missing a required field; such rows are skipped silently.

func parseProvider(row directory.Row) (directory.Provider, bool) {
	contract, ok := row.Text("contract")
	if !ok || contract == "" {
		return directory.Provider{}, false
	}

	name, ok := row.Text("name")
	if !ok {
		return directory.Provider{}, false
	}

	status, ok := row.Text("status")
	if !ok {
		return directory.Provider{}, false
	}

	totalRatings, _ := row.Int("total_ratings")
	if totalRatings < 0 {
		totalRatings = 0
	}

	return directory.Provider{
		Contract:     contract,
		Name:         name,
		Network:      row.TextOrEmpty("network"),
		Type:         row.TextOrEmpty("type"),
		PhoneNumber:  row.NullText("phone_number"),
		Status:       status,
		Website:      row.NullText("website"),
		GoogleURL:    row.TextOrEmpty("google_url"),
		Rating:       row.NullFloat("rating"),
		TotalRatings: totalRatings,
		Specialties:  []directory.Specialty{},
		Categories:   []directory.Category{},
		Reviews:      []directory.Review{},
	}, true
}

func parseLocation(row directory.Row) (directory.Location, bool) {
	contract, ok := row.Text("contract")
	if !ok {
		return directory.Location{}, false
	}

	lat, ok := row.Float("lat")
	if !ok {
		return directory.Location{}, false
	}

	lng, ok := row.Float("lng")
	if !ok {
		return directory.Location{}, false
	}

	return directory.Location{
		Contract:   contract,
		Lat:        lat,
		Lng:        lng,
		Address:    row.TextOrEmpty("address"),
		PostalCode: row.NullText("postal_code"),
		Country:    row.TextOrEmpty("country"),
		State:      row.TextOrEmpty("state"),
		City:       row.TextOrEmpty("city"),
	}, true
}

func parseSpecialty(row directory.Row) (directory.Specialty, bool) {
	contract, ok := row.Text("contract")
	if !ok {
		return directory.Specialty{}, false
	}

	specialty, ok := row.Text("specialty")
	if !ok {
		return directory.Specialty{}, false
	}

	isPrimary, _ := row.Bool("is_primary")

	return directory.Specialty{Contract: contract, Specialty: specialty, IsPrimary: isPrimary}, true
}

func parseCategory(row directory.Row) (directory.Category, bool) {
	contract, ok := row.Text("contract")
	if !ok {
		return directory.Category{}, false
	}

	category, ok := row.Text("category")
	if !ok {
		return directory.Category{}, false
	}

	return directory.Category{Contract: contract, Category: category}, true
}

func parseReview(row directory.Row) (directory.Review, bool) {
	contract, ok := row.Text("contract")
	if !ok {
		return directory.Review{}, false
	}

	rating, ok := row.Float("rating")
	if !ok {
		return directory.Review{}, false
	}

	millis, ok := row.Int("time")
	if !ok {
		return directory.Review{}, false
	}

	return directory.Review{
		Contract:       contract,
		AuthorName:     row.TextOrEmpty("author_name"),
		AuthorPhotoURL: row.NullText("author_photo_url"),
		Rating:         rating,
		Text:           row.TextOrEmpty("text"),
		Time:           time.UnixMilli(millis).UTC(),
	}, true
}

// groupRows parses rows and groups the parsed values by contract, keeping row order within a group.
func groupRows[T any](rows directory.Rows, parse func(directory.Row) (T, bool), contractOf func(T) string) map[string][]T {
	grouped := make(map[string][]T)

	for _, row := range rows {
		v, ok := parse(row)
		if !ok {
			continue
		}

		key := contractOf(v)
		grouped[key] = append(grouped[key], v)
	}

	return grouped
}

// keepSinglePrimary demotes every primary specialty after the first one.
func keepSinglePrimary(specialties []directory.Specialty) {
	seen := false

	for i := range specialties {
		if !specialties[i].IsPrimary {
			continue
		}

		if seen {
			specialties[i].IsPrimary = false
		}
		seen = true
	}
}
