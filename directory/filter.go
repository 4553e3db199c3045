package directory

import (
	"slices"
	"strings"
)

/***** SortMode *****/

// SortMode selects the ordering applied after providers were assembled.
type SortMode int

const (
	// SortUnspecified keeps the assembly order, which is backend-native.
	SortUnspecified SortMode = iota

	// SortByName orders by provider name with locale-aware comparison.
	SortByName

	// SortByRating orders by rating descending, unrated providers count as zero.
	SortByRating
)

// ParseSortMode maps "name" and "rating" to their modes; everything else is SortUnspecified.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return SortByName
	case "rating":
		return SortByRating
	default:
		return SortUnspecified
	}
}

// String provides a string representation of SortMode for logging and debugging.
func (m SortMode) String() string {
	switch m {
	case SortByName:
		return "name"
	case SortByRating:
		return "rating"
	default:
		return "unspecified"
	}
}

/***** BoundingBox *****/

// BoundingBox is an inclusive latitude/longitude rectangle.
// Latitude and longitude are compared independently; no great-circle math is involved.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Contains reports whether the coordinate lies inside the box, borders included.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

/***** Filters *****/

// Filters is a sparse search specification; every field is independently optional.
// An empty Name or an empty tag slice means "absent", never "match nothing".
type Filters struct {
	Bounds      *BoundingBox
	Name        string
	Specialties []string
	Categories  []string
	Sort        SortMode
}

// HasBounds reports whether the bounding box filter is active.
func (f Filters) HasBounds() bool {
	return f.Bounds != nil
}

// HasName reports whether the name filter is active.
func (f Filters) HasName() bool {
	return strings.TrimSpace(f.Name) != ""
}

// HasSpecialties reports whether the specialty filter is active.
func (f Filters) HasSpecialties() bool {
	return len(sanitizeTags(f.Specialties)) > 0
}

// HasCategories reports whether the category filter is active.
func (f Filters) HasCategories() bool {
	return len(sanitizeTags(f.Categories)) > 0
}

// IsEmpty reports whether no selecting filter is active. Sort does not select.
func (f Filters) IsEmpty() bool {
	return !f.HasBounds() && !f.HasName() && !f.HasSpecialties() && !f.HasCategories()
}

// Sanitized returns a copy with a trimmed name and with cleaned tag lists:
// empty tags removed, duplicates removed, sorted.
func (f Filters) Sanitized() Filters {
	out := Filters{
		Name:        strings.TrimSpace(f.Name),
		Specialties: sanitizeTags(f.Specialties),
		Categories:  sanitizeTags(f.Categories),
		Sort:        f.Sort,
	}

	if f.Bounds != nil {
		b := *f.Bounds
		out.Bounds = &b
	}

	return out
}

func sanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		out = append(out, tag)
	}

	slices.Sort(out)

	return slices.Compact(out)
}

/***** FiltersBuilder *****/

// FiltersBuilder builds Filters fluently:
//
//	filters := directory.BuildFilters().
//		WithinBounds(directory.BoundingBox{South: -23.7, West: -46.8, North: -23.4, East: -46.4}).
//		NameContaining("clínica").
//		WithAnySpecialtyOf("Cardiologia").
//		SortedBy(directory.SortByRating).
//		Finalize()
type FiltersBuilder struct {
	filters Filters
}

// BuildFilters starts an empty FiltersBuilder. Finalizing it right away matches all operational providers.
func BuildFilters() *FiltersBuilder {
	return &FiltersBuilder{}
}

// WithinBounds restricts the search to a bounding box.
func (b *FiltersBuilder) WithinBounds(box BoundingBox) *FiltersBuilder {
	b.filters.Bounds = &box
	return b
}

// NameContaining restricts the search to names containing the substring.
func (b *FiltersBuilder) NameContaining(name string) *FiltersBuilder {
	b.filters.Name = name
	return b
}

// WithAnySpecialtyOf restricts the search to providers having at least one of the specialties.
func (b *FiltersBuilder) WithAnySpecialtyOf(specialty string, specialties ...string) *FiltersBuilder {
	b.filters.Specialties = append(b.filters.Specialties, specialty)
	b.filters.Specialties = append(b.filters.Specialties, specialties...)

	return b
}

// WithAnyCategoryOf restricts the search to providers having at least one of the categories.
func (b *FiltersBuilder) WithAnyCategoryOf(category string, categories ...string) *FiltersBuilder {
	b.filters.Categories = append(b.filters.Categories, category)
	b.filters.Categories = append(b.filters.Categories, categories...)

	return b
}

// SortedBy sets the sort mode.
func (b *FiltersBuilder) SortedBy(mode SortMode) *FiltersBuilder {
	b.filters.Sort = mode
	return b
}

// Finalize returns the sanitized Filters.
func (b *FiltersBuilder) Finalize() Filters {
	return b.filters.Sanitized()
}
