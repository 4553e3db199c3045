package search

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

// DefaultLanguage is the collation locale for name sorting; the dataset is Brazilian.
var DefaultLanguage = language.BrazilianPortuguese

// SortProviders sorts providers in place according to mode using DefaultLanguage.
//
// SortByName compares names with locale-aware collation. SortByRating orders by rating descending,
// counting unrated providers as zero. Both sorts are stable; SortUnspecified leaves the order alone.
func SortProviders(providers []directory.Provider, mode directory.SortMode) {
	sortProviders(providers, mode, DefaultLanguage)
}

func sortProviders(providers []directory.Provider, mode directory.SortMode, tag language.Tag) {
	switch mode {
	case directory.SortByName:
		// a Collator is not safe for concurrent use
		c := collate.New(tag)
		slices.SortStableFunc(providers, func(a, b directory.Provider) int {
			return c.CompareString(a.Name, b.Name)
		})

	case directory.SortByRating:
		slices.SortStableFunc(providers, func(a, b directory.Provider) int {
			return cmp.Compare(b.RatingOrZero(), a.RatingOrZero())
		})

	default:
		// assembly order
	}
}

// sortTags sorts tag values with locale-aware collation.
func sortTags(tags []string, tag language.Tag) {
	c := collate.New(tag)
	slices.SortStableFunc(tags, c.CompareString)
}
