package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/search"
)

func rated(contract string, rating *float64) directory.Provider {
	return directory.Provider{Contract: contract, Name: contract, Rating: rating}
}

func ratingPtr(v float64) *float64 {
	return &v
}

func contractsOf(providers []directory.Provider) []string {
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Contract)
	}

	return out
}

func Test_SortProviders_ByRatingDescendingWithNilAsZero(t *testing.T) {
	// arrange
	providers := []directory.Provider{
		rated("first-nil", nil),
		rated("four-five", ratingPtr(4.5)),
		rated("two", ratingPtr(2.0)),
		rated("second-nil", nil),
	}

	// act
	search.SortProviders(providers, directory.SortByRating)

	// assert
	assert.Equal(t, []string{"four-five", "two", "first-nil", "second-nil"}, contractsOf(providers))
}

func Test_SortProviders_ZeroRatingTiesWithNil(t *testing.T) {
	// arrange
	providers := []directory.Provider{
		rated("nil", nil),
		rated("zero", ratingPtr(0)),
		rated("one", ratingPtr(1)),
	}

	// act
	search.SortProviders(providers, directory.SortByRating)

	// assert
	assert.Equal(t, []string{"one", "nil", "zero"}, contractsOf(providers))
}

func Test_SortProviders_ByNameIsLocaleAware(t *testing.T) {
	// arrange
	providers := []directory.Provider{
		{Contract: "3", Name: "Hospital Estrela"},
		{Contract: "1", Name: "Ágape Saúde"},
		{Contract: "4", Name: "clínica Lua"},
		{Contract: "2", Name: "Clínica Sol"},
		{Contract: "5", Name: "Bom Jesus"},
	}

	// act
	search.SortProviders(providers, directory.SortByName)

	// assert
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Ágape Saúde", "Bom Jesus", "clínica Lua", "Clínica Sol", "Hospital Estrela"}, names)
}

func Test_SortProviders_UnspecifiedKeepsOrder(t *testing.T) {
	// arrange
	providers := []directory.Provider{
		rated("b", ratingPtr(1)),
		rated("a", ratingPtr(5)),
		rated("c", nil),
	}

	// act
	search.SortProviders(providers, directory.SortUnspecified)

	// assert
	assert.Equal(t, []string{"b", "a", "c"}, contractsOf(providers))
}
