package search_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/search"
	. "github.com/AntonStoeckl/provider-directory-go/testutil/helper"
)

func givenDirectory(t *testing.T, providers []directory.Provider, options ...search.Option) *search.Directory {
	t.Helper()

	wrapper := CreateWrapperWithTestConfig(t, GivenSnapshotStore(t, providers...))

	d, err := search.New(wrapper.GetBackend(), options...)
	require.NoError(t, err, "error in arranging test data")

	return d
}

type failingDB struct {
	err error
}

func (db failingDB) Query(context.Context, directory.Statement) (directory.Rows, error) {
	return nil, db.err
}

func (db failingDB) PaginatedQuery(context.Context, directory.Statement, int, int) (directory.Rows, error) {
	return nil, db.err
}

type transitionRecorder struct {
	mu          sync.Mutex
	transitions []search.Transition
}

func (r *transitionRecorder) observe(_ context.Context, t search.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions = append(r.transitions, t)
}

func (r *transitionRecorder) targets() []search.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]search.State, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t.To)
	}

	return out
}

func Test_Search_ScenarioWithOperationalAndClosedProvider(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, ScenarioProviders())

	testCases := []struct {
		name     string
		filters  directory.Filters
		expected []string
	}{
		{
			name:     "no filters returns only operational providers",
			filters:  directory.BuildFilters().Finalize(),
			expected: []string{ContractSol},
		},
		{
			name:     "name of a closed provider returns nothing",
			filters:  directory.BuildFilters().NameContaining("luna").Finalize(),
			expected: []string{},
		},
		{
			name:     "specialty filter",
			filters:  directory.BuildFilters().WithAnySpecialtyOf("Cardiologia").Finalize(),
			expected: []string{ContractSol},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			providers, err := d.Search(ctx, tc.filters)

			// assert
			require.NoError(t, err)
			assert.NotNil(t, providers)
			assert.Equal(t, tc.expected, contractsOf(providers))
		})
	}
}

func Test_Search_Filters(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())

	testCases := []struct {
		name     string
		filters  directory.Filters
		expected []string
	}{
		{
			name:     "no filters drops closed and unlocated providers",
			filters:  directory.BuildFilters().Finalize(),
			expected: []string{ContractSol, ContractEstrela, ContractAgape, ContractBomJes},
		},
		{
			name:     "bounding box",
			filters:  directory.BuildFilters().WithinBounds(SaoPauloBounds).Finalize(),
			expected: []string{ContractSol, ContractEstrela},
		},
		{
			name:     "inverted bounding box matches nothing",
			filters:  directory.BuildFilters().WithinBounds(directory.BoundingBox{South: -23.4, West: -46.4, North: -23.7, East: -46.8}).Finalize(),
			expected: []string{},
		},
		{
			name:     "name substring",
			filters:  directory.BuildFilters().NameContaining("estrela").Finalize(),
			expected: []string{ContractEstrela},
		},
		{
			name:     "name with accent",
			filters:  directory.BuildFilters().NameContaining("Saúde").Finalize(),
			expected: []string{ContractAgape},
		},
		{
			name:     "percent sign in name is literal",
			filters:  directory.BuildFilters().NameContaining("%").Finalize(),
			expected: []string{},
		},
		{
			name:     "underscore in name is literal",
			filters:  directory.BuildFilters().NameContaining("Cl_nica").Finalize(),
			expected: []string{},
		},
		{
			name:     "any of the specialties",
			filters:  directory.BuildFilters().WithAnySpecialtyOf("Cardiologia", "Neurologia").Finalize(),
			expected: []string{ContractSol, ContractEstrela, ContractBomJes},
		},
		{
			name:     "any of the categories",
			filters:  directory.BuildFilters().WithAnyCategoryOf("Clínica").Finalize(),
			expected: []string{ContractSol, ContractAgape},
		},
		{
			name: "all filters combine with AND",
			filters: directory.BuildFilters().
				WithinBounds(SaoPauloBounds).
				WithAnySpecialtyOf("Cardiologia").
				WithAnyCategoryOf("Hospital").
				Finalize(),
			expected: []string{ContractEstrela},
		},
		{
			name:     "unknown specialty",
			filters:  directory.BuildFilters().WithAnySpecialtyOf("Astrologia").Finalize(),
			expected: []string{},
		},
		{
			name:     "injection attempt is treated as a literal",
			filters:  directory.BuildFilters().NameContaining("' OR 1=1 --").Finalize(),
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			providers, err := d.Search(ctx, tc.filters)

			// assert
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, contractsOf(providers))
		})
	}
}

func Test_Search_AssemblesNestedRecords(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())
	expected := DirectoryProviders()[0]

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().NameContaining("Sol").Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, expected, providers[0])
}

func Test_Search_ProvidersWithoutChildrenHaveEmptyCollections(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().NameContaining("Estrela").Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.NotNil(t, providers[0].Reviews)
	assert.Empty(t, providers[0].Reviews)
	assert.Nil(t, providers[0].Rating)
}

func Test_Search_KeepsASinglePrimarySpecialty(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().WithAnySpecialtyOf("Geriatria").Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, providers, 1)
	require.Len(t, providers[0].Specialties, 2)

	primaries := 0
	for _, s := range providers[0].Specialties {
		if s.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)

	primary, ok := providers[0].PrimarySpecialty()
	assert.True(t, ok)
	assert.Equal(t, "Neurologia", primary.Specialty)
}

func Test_Search_SortsByRating(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().SortedBy(directory.SortByRating).Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, providers, 4)

	contracts := contractsOf(providers)
	assert.Equal(t, []string{ContractSol, ContractAgape}, contracts[:2])
	assert.ElementsMatch(t, []string{ContractEstrela, ContractBomJes}, contracts[2:])
}

func Test_Search_SortsByName(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, DirectoryProviders())

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().SortedBy(directory.SortByName).Finalize())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{ContractAgape, ContractBomJes, ContractSol, ContractEstrela}, contractsOf(providers))
}

func Test_Search_ReturnsEquivalentProvidersOnAllBackends(t *testing.T) {
	// setup
	ctx := context.Background()
	store := GivenSnapshotStore(t, DirectoryProviders()...)
	filters := directory.BuildFilters().WithinBounds(SaoPauloBounds).SortedBy(directory.SortByName).Finalize()

	reference, err := search.New(CreateWrapper(t, VariantSnapshot, store).GetBackend())
	require.NoError(t, err)

	expected, err := reference.Search(ctx, filters)
	require.NoError(t, err)
	require.Len(t, expected, 2)

	for _, variant := range AllVariants {
		t.Run(variant, func(t *testing.T) {
			// arrange
			d, newErr := search.New(CreateWrapper(t, variant, store).GetBackend())
			require.NoError(t, newErr)

			// act
			providers, searchErr := d.Search(ctx, filters)

			// assert
			require.NoError(t, searchErr)
			assert.Equal(t, expected, providers)
		})
	}
}

func Test_Search_ChunksLargeKeySets(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, NumberedProviders(30), search.WithChunkSize(7))

	// act
	providers, err := d.Search(ctx, directory.BuildFilters().SortedBy(directory.SortByName).Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, providers, 30)
	assert.Equal(t, "Provider 00", providers[0].Name)
	assert.Equal(t, "Provider 29", providers[29].Name)
}

func Test_SearchPage(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, NumberedProviders(25))

	// act
	second, err := d.SearchPage(ctx, directory.BuildFilters().SortedBy(directory.SortByName).Finalize(), 1, 10)
	require.NoError(t, err)

	third, err := d.SearchPage(ctx, directory.BuildFilters().Finalize(), 2, 10)
	require.NoError(t, err)

	beyond, err := d.SearchPage(ctx, directory.BuildFilters().Finalize(), 5, 10)
	require.NoError(t, err)

	// assert
	require.Len(t, second, 10)
	assert.Equal(t, "P010", second[0].Contract)
	assert.Equal(t, "P019", second[9].Contract)
	assert.Len(t, third, 5)
	assert.Empty(t, beyond)
}

func Test_SearchPage_RejectsInvalidPage(t *testing.T) {
	// setup
	ctx := context.Background()
	d := givenDirectory(t, NumberedProviders(3))

	// act
	_, err := d.SearchPage(ctx, directory.BuildFilters().Finalize(), 0, 0)

	// assert
	assert.ErrorIs(t, err, directory.ErrInvalidPage)
}

func Test_ListDistinct(t *testing.T) {
	// setup
	ctx := context.Background()
	providers := append(DirectoryProviders(), directory.Provider{
		Contract:    "VAZIO-007",
		Name:        "Sem Especialidade",
		Status:      directory.StatusOperational,
		Specialties: []directory.Specialty{{Contract: "VAZIO-007", Specialty: ""}},
		Categories:  []directory.Category{{Contract: "VAZIO-007", Category: ""}},
	})
	d := givenDirectory(t, providers)

	// act
	specialties, err := d.ListDistinctSpecialties(ctx)
	require.NoError(t, err)

	categories, err := d.ListDistinctCategories(ctx)
	require.NoError(t, err)

	// assert
	assert.Equal(t,
		[]string{"Cardiologia", "Dermatologia", "Geriatria", "Neurologia", "Ortopedia", "Pediatria"},
		specialties,
	)
	assert.Equal(t, []string{"Clínica", "Hospital", "Laboratório"}, categories)
}

func Test_ListDistinct_PropagatesErrors(t *testing.T) {
	// setup
	queryErr := errors.Join(directory.ErrQueryFailed, directory.ErrEngineFailed)
	d, err := search.New(failingDB{err: queryErr})
	require.NoError(t, err)

	// act
	_, listErr := d.ListDistinctCategories(context.Background())

	// assert
	assert.Same(t, queryErr, listErr)
}

func Test_Search_ReportsStateTransitions(t *testing.T) {
	// setup
	ctx := context.Background()
	recorder := &transitionRecorder{}
	d := givenDirectory(t, DirectoryProviders(), search.WithStateObserver(recorder.observe))

	// act
	_, err := d.Search(ctx, directory.BuildFilters().Finalize())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []search.State{
		search.StateKeysCompiled,
		search.StateKeysFetched,
		search.StateChildrenFetched,
		search.StateAssembled,
		search.StateSorted,
	}, recorder.targets())

	ids := map[string]struct{}{}
	for _, tr := range recorder.transitions {
		ids[tr.SearchID] = struct{}{}
		assert.NoError(t, tr.Err)
	}
	assert.Len(t, ids, 1)
}

func Test_Search_FailureTransitionCarriesTheReturnedError(t *testing.T) {
	// setup
	queryErr := errors.Join(directory.ErrQueryFailed, directory.ErrEngineFailed, errors.New("disk I/O error"))
	recorder := &transitionRecorder{}

	d, err := search.New(failingDB{err: queryErr}, search.WithStateObserver(recorder.observe))
	require.NoError(t, err)

	// act
	providers, searchErr := d.Search(context.Background(), directory.BuildFilters().Finalize())

	// assert
	assert.Nil(t, providers)
	assert.Same(t, queryErr, searchErr)
	assert.Equal(t, []search.State{search.StateKeysCompiled, search.StateFailed}, recorder.targets())

	last := recorder.transitions[len(recorder.transitions)-1]
	assert.Equal(t, search.StateKeysCompiled, last.From)
	assert.Same(t, queryErr, last.Err)
	assert.Equal(t, "failed", last.To.String())
}

func Test_Search_Logging(t *testing.T) {
	// setup
	ctx := context.Background()
	spy := NewLogHandlerSpy(false)
	d := givenDirectory(t, DirectoryProviders(), search.WithLogger(slog.New(spy)))

	// act
	_, err := d.Search(ctx, directory.BuildFilters().SortedBy(directory.SortByRating).Finalize())

	// assert
	require.NoError(t, err)
	assert.True(t, spy.HasInfoLogWithMessage("search completed").
		WithDurationMS().
		WithAttribute("sort", "rating").
		WithAttribute("provider_count", "4").
		Assert())
}

func Test_Search_LogsFailures(t *testing.T) {
	// setup
	spy := NewLogHandlerSpy(false)
	d, err := search.New(failingDB{err: directory.ErrBackendClosed}, search.WithLogger(slog.New(spy)))
	require.NoError(t, err)

	// act
	_, searchErr := d.Search(context.Background(), directory.BuildFilters().Finalize())

	// assert
	assert.ErrorIs(t, searchErr, directory.ErrBackendClosed)
	assert.True(t, spy.HasErrorLogWithMessage("search failed").
		WithAttribute("error", directory.ErrBackendClosed.Error()).
		Assert())
}

func Test_New_RejectsInvalidOptions(t *testing.T) {
	testCases := []struct {
		name    string
		db      directory.DB
		options []search.Option
	}{
		{name: "nil database", db: nil},
		{name: "zero chunk size", db: failingDB{}, options: []search.Option{search.WithChunkSize(0)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			d, err := search.New(tc.db, tc.options...)

			// assert
			assert.Nil(t, d)
			assert.ErrorIs(t, err, directory.ErrInvalidOption)
		})
	}
}

func Test_New_AcceptsLanguage(t *testing.T) {
	// act
	d, err := search.New(failingDB{}, search.WithLanguage(language.English))

	// assert
	require.NoError(t, err)
	assert.NotNil(t, d)
}
