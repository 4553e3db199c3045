package httpapi_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
	"github.com/AntonStoeckl/provider-directory-go/directory/search"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
	"github.com/AntonStoeckl/provider-directory-go/internal/httpapi"
	. "github.com/AntonStoeckl/provider-directory-go/testutil/helper"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type providersResponse struct {
	Providers []directory.Provider `json:"providers"`
	Count     int                  `json:"count"`
	Page      *int                 `json:"page"`
	Size      *int                 `json:"size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func givenRouter(t *testing.T, options ...httpapi.Option) *gin.Engine {
	t.Helper()

	store := GivenSnapshotStore(t, DirectoryProviders()...)
	backend := CreateWrapperWithTestConfig(t, store).GetBackend()

	d, err := search.New(backend)
	require.NoError(t, err, "error in arranging test data")

	options = append(options, httpapi.WithSnapshotExporter(func(ctx context.Context) ([]byte, error) {
		return sqliteengine.ExportCompressedSnapshot(ctx, store, RawSnapshotName)
	}))

	h, err := httpapi.NewHandler(d, options...)
	require.NoError(t, err, "error in arranging test data")

	return h.Router()
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))

	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, jsoniter.Unmarshal(recorder.Body.Bytes(), &out), recorder.Body.String())

	return out
}

func contracts(providers []directory.Provider) []string {
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Contract)
	}

	return out
}

func Test_Providers(t *testing.T) {
	// setup
	router := givenRouter(t)

	testCases := []struct {
		name     string
		target   string
		expected []string
	}{
		{name: "all operational", target: "/providers?sort=name", expected: []string{ContractAgape, ContractBomJes, ContractSol, ContractEstrela}},
		{name: "bounding box", target: "/providers?bbox=-23.70,-46.80,-23.40,-46.40&sort=name", expected: []string{ContractSol, ContractEstrela}},
		{name: "name", target: "/providers?name=estrela", expected: []string{ContractEstrela}},
		{name: "repeated specialty", target: "/providers?specialty=Neurologia&specialty=Dermatologia&sort=name", expected: []string{ContractAgape, ContractBomJes}},
		{name: "comma separated categories", target: "/providers?category=Hospital,Laborat%C3%B3rio&sort=name", expected: []string{ContractAgape, ContractBomJes, ContractEstrela}},
		{name: "rating sort", target: "/providers?category=Cl%C3%ADnica&sort=rating", expected: []string{ContractSol, ContractAgape}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			recorder := get(router, tc.target)

			// assert
			require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
			body := decode[providersResponse](t, recorder)
			assert.Equal(t, tc.expected, contracts(body.Providers))
			assert.Equal(t, len(tc.expected), body.Count)
			assert.Nil(t, body.Page)
		})
	}
}

func Test_Providers_RendersNestedRecords(t *testing.T) {
	// setup
	router := givenRouter(t)

	// act
	recorder := get(router, "/providers?name=Sol")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))

	body := decode[providersResponse](t, recorder)
	require.Len(t, body.Providers, 1)
	assert.Equal(t, DirectoryProviders()[0], body.Providers[0])
}

func Test_Providers_Paged(t *testing.T) {
	// setup
	router := givenRouter(t)

	// act
	recorder := get(router, "/providers?page=1&size=2")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	body := decode[providersResponse](t, recorder)
	require.NotNil(t, body.Page)
	require.NotNil(t, body.Size)
	assert.Equal(t, 1, *body.Page)
	assert.Equal(t, 2, *body.Size)
	assert.LessOrEqual(t, body.Count, 2)
}

func Test_Providers_RejectsBadParameters(t *testing.T) {
	// setup
	router := givenRouter(t, httpapi.WithPageSizes(10, 50))

	for _, target := range []string{
		"/providers?bbox=1,2,3",
		"/providers?bbox=a,b,c,d",
		"/providers?page=-1",
		"/providers?page=x",
		"/providers?size=0",
		"/providers?size=51",
		"/providers?page=922337203685477581&size=10",
	} {
		t.Run(target, func(t *testing.T) {
			// act
			recorder := get(router, target)

			// assert
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.NotEmpty(t, decode[errorResponse](t, recorder).Error)
		})
	}
}

func Test_DistinctLists(t *testing.T) {
	// setup
	router := givenRouter(t)

	// act
	specialties := get(router, "/specialties")
	categories := get(router, "/categories")

	// assert
	require.Equal(t, http.StatusOK, specialties.Code)
	require.Equal(t, http.StatusOK, categories.Code)
	assert.Equal(t,
		[]string{"Cardiologia", "Dermatologia", "Geriatria", "Neurologia", "Ortopedia", "Pediatria"},
		decode[map[string][]string](t, specialties)["specialties"],
	)
	assert.Equal(t,
		[]string{"Clínica", "Hospital", "Laboratório"},
		decode[map[string][]string](t, categories)["categories"],
	)
}

func Test_Snapshot_Download(t *testing.T) {
	// setup
	router := givenRouter(t)

	// act
	recorder := get(router, "/snapshot")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/octet-stream", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), httpapi.SnapshotFileName)

	raw, err := codec.Inflate(recorder.Body.Bytes())
	require.NoError(t, err)
	assert.NoError(t, codec.ValidateDatabase(raw))
}

func Test_Metrics_Endpoint(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "directory_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()
	router := givenRouter(t, httpapi.WithMetricsGatherer(registry))

	// act
	recorder := get(router, "/metrics")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "directory_test_total 1")
}

func Test_OptionalRoutesAreAbsentByDefault(t *testing.T) {
	// setup
	h, err := httpapi.NewHandler(stubDirectory{})
	require.NoError(t, err)
	router := h.Router()

	// act & assert
	assert.Equal(t, http.StatusNotFound, get(router, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/snapshot").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
}

type stubDirectory struct {
	err error
}

func (s stubDirectory) Search(context.Context, directory.Filters) ([]directory.Provider, error) {
	return []directory.Provider{}, s.err
}

func (s stubDirectory) SearchPage(context.Context, directory.Filters, int, int) ([]directory.Provider, error) {
	return []directory.Provider{}, s.err
}

func (s stubDirectory) ListDistinctSpecialties(context.Context) ([]string, error) {
	return []string{}, s.err
}

func (s stubDirectory) ListDistinctCategories(context.Context) ([]string, error) {
	return []string{}, s.err
}

func Test_ErrorStatusMapping(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "init failure", err: errors.Join(directory.ErrInitFailed, directory.ErrSnapshotUnavailable), expected: http.StatusServiceUnavailable},
		{name: "closed backend", err: errors.Join(directory.ErrQueryFailed, directory.ErrBackendClosed), expected: http.StatusServiceUnavailable},
		{name: "snapshot missing", err: errors.Join(directory.ErrSnapshotUnavailable, errors.New("db.sqlite.zip: not found")), expected: http.StatusServiceUnavailable},
		{name: "invalid page", err: errors.Join(directory.ErrQueryFailed, directory.ErrInvalidPage), expected: http.StatusBadRequest},
		{name: "engine failure", err: errors.Join(directory.ErrQueryFailed, directory.ErrEngineFailed), expected: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, expected: http.StatusGatewayTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			h, err := httpapi.NewHandler(stubDirectory{err: tc.err})
			require.NoError(t, err)

			// act
			recorder := get(h.Router(), "/categories")

			// assert
			assert.Equal(t, tc.expected, recorder.Code)
			assert.Equal(t, tc.err.Error(), decode[errorResponse](t, recorder).Error)
		})
	}
}

func Test_RequestLogging(t *testing.T) {
	// setup
	spy := NewLogHandlerSpy(false)
	h, err := httpapi.NewHandler(stubDirectory{}, httpapi.WithLogger(slog.New(spy)))
	require.NoError(t, err)
	router := h.Router()

	failing, err := httpapi.NewHandler(
		stubDirectory{err: errors.Join(directory.ErrQueryFailed, directory.ErrEngineFailed)},
		httpapi.WithLogger(slog.New(spy)),
	)
	require.NoError(t, err)

	// act
	get(router, "/specialties")
	get(failing.Router(), "/specialties")

	// assert
	assert.True(t, spy.HasInfoLogWithMessage("request completed").
		WithDurationMS().
		WithAttribute("path", "/specialties").
		WithAttribute("status", "200").
		Assert())
	assert.True(t, spy.HasErrorLogWithMessage("request failed").
		WithAttribute("status", "500").
		Assert())
}

func Test_NewHandler_RejectsInvalidOptions(t *testing.T) {
	// act
	_, nilErr := httpapi.NewHandler(nil)
	_, sizeErr := httpapi.NewHandler(stubDirectory{}, httpapi.WithPageSizes(10, 5))

	// assert
	assert.ErrorIs(t, nilErr, directory.ErrInvalidOption)
	assert.ErrorIs(t, sizeErr, directory.ErrInvalidOption)
}
