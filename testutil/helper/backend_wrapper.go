package helper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/sqliteengine"
)

// Backend variants the wrappers can create.
const (
	VariantSnapshot     = "snapshot"
	VariantSnapshotSQLX = "snapshot-sqlx"
	VariantWorker       = "worker"
	VariantPartial      = "partial"
	VariantPartialHTTP  = "partial-http"
)

// AllVariants lists every backend variant, in the order the equivalence tests run them.
var AllVariants = []string{VariantSnapshot, VariantSnapshotSQLX, VariantWorker, VariantPartial, VariantPartialHTTP}

// Wrapper owns a backend created over a fixture store together with whatever it needs to run.
type Wrapper struct {
	variant string
	backend sqliteengine.ClosableBackend
	server  *httptest.Server
}

// Variant returns the backend variant name.
func (w *Wrapper) Variant() string {
	return w.variant
}

// GetBackend returns the wrapped backend.
func (w *Wrapper) GetBackend() sqliteengine.ClosableBackend {
	return w.backend
}

// Close releases the backend and its test server.
func (w *Wrapper) Close() {
	_ = w.backend.Close()

	if w.server != nil {
		w.server.Close()
	}
}

// CreateWrapper creates the backend variant over a fixture store from GivenSnapshotStore.
// The wrapper is closed automatically at the end of the test.
func CreateWrapper(
	t testing.TB,
	variant string,
	store *blobstore.MemoryStore,
	options ...sqliteengine.Option,
) *Wrapper {

	t.Helper()

	var (
		w   = &Wrapper{variant: variant}
		err error
	)

	switch variant {
	case VariantSnapshot:
		w.backend, err = sqliteengine.NewSnapshotBackend(store, options...)

	case VariantSnapshotSQLX:
		options = append(options, sqliteengine.WithAdapter(sqliteengine.AdapterSQLX))
		w.backend, err = sqliteengine.NewSnapshotBackend(store, options...)

	case VariantWorker:
		w.backend, err = sqliteengine.NewWorkerBackend(store, options...)

	case VariantPartial:
		options = append(options, sqliteengine.WithBlockSize(1024), sqliteengine.WithCacheBlocks(64))
		w.backend, err = sqliteengine.NewPartialFetchBackend(store, options...)

	case VariantPartialHTTP:
		raw, readErr := blobstore.ReadAll(context.Background(), store, RawSnapshotName)
		require.NoError(t, readErr, "error in arranging test data")

		w.server = NewRangeServer(raw)

		httpStore, storeErr := blobstore.NewHTTPStore(w.server.URL)
		require.NoError(t, storeErr, "error in arranging test data")

		w.backend, err = sqliteengine.NewPartialFetchBackend(httpStore, options...)

	default:
		t.Fatalf("unsupported backend variant: %s", variant)
	}

	require.NoError(t, err, "error creating backend in test setup")
	t.Cleanup(w.Close)

	return w
}

// CreateWrapperWithTestConfig creates the backend variant named by the BACKEND_VARIANT environment
// variable, the snapshot backend if it is unset.
func CreateWrapperWithTestConfig(
	t testing.TB,
	store *blobstore.MemoryStore,
	options ...sqliteengine.Option,
) *Wrapper {

	t.Helper()

	variant := strings.ToLower(os.Getenv("BACKEND_VARIANT"))
	if variant == "" {
		variant = VariantSnapshot
	}

	return CreateWrapper(t, variant, store, options...)
}

// NewRangeServer serves data at every path and answers range requests.
func NewRangeServer(data []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, RawSnapshotName, time.Time{}, bytes.NewReader(data))
	}))
}
