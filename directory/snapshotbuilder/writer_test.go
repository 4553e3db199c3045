package snapshotbuilder_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/snapshotbuilder"
)

func Test_Writer_WriteProviders(t *testing.T) {
	// setup
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite")
	w, err := snapshotbuilder.CreateWriter(ctx, path)
	require.NoError(t, err)

	rating := 4.2
	reviewTime := time.UnixMilli(1_700_000_000_123)

	// arrange
	withLocation := directory.Provider{
		Contract: "C1",
		Name:     "Clínica Sol",
		Status:   directory.StatusOperational,
		Rating:   &rating,
		Location: directory.Location{Contract: "C1", Lat: -23.5, Lng: -46.6},
		Specialties: []directory.Specialty{
			{Contract: "C1", Specialty: "Cardiologia", IsPrimary: true},
			{Contract: "C1", Specialty: "Pediatria"},
		},
		Categories: []directory.Category{{Contract: "C1", Category: "Clínica"}},
		Reviews:    []directory.Review{{Contract: "C1", AuthorName: "Ana", Rating: 5, Time: reviewTime}},
	}
	withoutLocation := directory.Provider{Contract: "C2", Name: "Sem Endereço", Status: directory.StatusOperational}

	// act
	err = w.WriteProviders(ctx, withLocation, withoutLocation)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// assert
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var providers, locations, specialties, primaries int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM provider").Scan(&providers))
	require.NoError(t, db.QueryRow("SELECT count(*) FROM location").Scan(&locations))
	require.NoError(t, db.QueryRow("SELECT count(*), sum(is_primary) FROM specialty").Scan(&specialties, &primaries))
	assert.Equal(t, 2, providers)
	assert.Equal(t, 1, locations)
	assert.Equal(t, 2, specialties)
	assert.Equal(t, 1, primaries)

	var storedTime int64
	var phone sql.NullString
	require.NoError(t, db.QueryRow("SELECT time FROM review").Scan(&storedTime))
	require.NoError(t, db.QueryRow("SELECT phone_number FROM provider WHERE contract = 'C1'").Scan(&phone))
	assert.Equal(t, reviewTime.UnixMilli(), storedTime)
	assert.False(t, phone.Valid)
}

func Test_Writer_UnknownTable(t *testing.T) {
	// setup
	ctx := context.Background()
	w, err := snapshotbuilder.CreateWriter(ctx, filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// act
	_, err = w.WriteRows(ctx, "doctor", directory.Rows{{"contract": "X"}})

	// assert
	assert.ErrorIs(t, err, snapshotbuilder.ErrWritingSnapshotFailed)
}
