package helper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
	"github.com/AntonStoeckl/provider-directory-go/directory/codec"
	"github.com/AntonStoeckl/provider-directory-go/directory/snapshotbuilder"
)

// Snapshot blob names the fixtures are stored under.
const (
	CompressedSnapshotName = "db.sqlite.zip"
	RawSnapshotName        = "db.sqlite"
)

// Fixture contracts.
const (
	ContractSol     = "SOL-001"
	ContractLuna    = "LUNA-002"
	ContractEstrela = "ESTRELA-003"
	ContractAgape   = "AGAPE-004"
	ContractOrphan  = "ORFAO-005"
	ContractBomJes  = "BOMJESUS-006"
)

// SaoPauloBounds contains Clínica Sol and Hospital Estrela, but not Campinas or Belo Horizonte.
var SaoPauloBounds = directory.BoundingBox{South: -23.70, West: -46.80, North: -23.40, East: -46.40}

func ptr[T any](v T) *T {
	return &v
}

func location(contract string, lat, lng float64, city string) directory.Location {
	return directory.Location{
		Contract:   contract,
		Lat:        lat,
		Lng:        lng,
		Address:    "Rua " + city + ", 100",
		PostalCode: ptr("01000-000"),
		Country:    "BR",
		State:      "SP",
		City:       city,
	}
}

// ScenarioProviders returns an operational Clínica Sol with Cardiologia and a closed Clínica Luna.
func ScenarioProviders() []directory.Provider {
	return []directory.Provider{
		{
			Contract:    ContractSol,
			Name:        "Clínica Sol",
			Status:      directory.StatusOperational,
			Location:    location(ContractSol, -23.55, -46.63, "São Paulo"),
			Specialties: []directory.Specialty{{Contract: ContractSol, Specialty: "Cardiologia", IsPrimary: true}},
		},
		{
			Contract: ContractLuna,
			Name:     "Clínica Luna",
			Status:   "CLOSED",
			Location: location(ContractLuna, -22.90, -43.20, "Rio de Janeiro"),
		},
	}
}

// DirectoryProviders returns a dataset covering all filter dimensions.
//
// Ratings in insertion order of the operational, located providers: 4.5, nil, 2.0, nil.
// Hospital Órfão has no location. Bom Jesus has two specialties flagged primary.
func DirectoryProviders() []directory.Provider {
	reviewTime := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

	return []directory.Provider{
		{
			Contract:     ContractSol,
			Name:         "Clínica Sol",
			Network:      "Rede Saúde",
			Type:         "CLINIC",
			PhoneNumber:  ptr("+55 11 3000-0001"),
			Status:       directory.StatusOperational,
			Website:      ptr("https://clinicasol.example"),
			GoogleURL:    "https://maps.example/sol",
			Rating:       ptr(4.5),
			TotalRatings: 120,
			Location:     location(ContractSol, -23.55, -46.63, "São Paulo"),
			Specialties: []directory.Specialty{
				{Contract: ContractSol, Specialty: "Cardiologia", IsPrimary: true},
				{Contract: ContractSol, Specialty: "Pediatria"},
			},
			Categories: []directory.Category{{Contract: ContractSol, Category: "Clínica"}},
			Reviews: []directory.Review{
				{Contract: ContractSol, AuthorName: "Ana", AuthorPhotoURL: ptr("https://img.example/ana"), Rating: 5, Text: "Excelente", Time: reviewTime},
				{Contract: ContractSol, AuthorName: "Bruno", Rating: 4, Text: "Muito bom", Time: reviewTime.Add(time.Hour)},
			},
		},
		{
			Contract: ContractLuna,
			Name:     "Clínica Luna",
			Status:   "CLOSED",
			Rating:   ptr(5.0),
			Location: location(ContractLuna, -22.90, -43.20, "Rio de Janeiro"),
			Specialties: []directory.Specialty{
				{Contract: ContractLuna, Specialty: "Cardiologia", IsPrimary: true},
			},
			Categories: []directory.Category{{Contract: ContractLuna, Category: "Clínica"}},
		},
		{
			Contract: ContractEstrela,
			Name:     "Hospital Estrela",
			Status:   directory.StatusOperational,
			Location: location(ContractEstrela, -23.60, -46.70, "São Paulo"),
			Specialties: []directory.Specialty{
				{Contract: ContractEstrela, Specialty: "Ortopedia", IsPrimary: true},
				{Contract: ContractEstrela, Specialty: "Cardiologia"},
			},
			Categories: []directory.Category{{Contract: ContractEstrela, Category: "Hospital"}},
		},
		{
			Contract:     ContractAgape,
			Name:         "Ágape Saúde",
			Status:       directory.StatusOperational,
			Rating:       ptr(2.0),
			TotalRatings: 3,
			Location:     location(ContractAgape, -22.90, -47.06, "Campinas"),
			Specialties: []directory.Specialty{
				{Contract: ContractAgape, Specialty: "Dermatologia", IsPrimary: true},
			},
			Categories: []directory.Category{
				{Contract: ContractAgape, Category: "Clínica"},
				{Contract: ContractAgape, Category: "Laboratório"},
			},
			Reviews: []directory.Review{
				{Contract: ContractAgape, AuthorName: "Carla", Rating: 2, Text: "Demorado", Time: reviewTime},
			},
		},
		{
			Contract: ContractOrphan,
			Name:     "Hospital Órfão",
			Status:   directory.StatusOperational,
			Rating:   ptr(3.0),
			Specialties: []directory.Specialty{
				{Contract: ContractOrphan, Specialty: "Cardiologia", IsPrimary: true},
			},
		},
		{
			Contract: ContractBomJes,
			Name:     "Bom Jesus",
			Status:   directory.StatusOperational,
			Location: location(ContractBomJes, -19.92, -43.94, "Belo Horizonte"),
			Specialties: []directory.Specialty{
				{Contract: ContractBomJes, Specialty: "Neurologia", IsPrimary: true},
				{Contract: ContractBomJes, Specialty: "Geriatria", IsPrimary: true},
			},
			Categories: []directory.Category{{Contract: ContractBomJes, Category: "Hospital"}},
		},
	}
}

// NumberedProviders returns n operational providers named "Provider 00", "Provider 01", ...
// with contracts "P000", "P001", ...
func NumberedProviders(n int) []directory.Provider {
	providers := make([]directory.Provider, 0, n)

	for i := range n {
		contract := fmt.Sprintf("P%03d", i)
		providers = append(providers, directory.Provider{
			Contract: contract,
			Name:     fmt.Sprintf("Provider %02d", i),
			Status:   directory.StatusOperational,
			Location: location(contract, -23.5+float64(i)/1000, -46.6, "São Paulo"),
		})
	}

	return providers
}

// GivenSnapshotFile writes the providers into a new snapshot file and returns its path.
func GivenSnapshotFile(t testing.TB, providers ...directory.Provider) string {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), RawSnapshotName)

	w, err := snapshotbuilder.CreateWriter(ctx, path)
	require.NoError(t, err, "error in arranging test data")

	require.NoError(t, w.WriteProviders(ctx, providers...), "error in arranging test data")
	require.NoError(t, w.Close(), "error in arranging test data")

	return path
}

// GivenRawSnapshot returns the bytes of a snapshot database holding the providers.
func GivenRawSnapshot(t testing.TB, providers ...directory.Provider) []byte {
	t.Helper()

	raw, err := os.ReadFile(GivenSnapshotFile(t, providers...))
	require.NoError(t, err, "error in arranging test data")

	return raw
}

// GivenCompressedSnapshot returns a compressed snapshot holding the providers.
func GivenCompressedSnapshot(t testing.TB, providers ...directory.Provider) []byte {
	t.Helper()

	compressed, err := codec.Deflate(GivenRawSnapshot(t, providers...))
	require.NoError(t, err, "error in arranging test data")

	return compressed
}

// GivenSnapshotStore returns a MemoryStore holding the providers both as compressed snapshot
// (CompressedSnapshotName) and as raw snapshot (RawSnapshotName).
func GivenSnapshotStore(t testing.TB, providers ...directory.Provider) *blobstore.MemoryStore {
	t.Helper()

	ctx := context.Background()
	raw := GivenRawSnapshot(t, providers...)

	compressed, err := codec.Deflate(raw)
	require.NoError(t, err, "error in arranging test data")

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, CompressedSnapshotName, compressed), "error in arranging test data")
	require.NoError(t, store.Put(ctx, RawSnapshotName, raw), "error in arranging test data")

	return store
}
