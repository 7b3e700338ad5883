package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// setupMutationTestDB creates an in-memory SQLite database with the
// current schema.
func setupMutationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE mutasi_header (
			id TEXT PRIMARY KEY,
			no_form TEXT NOT NULL,
			tanggal TEXT,
			outlet_pengirim TEXT,
			outlet_penerima TEXT,
			outlet_pengirim_id TEXT,
			outlet_penerima_id TEXT,
			status TEXT,
			dibuat_oleh TEXT,
			disetujui_oleh TEXT,
			diterima_oleh TEXT,
			file_url TEXT,
			received_by TEXT,
			received_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE mutasi_lines (
			id TEXT PRIMARY KEY,
			header_id TEXT NOT NULL,
			line_pair_id TEXT,
			movement_type TEXT,
			nama_item TEXT,
			kode_item TEXT,
			uom TEXT,
			qty NUMERIC,
			qty_received NUMERIC,
			harga_cost NUMERIC,
			outlet_name TEXT,
			created_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	return db
}

// setupLegacyTestDB creates the schema as it looked before the receive
// tracking and outlet-id columns were added.
func setupLegacyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE mutasi_header (
			id TEXT PRIMARY KEY,
			no_form TEXT NOT NULL,
			tanggal TEXT,
			outlet_pengirim TEXT,
			outlet_penerima TEXT,
			status TEXT,
			dibuat_oleh TEXT,
			disetujui_oleh TEXT,
			diterima_oleh TEXT,
			file_url TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE mutasi_lines (
			id TEXT PRIMARY KEY,
			header_id TEXT NOT NULL,
			line_pair_id TEXT,
			movement_type TEXT,
			nama_item TEXT,
			kode_item TEXT,
			uom TEXT,
			qty NUMERIC,
			qty_received NUMERIC,
			harga_cost NUMERIC,
			outlet_name TEXT,
			created_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	return db
}

func newHeader(noForm string) *mutation.Header {
	return &mutation.Header{
		NoForm:           noForm,
		Tanggal:          "2025-06-01",
		OutletPengirim:   "Outlet Pusat",
		OutletPenerima:   "Outlet Cabang",
		OutletPengirimID: "1",
		OutletPenerimaID: "2",
		Status:           mutation.StatusSent,
		DibuatOleh:       "budi",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func TestInsertHeader_AssignsIDAndRoundTrips(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-001")
	require.NoError(t, repo.InsertHeader(ctx, h))
	assert.NotEmpty(t, h.ID)

	found, err := repo.FindHeaderByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "BAM-001", found.NoForm)
	assert.Equal(t, mutation.StatusSent, found.Status)
	assert.Equal(t, "1", found.OutletPengirimID)
}

func TestInsertHeader_LegacySchemaFallback(t *testing.T) {
	repo := NewGormMutationRepository(setupLegacyTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-002")
	require.NoError(t, repo.InsertHeader(ctx, h))

	var noForm string
	err := repo.db.Raw("SELECT no_form FROM mutasi_header WHERE id = ?", h.ID).Scan(&noForm).Error
	require.NoError(t, err)
	assert.Equal(t, "BAM-002", noForm)
}

func TestFindHeaderByID_NotFound(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)

	_, err := repo.FindHeaderByID(context.Background(), "missing-id")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListHeaders_FiltersAndOrders(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)
	ctx := context.Background()

	older := newHeader("BAM-OLD")
	older.Tanggal = "2025-05-20"
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.InsertHeader(ctx, older))

	newer := newHeader("BAM-NEW")
	newer.Tanggal = "2025-06-01"
	require.NoError(t, repo.InsertHeader(ctx, newer))

	received := newHeader("BAM-DONE")
	received.Tanggal = "2025-06-01"
	received.Status = mutation.StatusReceived
	require.NoError(t, repo.InsertHeader(ctx, received))

	t.Run("no filter returns everything newest first", func(t *testing.T) {
		headers, err := repo.ListHeaders(ctx, mutation.HeaderFilter{})
		require.NoError(t, err)
		require.Len(t, headers, 3)
		assert.Equal(t, "BAM-OLD", headers[2].NoForm)
	})

	t.Run("date window", func(t *testing.T) {
		headers, err := repo.ListHeaders(ctx, mutation.HeaderFilter{
			DateFrom: "2025-05-01",
			DateTo:   "2025-05-31",
		})
		require.NoError(t, err)
		require.Len(t, headers, 1)
		assert.Equal(t, "BAM-OLD", headers[0].NoForm)
	})

	t.Run("status filter", func(t *testing.T) {
		headers, err := repo.ListHeaders(ctx, mutation.HeaderFilter{Status: mutation.StatusSent})
		require.NoError(t, err)
		assert.Len(t, headers, 2)
	})
}

func TestInsertAndFindLines(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-003")
	require.NoError(t, repo.InsertHeader(ctx, h))

	other := newHeader("BAM-004")
	require.NoError(t, repo.InsertHeader(ctx, other))

	lines := mutation.DoubleLines(h, []mutation.Item{
		{NamaItem: "Gula", Uom: "KG", Qty: decimal.NewFromInt(5)},
	})
	require.NoError(t, repo.InsertLines(ctx, lines))
	require.NoError(t, repo.InsertLines(ctx, mutation.DoubleLines(other, []mutation.Item{
		{NamaItem: "Kopi", Uom: "KG", Qty: decimal.NewFromInt(2)},
	})))

	found, err := repo.FindLinesByHeaderID(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, l := range found {
		assert.Equal(t, h.ID, l.HeaderID)
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "BAM-003-1", l.LinePairID)
	}
}

func TestApplyReceive_UpdatesLinesAndHeader(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-005")
	require.NoError(t, repo.InsertHeader(ctx, h))
	lines := mutation.DoubleLines(h, []mutation.Item{
		{NamaItem: "Gula", Uom: "KG", Qty: decimal.NewFromInt(5)},
	})
	require.NoError(t, repo.InsertLines(ctx, lines))

	stored, err := repo.FindLinesByHeaderID(ctx, h.ID)
	require.NoError(t, err)
	incoming := mutation.IncomingLines(stored)
	require.Len(t, incoming, 1)

	receivedAt := time.Now()
	err = repo.ApplyReceive(ctx, h.ID, mutation.ReceiveUpdate{
		Status:     mutation.StatusReceived,
		ReceivedBy: "siti",
		ReceivedAt: receivedAt,
	}, []mutation.LineUpdate{
		{LineID: incoming[0].ID, QtyReceived: decimal.NewFromInt(5)},
	})
	require.NoError(t, err)

	header, err := repo.FindHeaderByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, mutation.StatusReceived, header.Status)
	assert.Equal(t, "siti", header.ReceivedBy)
	assert.Equal(t, "siti", header.DiterimaOleh)
	require.NotNil(t, header.ReceivedAt)

	updated, err := repo.FindLinesByHeaderID(ctx, h.ID)
	require.NoError(t, err)
	for _, l := range updated {
		if l.ID == incoming[0].ID {
			assert.True(t, l.QtyReceived.Equal(decimal.NewFromInt(5)))
		}
	}
}

func TestApplyReceive_UnknownLineRollsBack(t *testing.T) {
	repo := NewGormMutationRepository(setupMutationTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-006")
	require.NoError(t, repo.InsertHeader(ctx, h))

	err := repo.ApplyReceive(ctx, h.ID, mutation.ReceiveUpdate{
		Status:     mutation.StatusReceived,
		ReceivedBy: "siti",
		ReceivedAt: time.Now(),
	}, []mutation.LineUpdate{
		{LineID: "not-a-line", QtyReceived: decimal.NewFromInt(1)},
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, shared.CodeNotFound, domainErr.Code)

	header, err := repo.FindHeaderByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, mutation.StatusSent, header.Status, "header must be untouched")
}

func TestApplyReceive_LegacySchemaFallsBackToStatusOnly(t *testing.T) {
	repo := NewGormMutationRepository(setupLegacyTestDB(t), nil)
	ctx := context.Background()

	h := newHeader("BAM-007")
	require.NoError(t, repo.InsertHeader(ctx, h))
	lines := mutation.DoubleLines(h, []mutation.Item{
		{NamaItem: "Gula", Uom: "KG", Qty: decimal.NewFromInt(3)},
	})
	require.NoError(t, repo.InsertLines(ctx, lines))

	stored, err := repo.FindLinesByHeaderID(ctx, h.ID)
	require.NoError(t, err)
	incoming := mutation.IncomingLines(stored)

	err = repo.ApplyReceive(ctx, h.ID, mutation.ReceiveUpdate{
		Status:     mutation.StatusPartial,
		ReceivedBy: "siti",
		ReceivedAt: time.Now(),
	}, []mutation.LineUpdate{
		{LineID: incoming[0].ID, QtyReceived: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)

	var status string
	err = repo.db.Raw("SELECT status FROM mutasi_header WHERE id = ?", h.ID).Scan(&status).Error
	require.NoError(t, err)
	assert.Equal(t, string(mutation.StatusPartial), status)
}
