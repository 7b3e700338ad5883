package mutation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Header represents one Berita Acara Mutasi form
type Header struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	NoForm           string     `gorm:"column:no_form;not null;index" json:"no_form"`
	Tanggal          string     `gorm:"column:tanggal" json:"tanggal"`
	OutletPengirim   string     `gorm:"column:outlet_pengirim" json:"outlet_pengirim"`
	OutletPenerima   string     `gorm:"column:outlet_penerima" json:"outlet_penerima"`
	OutletPengirimID string     `gorm:"column:outlet_pengirim_id" json:"outlet_pengirim_id"`
	OutletPenerimaID string     `gorm:"column:outlet_penerima_id" json:"outlet_penerima_id"`
	Status           Status     `gorm:"column:status;type:varchar(32)" json:"status"`
	DibuatOleh       string     `gorm:"column:dibuat_oleh" json:"dibuat_oleh"`
	DisetujuiOleh    string     `gorm:"column:disetujui_oleh" json:"disetujui_oleh"`
	DiterimaOleh     string     `gorm:"column:diterima_oleh" json:"diterima_oleh"`
	FileURL          string     `gorm:"column:file_url" json:"file_url"`
	ReceivedBy       string     `gorm:"column:received_by" json:"received_by"`
	ReceivedAt       *time.Time `gorm:"column:received_at" json:"received_at"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Header) TableName() string {
	return "mutasi_header"
}

// Line represents one movement row of a mutation form.
// A submitted item always yields two lines sharing the same LinePairID.
type Line struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	HeaderID     string          `gorm:"column:header_id;type:uuid;not null;index" json:"header_id"`
	LinePairID   string          `gorm:"column:line_pair_id;index" json:"line_pair_id"`
	MovementType MovementType    `gorm:"column:movement_type;type:varchar(16)" json:"movement_type"`
	NamaItem     string          `gorm:"column:nama_item" json:"nama_item"`
	KodeItem     string          `gorm:"column:kode_item" json:"kode_item"`
	Uom          string          `gorm:"column:uom" json:"uom"`
	Qty          decimal.Decimal `gorm:"column:qty;type:numeric(18,3)" json:"qty"`
	QtyReceived  decimal.Decimal `gorm:"column:qty_received;type:numeric(18,3)" json:"qty_received"`
	HargaCost    decimal.Decimal `gorm:"column:harga_cost;type:numeric(18,2)" json:"harga_cost"`
	OutletName   string          `gorm:"column:outlet_name" json:"outlet_name"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "mutasi_lines"
}

// PairID builds the shared identifier linking the keluar and masuk rows
// of one submitted item.
func PairID(noForm string, index int) string {
	return fmt.Sprintf("%s-%d", noForm, index)
}

// Item is one transferred product as entered on the form
type Item struct {
	NamaItem  string          `json:"nama_item"`
	KodeItem  string          `json:"kode_item"`
	Uom       string          `json:"uom"`
	Qty       decimal.Decimal `json:"qty"`
	HargaCost decimal.Decimal `json:"harga_cost"`
}

// Complete reports whether the item carries everything needed to post it
func (i Item) Complete() bool {
	return i.NamaItem != "" && i.Uom != "" && i.Qty.IsPositive()
}

// DoubleLines expands the submitted items into keluar and masuk rows.
// IDs are left empty for the repository to assign.
func DoubleLines(h *Header, items []Item) []Line {
	lines := make([]Line, 0, len(items)*2)
	for idx, item := range items {
		pairID := PairID(h.NoForm, idx+1)
		lines = append(lines, Line{
			HeaderID:     h.ID,
			LinePairID:   pairID,
			MovementType: MovementOut,
			NamaItem:     item.NamaItem,
			KodeItem:     item.KodeItem,
			Uom:          item.Uom,
			Qty:          item.Qty,
			QtyReceived:  decimal.Zero,
			HargaCost:    item.HargaCost,
			OutletName:   h.OutletPengirim,
		})
		lines = append(lines, Line{
			HeaderID:     h.ID,
			LinePairID:   pairID,
			MovementType: MovementIn,
			NamaItem:     item.NamaItem,
			KodeItem:     item.KodeItem,
			Uom:          item.Uom,
			Qty:          item.Qty,
			QtyReceived:  decimal.Zero,
			HargaCost:    item.HargaCost,
			OutletName:   h.OutletPenerima,
		})
	}
	return lines
}

// IncomingLines filters the masuk rows of a form. Legacy forms created
// before line doubling have no masuk rows; callers fall back to all lines
// for display but receive requires real incoming rows.
func IncomingLines(lines []Line) []Line {
	var in []Line
	for _, l := range lines {
		if l.MovementType == MovementIn {
			in = append(in, l)
		}
	}
	return in
}
