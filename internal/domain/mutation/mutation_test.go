package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Status
		wantOK bool
	}{
		{name: "sent", raw: "SENT", want: StatusSent, wantOK: true},
		{name: "received", raw: "RECEIVED", want: StatusReceived, wantOK: true},
		{name: "partial", raw: "PARTIAL", want: StatusPartial, wantOK: true},
		{name: "draft", raw: "DRAFT", want: StatusDraft, wantOK: true},
		{name: "legacy value preserved", raw: "terkirim", want: Status("terkirim"), wantOK: false},
		{name: "empty", raw: "", want: Status(""), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatus(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestStatusIsFinal(t *testing.T) {
	assert.True(t, StatusReceived.IsFinal())
	assert.False(t, StatusPartial.IsFinal())
	assert.False(t, StatusSent.IsFinal())
}

func TestDoubleLines(t *testing.T) {
	header := &Header{
		ID:             "hdr-1",
		NoForm:         "BAM-007",
		OutletPengirim: "Outlet Pusat",
		OutletPenerima: "Outlet Cabang",
	}
	items := []Item{
		{NamaItem: "Gula", KodeItem: "GL-01", Uom: "kg", Qty: qty("10"), HargaCost: qty("15000")},
		{NamaItem: "Kopi", KodeItem: "KP-02", Uom: "kg", Qty: qty("2.5"), HargaCost: qty("80000")},
	}

	lines := DoubleLines(header, items)

	require.Len(t, lines, 4)

	// First item: keluar then masuk, sharing the pair id.
	assert.Equal(t, MovementOut, lines[0].MovementType)
	assert.Equal(t, MovementIn, lines[1].MovementType)
	assert.Equal(t, "BAM-007-1", lines[0].LinePairID)
	assert.Equal(t, lines[0].LinePairID, lines[1].LinePairID)
	assert.Equal(t, "BAM-007-2", lines[2].LinePairID)

	// Outgoing rows carry the sender, incoming rows the receiver.
	assert.Equal(t, "Outlet Pusat", lines[0].OutletName)
	assert.Equal(t, "Outlet Cabang", lines[1].OutletName)

	// Quantities copy over unchanged, received starts at zero.
	assert.True(t, lines[1].Qty.Equal(qty("10")))
	assert.True(t, lines[1].QtyReceived.IsZero())
	assert.Equal(t, "hdr-1", lines[3].HeaderID)
}

func TestIncomingLines(t *testing.T) {
	lines := testLines()
	in := IncomingLines(lines)
	require.Len(t, in, 2)
	for _, l := range in {
		assert.Equal(t, MovementIn, l.MovementType)
	}

	assert.Empty(t, IncomingLines(nil))
}

func TestItemComplete(t *testing.T) {
	assert.True(t, Item{NamaItem: "Gula", Uom: "kg", Qty: qty("1")}.Complete())
	assert.False(t, Item{NamaItem: "", Uom: "kg", Qty: qty("1")}.Complete())
	assert.False(t, Item{NamaItem: "Gula", Uom: "", Qty: qty("1")}.Complete())
	assert.False(t, Item{NamaItem: "Gula", Uom: "kg", Qty: qty("0")}.Complete())
}
