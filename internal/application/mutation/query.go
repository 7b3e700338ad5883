package mutation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// defaultListWindowDays is how far back the list view looks when the
// caller gives no date range.
const defaultListWindowDays = 14

// ListInput narrows the list views to a date window. Empty or malformed
// dates fall back to the default window.
type ListInput struct {
	DateFrom string
	DateTo   string
}

// ListRow is one header in a list view
type ListRow struct {
	ID             string          `json:"id"`
	NoForm         string          `json:"no_form"`
	Tanggal        string          `json:"tanggal"`
	OutletPengirim string          `json:"outlet_pengirim"`
	OutletPenerima string          `json:"outlet_penerima"`
	Status         mutation.Status `json:"status"`
	DibuatOleh     string          `json:"dibuat_oleh"`
}

// ListResult groups the three views of the mutation list page
type ListResult struct {
	// PendingReceive holds SENT forms addressed to the caller's outlet,
	// regardless of the date window.
	PendingReceive []ListRow `json:"pending_receive"`
	// Received holds forms addressed to the caller's outlet inside the
	// window, minus the ones already shown as pending.
	Received []ListRow `json:"received"`
	// Sent holds forms the caller's outlet sent inside the window
	Sent []ListRow `json:"sent"`

	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// List builds the outlet-scoped send and receive views. Superadmins see
// every outlet's forms.
func (s *Service) List(ctx context.Context, actor Actor, input ListInput) (*ListResult, error) {
	from, to := s.listWindow(input)

	actorOutlet := ""
	if !actor.Superadmin {
		actorOutlet = s.actorOutletID(ctx, actor)
		if actorOutlet == "" && strings.TrimSpace(actor.OutletName) == "" {
			return nil, shared.NewValidationError("Outlet Anda belum ditentukan. Perbarui profil Anda.")
		}
	}

	pending, err := s.repo.ListHeaders(ctx, mutation.HeaderFilter{Status: mutation.StatusSent})
	if err != nil {
		return nil, err
	}
	windowed, err := s.repo.ListHeaders(ctx, mutation.HeaderFilter{DateFrom: from, DateTo: to})
	if err != nil {
		return nil, err
	}

	result := &ListResult{DateFrom: from, DateTo: to}

	pendingIDs := make(map[string]struct{})
	for _, h := range pending {
		if !actor.Superadmin && !matchOutlet(h.OutletPenerimaID, h.OutletPenerima, actorOutlet, actor.OutletName) {
			continue
		}
		pendingIDs[h.ID] = struct{}{}
		result.PendingReceive = append(result.PendingReceive, listRow(h))
	}
	for _, h := range windowed {
		if actor.Superadmin || matchOutlet(h.OutletPenerimaID, h.OutletPenerima, actorOutlet, actor.OutletName) {
			if _, dup := pendingIDs[h.ID]; !dup {
				result.Received = append(result.Received, listRow(h))
			}
		}
		if actor.Superadmin || matchOutlet(h.OutletPengirimID, h.OutletPengirim, actorOutlet, actor.OutletName) {
			result.Sent = append(result.Sent, listRow(h))
		}
	}
	return result, nil
}

// listWindow resolves the date range, defaulting to the last two weeks.
// A reversed range is swapped rather than rejected.
func (s *Service) listWindow(input ListInput) (string, string) {
	today := s.now()
	from := parseDateOr(input.DateFrom, today.AddDate(0, 0, -defaultListWindowDays))
	to := parseDateOr(input.DateTo, today)
	if from.After(to) {
		from, to = to, from
	}
	return from.Format(dateLayout), to.Format(dateLayout)
}

func parseDateOr(value string, fallback time.Time) time.Time {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// matchOutlet reports whether a header outlet belongs to the actor.
// Ids are compared when both sides have one; otherwise the outlet name
// is matched case-insensitively.
func matchOutlet(headerOutletID, headerOutletName, actorOutletID, actorOutletName string) bool {
	if headerOutletID != "" && actorOutletID != "" {
		return headerOutletID == actorOutletID
	}
	name := strings.TrimSpace(headerOutletName)
	return name != "" && strings.EqualFold(name, strings.TrimSpace(actorOutletName))
}

func listRow(h mutation.Header) ListRow {
	return ListRow{
		ID:             h.ID,
		NoForm:         h.NoForm,
		Tanggal:        h.Tanggal,
		OutletPengirim: h.OutletPengirim,
		OutletPenerima: h.OutletPenerima,
		Status:         h.Status,
		DibuatOleh:     h.DibuatOleh,
	}
}

// DetailLine is one item row of the detail view
type DetailLine struct {
	ID          string          `json:"id"`
	NamaItem    string          `json:"nama_item"`
	KodeItem    string          `json:"kode_item"`
	Uom         string          `json:"uom"`
	QtySent     decimal.Decimal `json:"qty_sent"`
	QtyReceived decimal.Decimal `json:"qty_received"`
	QtyMissing  decimal.Decimal `json:"qty_missing"`
	Harga       decimal.Decimal `json:"harga,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal,omitempty"`
}

// DetailResult is the detail view of one form
type DetailResult struct {
	Header           *mutation.Header `json:"header"`
	Lines            []DetailLine     `json:"lines"`
	ShowPrices       bool             `json:"show_prices"`
	CanReceive       bool             `json:"can_receive"`
	TotalQtySent     decimal.Decimal  `json:"total_qty_sent"`
	TotalQtyReceived decimal.Decimal  `json:"total_qty_received"`
	TotalQtyMissing  decimal.Decimal  `json:"total_qty_missing"`
	TotalValue       decimal.Decimal  `json:"total_value,omitempty"`
}

// Detail loads one form with its incoming lines. Only the sender outlet,
// the receiver outlet and superadmins may see a form; prices appear for
// superadmins only. Legacy forms without masuk rows show all their lines.
func (s *Service) Detail(ctx context.Context, actor Actor, headerID string) (*DetailResult, error) {
	header, err := s.repo.FindHeaderByID(ctx, headerID)
	if err != nil {
		return nil, err
	}

	actorOutlet := s.actorOutletID(ctx, actor)
	isSender := matchOutlet(header.OutletPengirimID, header.OutletPengirim, actorOutlet, actor.OutletName)
	isReceiver := matchOutlet(header.OutletPenerimaID, header.OutletPenerima, actorOutlet, actor.OutletName)
	if !actor.Superadmin && !isSender && !isReceiver {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Akses ditolak")
	}

	allLines, err := s.repo.FindLinesByHeaderID(ctx, headerID)
	if err != nil {
		return nil, err
	}
	lines := mutation.IncomingLines(allLines)
	if len(lines) == 0 {
		lines = allLines
	}

	result := &DetailResult{
		Header:     header,
		ShowPrices: actor.Superadmin,
		CanReceive: isReceiver && header.Status != mutation.StatusReceived,
	}
	for _, line := range lines {
		missing := line.Qty.Sub(line.QtyReceived)
		if missing.IsNegative() {
			missing = decimal.Zero
		}
		detail := DetailLine{
			ID:          line.ID,
			NamaItem:    line.NamaItem,
			KodeItem:    line.KodeItem,
			Uom:         line.Uom,
			QtySent:     line.Qty,
			QtyReceived: line.QtyReceived,
			QtyMissing:  missing,
		}
		result.TotalQtySent = result.TotalQtySent.Add(line.Qty)
		result.TotalQtyReceived = result.TotalQtyReceived.Add(line.QtyReceived)
		if actor.Superadmin {
			detail.Harga = line.HargaCost
			detail.Subtotal = line.Qty.Mul(line.HargaCost)
			result.TotalValue = result.TotalValue.Add(detail.Subtotal)
		}
		result.Lines = append(result.Lines, detail)
	}
	result.TotalQtyMissing = result.TotalQtySent.Sub(result.TotalQtyReceived)
	if result.TotalQtyMissing.IsNegative() {
		result.TotalQtyMissing = decimal.Zero
	}
	return result, nil
}

var unsafeFormNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Preview renders an unsaved submission as a PDF. The input goes through
// the same validation as Submit but nothing is persisted or claimed.
func (s *Service) Preview(ctx context.Context, actor Actor, input SubmitInput) ([]byte, string, error) {
	if s.printer == nil {
		return nil, "", shared.NewConfigurationError("form printer is not configured")
	}

	input.NoForm = strings.TrimSpace(input.NoForm)
	input.OutletPengirim = strings.TrimSpace(input.OutletPengirim)
	input.OutletPenerima = strings.TrimSpace(input.OutletPenerima)

	items, err := s.validateSubmit(ctx, input)
	if err != nil {
		return nil, "", err
	}

	header := &mutation.Header{
		NoForm:         input.NoForm,
		Tanggal:        input.Tanggal,
		OutletPengirim: input.OutletPengirim,
		OutletPenerima: input.OutletPenerima,
		Status:         mutation.StatusSent,
		DibuatOleh:     joinNames(input.DibuatOleh),
		DisetujuiOleh:  joinNames(input.DisetujuiOleh),
		DiterimaOleh:   joinNames(input.DiterimaOleh),
	}
	lines := make([]mutation.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, mutation.Line{
			NamaItem:  item.NamaItem,
			KodeItem:  item.KodeItem,
			Uom:       item.Uom,
			Qty:       item.Qty,
			HargaCost: item.HargaCost,
		})
	}

	html, err := s.printer.RenderHTML(header, lines, actor.Superadmin)
	if err != nil {
		return nil, "", shared.NewDomainError(shared.CodeInternal, "Gagal membuat PDF: "+err.Error())
	}
	pdf, err := s.printer.RenderPDF(ctx, html)
	if err != nil {
		return nil, "", err
	}

	safeName := unsafeFormNameChars.ReplaceAllString(input.NoForm, "_")
	if safeName == "" {
		safeName = "draft"
	}
	return pdf, "Form-Mutasi-" + safeName + ".pdf", nil
}
