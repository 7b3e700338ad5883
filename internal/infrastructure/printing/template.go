// Package printing renders the Berita Acara Mutasi form as HTML and
// converts it to PDF through headless Chrome.
package printing

import (
	"bytes"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/mutasi/backend/internal/domain/mutation"
)

// FormRow is one printed item line
type FormRow struct {
	No       int
	NamaItem string
	KodeItem string
	Uom      string
	Qty      string
	Harga    string
	Subtotal string
}

// FormData is the view model of the printed form
type FormData struct {
	NoForm         string
	Tanggal        string
	OutletPengirim string
	OutletPenerima string
	DibuatOleh     string
	DisetujuiOleh  string
	DiterimaOleh   string
	Status         string
	Rows           []FormRow
	ShowPrices     bool
	Total          string
}

// BuildFormData turns a header and its item lines into the print view.
// Prices and the grand total only appear when showPrices is set.
func BuildFormData(h *mutation.Header, lines []mutation.Line, showPrices bool) FormData {
	data := FormData{
		NoForm:         h.NoForm,
		Tanggal:        h.Tanggal,
		OutletPengirim: h.OutletPengirim,
		OutletPenerima: h.OutletPenerima,
		DibuatOleh:     h.DibuatOleh,
		DisetujuiOleh:  h.DisetujuiOleh,
		DiterimaOleh:   h.DiterimaOleh,
		Status:         string(h.Status),
		ShowPrices:     showPrices,
	}

	total := decimal.Zero
	for i, line := range lines {
		row := FormRow{
			No:       i + 1,
			NamaItem: line.NamaItem,
			KodeItem: line.KodeItem,
			Uom:      line.Uom,
			Qty:      line.Qty.String(),
		}
		if showPrices {
			subtotal := line.Qty.Mul(line.HargaCost)
			row.Harga = line.HargaCost.StringFixed(2)
			row.Subtotal = subtotal.StringFixed(2)
			total = total.Add(subtotal)
		}
		data.Rows = append(data.Rows, row)
	}
	if showPrices {
		data.Total = total.StringFixed(2)
	}
	return data
}

var formTemplate = template.Must(template.New("mutasi-form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Berita Acara Mutasi {{.NoForm}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; color: #111; }
  h1 { font-size: 16px; text-align: center; margin-bottom: 2px; }
  .meta { width: 100%; margin: 12px 0; }
  .meta td { padding: 2px 6px; }
  table.items { width: 100%; border-collapse: collapse; margin-top: 8px; }
  table.items th, table.items td { border: 1px solid #444; padding: 4px 6px; }
  table.items th { background: #eee; }
  td.num { text-align: right; }
  .signatures { width: 100%; margin-top: 36px; text-align: center; }
  .signatures td { width: 33%; padding-top: 48px; }
</style>
</head>
<body>
<h1>BERITA ACARA MUTASI</h1>
<table class="meta">
  <tr><td>No. Form</td><td>: {{.NoForm}}</td><td>Tanggal</td><td>: {{.Tanggal}}</td></tr>
  <tr><td>Outlet Pengirim</td><td>: {{.OutletPengirim}}</td><td>Outlet Penerima</td><td>: {{.OutletPenerima}}</td></tr>
  <tr><td>Status</td><td colspan="3">: {{.Status}}</td></tr>
</table>
<table class="items">
  <thead>
    <tr>
      <th>No</th><th>Nama Item</th><th>Kode</th><th>UOM</th><th>Qty</th>
      {{- if .ShowPrices}}<th>Harga</th><th>Subtotal</th>{{end}}
    </tr>
  </thead>
  <tbody>
    {{- range .Rows}}
    <tr>
      <td class="num">{{.No}}</td>
      <td>{{.NamaItem}}</td>
      <td>{{.KodeItem}}</td>
      <td>{{.Uom}}</td>
      <td class="num">{{.Qty}}</td>
      {{- if $.ShowPrices}}<td class="num">{{.Harga}}</td><td class="num">{{.Subtotal}}</td>{{end}}
    </tr>
    {{- end}}
    {{- if .ShowPrices}}
    <tr>
      <td colspan="6" class="num"><strong>Total</strong></td>
      <td class="num"><strong>{{.Total}}</strong></td>
    </tr>
    {{- end}}
  </tbody>
</table>
<table class="signatures">
  <tr><td>Dibuat Oleh</td><td>Disetujui Oleh</td><td>Diterima Oleh</td></tr>
  <tr><td>( {{.DibuatOleh}} )</td><td>( {{.DisetujuiOleh}} )</td><td>( {{.DiterimaOleh}} )</td></tr>
</table>
</body>
</html>
`))

// RenderFormHTML renders the printable form
func RenderFormHTML(data FormData) (string, error) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTML builds the printable document for a header and its item lines
func (r *ChromedpRenderer) RenderHTML(h *mutation.Header, lines []mutation.Line, showPrices bool) (string, error) {
	return RenderFormHTML(BuildFormData(h, lines, showPrices))
}
