package mutation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mutasi/backend/internal/domain/shared"
)

// receiveTolerance treats sent and received totals within this distance
// as equal, absorbing decimal noise from hand-entered quantities.
var receiveTolerance = decimal.RequireFromString("0.000001")

// ReceiveResult is the outcome of a successful reconciliation
type ReceiveResult struct {
	Status        Status
	Header        ReceiveUpdate
	Lines         []LineUpdate
	TotalSent     decimal.Decimal
	TotalReceived decimal.Decimal
}

// ParseQuantity parses a hand-entered quantity. Both ',' and '.' are
// accepted as the decimal separator; empty input counts as zero.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", raw)
	}
	return d, nil
}

// Reconcile validates the received quantities of a form against its
// incoming lines and derives the resulting status.
//
// Validation is all-or-nothing: every line is checked, problems are
// collected, deduplicated and reported as one validation error, and no
// updates are produced when any line fails. The received-by and
// received-at fields are stamped from the actor and clock passed in.
func Reconcile(header *Header, lines []Line, received map[string]string, actor string, now time.Time) (*ReceiveResult, error) {
	if header.Status == StatusReceived {
		return nil, shared.NewStateConflictError(
			fmt.Sprintf("Form %s sudah diterima dan tidak dapat diterima ulang", header.NoForm))
	}

	incoming := IncomingLines(lines)
	if len(incoming) == 0 {
		return nil, shared.NewNotFoundError(
			fmt.Sprintf("Form %s tidak memiliki baris penerimaan", header.NoForm))
	}

	problems := make(map[string]struct{})
	addProblem := func(format string, args ...any) {
		problems[fmt.Sprintf(format, args...)] = struct{}{}
	}

	var updates []LineUpdate
	totalSent := decimal.Zero
	totalReceived := decimal.Zero

	for _, line := range incoming {
		qty, err := ParseQuantity(received[line.ID])
		if err != nil {
			addProblem("%s: jumlah diterima tidak valid", line.NamaItem)
			continue
		}
		if qty.IsNegative() {
			addProblem("%s: jumlah diterima tidak boleh negatif", line.NamaItem)
			continue
		}
		if qty.GreaterThan(line.Qty) {
			addProblem("%s: jumlah diterima melebihi jumlah dikirim (%s)", line.NamaItem, line.Qty.String())
			continue
		}

		totalSent = totalSent.Add(line.Qty)
		totalReceived = totalReceived.Add(qty)

		if !qty.Equal(line.QtyReceived) {
			updates = append(updates, LineUpdate{LineID: line.ID, QtyReceived: qty})
		}
	}

	if len(problems) > 0 {
		msgs := make([]string, 0, len(problems))
		for p := range problems {
			msgs = append(msgs, p)
		}
		sort.Strings(msgs)
		return nil, shared.NewValidationError(strings.Join(msgs, "; "))
	}

	status := StatusPartial
	if totalSent.Sub(totalReceived).Abs().LessThan(receiveTolerance) {
		status = StatusReceived
	}

	return &ReceiveResult{
		Status: status,
		Header: ReceiveUpdate{
			Status:     status,
			ReceivedBy: actor,
			ReceivedAt: now,
		},
		Lines:         updates,
		TotalSent:     totalSent,
		TotalReceived: totalReceived,
	}, nil
}
