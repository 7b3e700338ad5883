package mutation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// Attachment is an optional uploaded file accompanying a submission
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitInput carries a new form submission. The personnel fields are
// comma separated name lists as typed on the form.
type SubmitInput struct {
	NoForm         string
	Tanggal        string
	OutletPengirim string
	OutletPenerima string
	DibuatOleh     string
	DisetujuiOleh  string
	DiterimaOleh   string
	Items          []mutation.Item
	Attachment     *Attachment
}

// parseNames splits a personnel field into trimmed names
func parseNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func joinNames(raw string) string {
	return strings.Join(parseNames(raw), ", ")
}

// Submit validates and persists a new mutation form. The header is
// stored as SENT and every item is doubled into a keluar and a masuk
// line. The form number is claimed in the idempotency store first, so a
// double click cannot produce two forms.
func (s *Service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*mutation.Header, error) {
	input.NoForm = strings.TrimSpace(input.NoForm)
	input.OutletPengirim = strings.TrimSpace(input.OutletPengirim)
	input.OutletPenerima = strings.TrimSpace(input.OutletPenerima)

	items, err := s.validateSubmit(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.idempotency != nil {
		claimed, err := s.idempotency.MarkProcessed(ctx, input.NoForm, submitClaimTTL)
		if err != nil {
			s.logger.Warn("idempotency check failed, continuing without guard",
				zap.String("no_form", input.NoForm),
				zap.Error(err))
		} else if !claimed {
			return nil, shared.NewStateConflictError("Form " + input.NoForm + " sudah pernah dikirim")
		}
	}

	fileURL := ""
	if input.Attachment != nil && len(input.Attachment.Data) > 0 {
		if s.attachments == nil {
			return nil, shared.NewConfigurationError("attachment storage is not configured")
		}
		fileURL, err = s.attachments.Upload(ctx, input.Attachment.Filename,
			input.Attachment.Data, input.Attachment.ContentType)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	header := &mutation.Header{
		NoForm:           input.NoForm,
		Tanggal:          input.Tanggal,
		OutletPengirim:   input.OutletPengirim,
		OutletPenerima:   input.OutletPenerima,
		OutletPengirimID: s.catalog.ResolveOutletID(ctx, "", input.OutletPengirim),
		OutletPenerimaID: s.catalog.ResolveOutletID(ctx, "", input.OutletPenerima),
		Status:           mutation.StatusSent,
		DibuatOleh:       joinNames(input.DibuatOleh),
		DisetujuiOleh:    joinNames(input.DisetujuiOleh),
		DiterimaOleh:     joinNames(input.DiterimaOleh),
		FileURL:          fileURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.InsertHeader(ctx, header); err != nil {
		return nil, err
	}
	if err := s.repo.InsertLines(ctx, mutation.DoubleLines(header, items)); err != nil {
		return nil, err
	}

	s.logger.Info("mutation form submitted",
		zap.String("no_form", header.NoForm),
		zap.String("header_id", header.ID),
		zap.Int("items", len(items)))
	return header, nil
}

// validateSubmit checks the submission and returns the complete items.
// Missing fields are collected and reported together in one message;
// outlet mismatches and a malformed date are distinct errors.
func (s *Service) validateSubmit(ctx context.Context, input SubmitInput) ([]mutation.Item, error) {
	var missing []string
	if input.NoForm == "" {
		missing = append(missing, "No Form")
	}
	if input.OutletPengirim == "" {
		missing = append(missing, "Outlet Pengirim")
	}
	if input.OutletPenerima == "" {
		missing = append(missing, "Outlet Penerima")
	}
	if input.Tanggal == "" {
		missing = append(missing, "Tanggal Kirim")
	}
	if len(parseNames(input.DibuatOleh)) == 0 {
		missing = append(missing, "Dibuat Oleh")
	}
	if len(parseNames(input.DiterimaOleh)) == 0 {
		missing = append(missing, "Diterima Oleh")
	}

	if input.Tanggal != "" {
		if _, err := time.Parse(dateLayout, input.Tanggal); err != nil {
			return nil, shared.NewValidationError("Tanggal harus berformat YYYY-MM-DD")
		}
	}
	if input.OutletPengirim != "" && strings.EqualFold(input.OutletPengirim, input.OutletPenerima) {
		return nil, shared.NewValidationError("Outlet pengirim dan penerima tidak boleh sama")
	}
	if input.OutletPengirim != "" && s.catalog.ResolveOutletID(ctx, "", input.OutletPengirim) == "" {
		return nil, shared.NewValidationError("Outlet pengirim tidak dikenal: " + input.OutletPengirim)
	}
	if input.OutletPenerima != "" && s.catalog.ResolveOutletID(ctx, "", input.OutletPenerima) == "" {
		return nil, shared.NewValidationError("Outlet penerima tidak dikenal: " + input.OutletPenerima)
	}

	var items []mutation.Item
	for _, item := range input.Items {
		if item.Complete() {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		missing = append(missing, "Minimal 1 item")
	}

	if len(missing) > 0 {
		return nil, shared.NewValidationError("Lengkapi dulu: " + strings.Join(missing, ", "))
	}
	return items, nil
}
