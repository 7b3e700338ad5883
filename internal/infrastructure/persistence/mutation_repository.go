package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// legacyHeaderColumns is the column set of schemas that predate the
// status, outlet-id and receive tracking columns. Inserts retried with
// this set keep old deployments writable during a rolling migration.
var legacyHeaderColumns = []string{
	"ID", "NoForm", "Tanggal", "OutletPengirim", "OutletPenerima",
	"DibuatOleh", "DisetujuiOleh", "DiterimaOleh", "FileURL",
	"CreatedAt", "UpdatedAt",
}

// GormMutationRepository implements mutation.Repository using GORM
type GormMutationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormMutationRepository creates a new GormMutationRepository
func NewGormMutationRepository(db *gorm.DB, logger *zap.Logger) *GormMutationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormMutationRepository{db: db, logger: logger}
}

// InsertHeader persists a new header, falling back to the legacy column
// set when the full insert is rejected by an older schema.
func (r *GormMutationRepository) InsertHeader(ctx context.Context, h *mutation.Header) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		r.logger.Warn("full header insert failed, retrying with legacy columns",
			zap.String("no_form", h.NoForm),
			zap.Error(err))
		return r.db.WithContext(ctx).Select(legacyHeaderColumns).Create(h).Error
	}
	return nil
}

// InsertLines bulk-inserts the doubled movement rows
func (r *GormMutationRepository) InsertLines(ctx context.Context, lines []mutation.Line) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = uuid.NewString()
		}
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// FindHeaderByID returns a header or shared.ErrNotFound
func (r *GormMutationRepository) FindHeaderByID(ctx context.Context, id string) (*mutation.Header, error) {
	var h mutation.Header
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// ListHeaders returns headers matching the filter, newest first
func (r *GormMutationRepository) ListHeaders(ctx context.Context, f mutation.HeaderFilter) ([]mutation.Header, error) {
	query := r.db.WithContext(ctx).Model(&mutation.Header{})

	if f.DateFrom != "" {
		query = query.Where("tanggal >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		query = query.Where("tanggal <= ?", f.DateTo)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var headers []mutation.Header
	if err := query.Order("created_at DESC").Find(&headers).Error; err != nil {
		return nil, err
	}
	return headers, nil
}

// FindLinesByHeaderID returns all lines of a header
func (r *GormMutationRepository) FindLinesByHeaderID(ctx context.Context, headerID string) ([]mutation.Line, error) {
	var lines []mutation.Line
	if err := r.db.WithContext(ctx).
		Where("header_id = ?", headerID).
		Order("created_at ASC, line_pair_id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// ApplyReceive applies the reconciliation outcome in one transaction.
// When the full header update is rejected, the whole transaction is
// retried writing the status column only.
func (r *GormMutationRepository) ApplyReceive(ctx context.Context, headerID string, upd mutation.ReceiveUpdate, lines []mutation.LineUpdate) error {
	fullUpdate := map[string]any{
		"status":        upd.Status,
		"received_by":   upd.ReceivedBy,
		"received_at":   upd.ReceivedAt,
		"diterima_oleh": upd.ReceivedBy,
	}

	err := r.applyReceiveTx(ctx, headerID, fullUpdate, lines)
	if err == nil {
		return nil
	}

	r.logger.Warn("full receive update failed, retrying with status only",
		zap.String("header_id", headerID),
		zap.Error(err))
	return r.applyReceiveTx(ctx, headerID, map[string]any{"status": upd.Status}, lines)
}

func (r *GormMutationRepository) applyReceiveTx(ctx context.Context, headerID string, headerUpdate map[string]any, lines []mutation.LineUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			result := tx.Model(&mutation.Line{}).
				Where("id = ? AND header_id = ?", line.LineID, headerID).
				Update("qty_received", line.QtyReceived)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.NewNotFoundError("mutation line not found: " + line.LineID)
			}
		}

		result := tx.Model(&mutation.Header{}).
			Where("id = ?", headerID).
			Updates(headerUpdate)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ mutation.Repository = (*GormMutationRepository)(nil)
