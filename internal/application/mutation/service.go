// Package mutation implements the Berita Acara Mutasi workflow: form
// submission with doubled movement lines, outlet-scoped listings, and
// receive reconciliation.
package mutation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/masterdata"
	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// submitClaimTTL bounds how long a form number stays claimed. A failed
// downstream insert releases the number after the TTL at the latest.
const submitClaimTTL = 24 * time.Hour

const dateLayout = "2006-01-02"

// OutletResolver is the slice of the catalog service this workflow needs
type OutletResolver interface {
	Outlets(ctx context.Context) []masterdata.Outlet
	ResolveOutletID(ctx context.Context, outletID, outletName string) string
	OutletByID(ctx context.Context, outletID string) (masterdata.Outlet, bool)
}

// AttachmentStore uploads a form attachment and returns its public URL
type AttachmentStore interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// FormPrinter renders the printable form. RenderHTML builds the
// document and RenderPDF converts it through headless Chrome.
type FormPrinter interface {
	RenderHTML(h *mutation.Header, lines []mutation.Line, showPrices bool) (string, error)
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID     string
	Name       string
	OutletID   string
	OutletName string
	Superadmin bool
}

// Service orchestrates the mutation workflow
type Service struct {
	repo        mutation.Repository
	catalog     OutletResolver
	idempotency shared.IdempotencyStore
	attachments AttachmentStore
	printer     FormPrinter
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes the service
type Option func(*Service)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the workflow service. The idempotency store,
// attachment store and printer are optional; a nil store disables the
// duplicate-submission guard, a nil attachment store rejects uploads,
// and a nil printer disables form previews.
func NewService(repo mutation.Repository, catalog OutletResolver, idempotency shared.IdempotencyStore,
	attachments AttachmentStore, printer FormPrinter, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:        repo,
		catalog:     catalog,
		idempotency: idempotency,
		attachments: attachments,
		printer:     printer,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// actorOutletID resolves which outlet the actor belongs to
func (s *Service) actorOutletID(ctx context.Context, actor Actor) string {
	return s.catalog.ResolveOutletID(ctx, actor.OutletID, actor.OutletName)
}
