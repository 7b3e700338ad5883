package mutation

import (
	"context"

	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/mutation"
	"github.com/mutasi/backend/internal/domain/shared"
)

// ReceiveInput carries the hand-entered received quantities, keyed by
// incoming line id.
type ReceiveInput struct {
	Received map[string]string
}

// Receive reconciles a form against the entered quantities and applies
// the outcome. Only the receiving outlet (or a superadmin) may receive
// a form, and a fully received form cannot be received again.
func (s *Service) Receive(ctx context.Context, actor Actor, headerID string, input ReceiveInput) (*mutation.ReceiveResult, error) {
	header, err := s.repo.FindHeaderByID(ctx, headerID)
	if err != nil {
		return nil, err
	}

	if !actor.Superadmin {
		actorOutlet := s.actorOutletID(ctx, actor)
		receivingOutlet := header.OutletPenerimaID
		if receivingOutlet == "" {
			receivingOutlet = s.catalog.ResolveOutletID(ctx, "", header.OutletPenerima)
		}
		if actorOutlet == "" || actorOutlet != receivingOutlet {
			return nil, shared.NewDomainError(shared.CodeForbidden,
				"Hanya outlet penerima yang dapat menerima form ini")
		}
	}

	lines, err := s.repo.FindLinesByHeaderID(ctx, headerID)
	if err != nil {
		return nil, err
	}

	result, err := mutation.Reconcile(header, lines, input.Received, actor.Name, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.ApplyReceive(ctx, headerID, result.Header, result.Lines); err != nil {
		return nil, err
	}

	s.logger.Info("mutation form received",
		zap.String("no_form", header.NoForm),
		zap.String("header_id", headerID),
		zap.String("status", string(result.Status)),
		zap.Int("changed_lines", len(result.Lines)))
	return result, nil
}
