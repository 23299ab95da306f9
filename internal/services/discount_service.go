// Package services – DiscountService
//
// This file implements the discount approval pipeline. A customer submits a
// proof photo; the admin receives it with approve and reject controls and the
// message id is stored per discount kind. The decision is appended to that
// message, its controls are removed, and the customer is told the outcome.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/repo"
)

// DiscountService runs discount proof submission and admin decisions.
type DiscountService struct {
	Ledger      *Ledger
	Notify      messenger.Sender
	AdminChatID int64
}

func discountSpan(ctx context.Context, name string, userID int64, kind domain.DiscountKind) (context.Context, trace.Span) {
	return otel.Tracer("services/DiscountService").Start(ctx, name,
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("discount.kind", string(kind)),
		))
}

// CanSubmit reports whether the user may submit a proof for kind. It returns
// ErrRepostAlreadyUsed once a repost was ever approved and ErrDiscountActive
// when the discount is currently approved.
func (s *DiscountService) CanSubmit(ctx context.Context, userID int64, kind domain.DiscountKind) error {
	if !kind.Valid() {
		return ErrUnknownDiscount
	}
	d, err := s.Ledger.Entry(ctx, userID)
	if err != nil {
		return err
	}
	if kind == domain.DiscountRepost && d.RepostEverUsed {
		return ErrRepostAlreadyUsed
	}
	a := d.Active()
	if (kind == domain.DiscountUBD && a.UBD) || (kind == domain.DiscountRepost && a.Repost) {
		return ErrDiscountActive
	}
	return nil
}

// SubmitProof forwards a proof photo to the admin.
func (s *DiscountService) SubmitProof(ctx context.Context, userID int64, kind domain.DiscountKind, fileID string) error {
	ctx, sp := discountSpan(ctx, "SubmitProof", userID, kind)
	defer sp.End()

	if err := s.CanSubmit(ctx, userID, kind); err != nil {
		return err
	}
	n := notifier{send: s.Notify}
	id := n.photo(ctx, s.AdminChatID, messenger.Photo{FileID: fileID}, proofCaption(userID, kind), discountControls(userID, kind))
	if id != 0 {
		if err := repo.SetDiscountAdminMessage(ctx, s.Ledger.DB, userID, kind, id); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Msg("store discount admin message id")
		}
	}
	n.message(ctx, userID, txtProofReceived, messenger.Keyboard{})
	return nil
}

// Approve grants the discount and finalizes the admin message named by ref.
// Approving a discount that is already active changes and sends nothing.
func (s *DiscountService) Approve(ctx context.Context, userID int64, kind domain.DiscountKind, ref domain.MessageRef) error {
	ctx, sp := discountSpan(ctx, "Approve", userID, kind)
	defer sp.End()

	active, err := s.Ledger.GetDiscounts(ctx, userID)
	if err != nil {
		return err
	}
	if active.Has(kind) {
		log.Debug().Int64("user_id", userID).Str("kind", string(kind)).Msg("discount already approved")
		return nil
	}
	if err := s.Ledger.Approve(ctx, userID, kind); err != nil {
		return err
	}
	log.Info().Int64("user_id", userID).Str("kind", string(kind)).Msg("discount approved")
	n := notifier{send: s.Notify}
	n.caption(ctx, ref.ChatID, s.messageID(ctx, userID, kind, ref), appendDecision(ref.Caption, true, ""))
	n.message(ctx, userID, txtDiscountApproved(kind), messenger.Keyboard{})
	return nil
}

// Reject clears the discount with a mandatory reason. An empty reason
// returns ErrEmptyReason and leaves the ledger unchanged.
func (s *DiscountService) Reject(ctx context.Context, userID int64, kind domain.DiscountKind, reason string, ref domain.MessageRef) error {
	ctx, sp := discountSpan(ctx, "Reject", userID, kind)
	defer sp.End()

	if err := s.Ledger.Reject(ctx, userID, kind, reason); err != nil {
		return err
	}
	d, err := s.Ledger.Entry(ctx, userID)
	if err != nil {
		return err
	}
	why := d.RejectUBD
	if kind == domain.DiscountRepost {
		why = d.RejectRepost
	}
	log.Info().Int64("user_id", userID).Str("kind", string(kind)).Msg("discount rejected")
	n := notifier{send: s.Notify}
	n.caption(ctx, ref.ChatID, s.messageID(ctx, userID, kind, ref), appendDecision(ref.Caption, false, why))
	n.message(ctx, userID, txtDiscountRejected(kind, why), messenger.Keyboard{})
	return nil
}

// messageID prefers the id carried by the callback and falls back to the
// one stored at submission.
func (s *DiscountService) messageID(ctx context.Context, userID int64, kind domain.DiscountKind, ref domain.MessageRef) int {
	if ref.MessageID != 0 {
		return ref.MessageID
	}
	d, err := s.Ledger.Entry(ctx, userID)
	if err != nil {
		return 0
	}
	if kind == domain.DiscountRepost {
		return d.AdminMsgRepost
	}
	return d.AdminMsgUBD
}
