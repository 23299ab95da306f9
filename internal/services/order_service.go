// Package services – OrderService
//
// This file implements the OrderService, the order state machine. Every
// status change goes through transition, which reads the order, checks the
// edge against the status graph, and applies a compare-and-set write. When
// another writer got there first the order is re-read: if it already holds
// the target status the call is a no-op and no notification is sent.
//
// After a status change the customer is notified and the admin control
// message is re-rendered from ControlsFor. Notification failures are logged
// and counted; they never roll back a persisted transition.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/observability"
	"github.com/tbourn/merch-order-bot/internal/pricing"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/utils"
)

// ErrProductUnavailable is returned by checkout when the draft's product is
// no longer in the catalog.
var ErrProductUnavailable = errors.New("product no longer available")

// maxTransitionAttempts bounds the read/compare-and-set loop.
const maxTransitionAttempts = 3

var trackingRe = regexp.MustCompile(`^\d{10,20}$`)

// Result describes the outcome of a status operation. Changed is false when
// the order already held the target status.
type Result struct {
	Order   *domain.Order
	From    domain.Status
	Changed bool
}

// OrderService implements checkout and every admin or reconciliation driven
// status change.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Ledger supplies the discounts applied at checkout.
	Ledger *Ledger
	// Catalog resolves product references at checkout.
	Catalog catalog.Lookup
	// Notify is the outbound transport.
	Notify messenger.Sender

	AdminChatID int64
	CardDetails string
}

// NewOrderService wires an OrderService.
func NewOrderService(db *gorm.DB, l *Ledger, c catalog.Lookup, n messenger.Sender, adminChatID int64, card string) *OrderService {
	return &OrderService{DB: db, Ledger: l, Catalog: c, Notify: n, AdminChatID: adminChatID, CardDetails: card}
}

func (s *OrderService) notifier() notifier { return notifier{send: s.Notify} }

func orderSpan(ctx context.Context, name string, orderID uint) (context.Context, trace.Span) {
	return otel.Tracer("services/OrderService").Start(ctx, name,
		trace.WithAttributes(attribute.Int64("order.id", int64(orderID))))
}

// Checkout turns a completed draft into a persisted order.
//
// The price is recomputed from the product and the user's current discounts;
// the draft's displayed price is not trusted. Cash orders start as New and
// the admin receives a control message. Card orders start as
// AwaitingPayment and the customer receives payment instructions; the admin
// is notified once a receipt arrives.
func (s *OrderService) Checkout(ctx context.Context, userID int64, d domain.Draft) (*domain.Order, error) {
	ctx, sp := orderSpan(ctx, "Checkout", 0)
	defer sp.End()

	if !d.Ready() {
		return nil, ErrIncompleteDraft
	}
	product, err := s.Catalog.FindByID(d.ProductRef)
	if err != nil {
		return nil, ErrProductUnavailable
	}
	discounts, err := s.Ledger.GetDiscounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	price, _ := pricing.ForProduct(product.ID, discounts)

	o := &domain.Order{
		UserID:        userID,
		ProductRef:    product.ID,
		Size:          d.Size,
		ColorIndex:    d.ColorIndex,
		Options:       d.Options.Restrict(domain.CategoryOf(product.ID)),
		Shipping:      trimShipping(d.Shipping),
		PaymentMethod: d.Payment,
		Price:         price,
		Status:        domain.StatusNew,
	}
	if d.Payment == domain.PaymentCard {
		o.Status = domain.StatusAwaitingPayment
	}
	if err := repo.CreateOrder(ctx, s.DB, o); err != nil {
		return nil, err
	}
	observability.ObserveOrderCreated(string(o.PaymentMethod))
	sp.SetAttributes(attribute.Int64("order.id", int64(o.ID)))
	log.Info().Uint("order_id", o.ID).Int64("user_id", userID).Str("status", string(o.Status)).Int("price", o.Price).Msg("order created")

	n := s.notifier()
	if o.Status == domain.StatusAwaitingPayment {
		n.message(ctx, userID, cardInstructions(o.Price, s.CardDetails), paidButton())
		return o, nil
	}

	photo := messenger.Photo{URL: product.Image(d.ColorIndex)}
	if id := n.photo(ctx, s.AdminChatID, photo, newOrderCaption(*o), ControlsFor(*o)); id != 0 {
		s.setAdminMessage(ctx, o, id)
	}
	n.message(ctx, userID, txtOrderAccepted, messenger.Keyboard{})
	return o, nil
}

// AttachReceipt stores a payment receipt on the customer's newest card order
// still waiting for one and forwards it to the admin with approve and reject
// controls.
func (s *OrderService) AttachReceipt(ctx context.Context, userID int64, fileID string) (*domain.Order, error) {
	ctx, sp := orderSpan(ctx, "AttachReceipt", 0)
	defer sp.End()

	o, err := repo.LatestAwaitingReceipt(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}
	if err := repo.SetOrderReceipt(ctx, s.DB, o.ID, fileID); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return nil, ErrNoPendingPayment
		}
		return nil, err
	}
	o.ReceiptRef = fileID

	n := s.notifier()
	if id := n.photo(ctx, s.AdminChatID, messenger.Photo{FileID: fileID}, receiptCaption(*o), ControlsFor(*o)); id != 0 {
		s.setAdminMessage(ctx, o, id)
	}
	n.message(ctx, userID, txtReceiptReceived, messenger.Keyboard{})
	return o, nil
}

// ApprovePayment confirms a card payment. The receipt message named by ref
// gets the decision appended and loses its controls; a fresh control message
// for the order replaces it.
func (s *OrderService) ApprovePayment(ctx context.Context, orderID uint, ref domain.MessageRef) (Result, error) {
	ctx, sp := orderSpan(ctx, "ApprovePayment", orderID)
	defer sp.End()

	res, err := s.transition(ctx, orderID, domain.StatusPaymentConfirmed, nil)
	if err != nil || !res.Changed {
		return res, err
	}
	n := s.notifier()
	n.caption(ctx, ref.ChatID, ref.MessageID, appendDecision(ref.Caption, true, ""))
	n.message(ctx, res.Order.UserID, txtPaymentApproved(res.Order.ID), messenger.Keyboard{})
	s.resendControls(ctx, res.Order)
	return res, nil
}

// RejectPayment rejects a card payment with a mandatory reason. An empty
// reason returns ErrEmptyReason and changes nothing.
func (s *OrderService) RejectPayment(ctx context.Context, orderID uint, reason string, ref domain.MessageRef) (Result, error) {
	ctx, sp := orderSpan(ctx, "RejectPayment", orderID)
	defer sp.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Result{}, ErrEmptyReason
	}
	res, err := s.transition(ctx, orderID, domain.StatusPaymentRejected, map[string]any{"reject_reason": reason})
	if err != nil || !res.Changed {
		return res, err
	}
	n := s.notifier()
	n.caption(ctx, ref.ChatID, ref.MessageID, appendDecision(ref.Caption, false, reason))
	// The caption edit drops the buttons; put back the terminal controls.
	n.markup(ctx, s.AdminChatID, res.Order.AdminMessageID, ControlsFor(*res.Order))
	n.message(ctx, res.Order.UserID, txtPaymentRejected(res.Order.ID, reason), messenger.Keyboard{})
	return res, nil
}

// MarkReady moves a New or PaymentConfirmed order to ReadyToShip.
func (s *OrderService) MarkReady(ctx context.Context, orderID uint) (Result, error) {
	ctx, sp := orderSpan(ctx, "MarkReady", orderID)
	defer sp.End()

	res, err := s.transition(ctx, orderID, domain.StatusReadyToShip, nil)
	if err != nil || !res.Changed {
		return res, err
	}
	s.afterTransition(ctx, res.Order, txtReady(res.Order.ID))
	return res, nil
}

// NormalizeTracking strips spaces from a typed tracking number and checks
// that 10 to 20 digits remain.
func NormalizeTracking(s string) (string, error) {
	s = strings.Join(strings.Fields(s), "")
	if !trackingRe.MatchString(s) {
		return "", ErrInvalidTracking
	}
	return s, nil
}

// SetTracking records the carrier tracking number and moves a ReadyToShip
// order to Shipped.
func (s *OrderService) SetTracking(ctx context.Context, orderID uint, tracking string) (Result, error) {
	ctx, sp := orderSpan(ctx, "SetTracking", orderID)
	defer sp.End()

	tracking, err := NormalizeTracking(tracking)
	if err != nil {
		return Result{}, err
	}
	res, err := s.transition(ctx, orderID, domain.StatusShipped, map[string]any{"tracking_number": tracking})
	if err != nil || !res.Changed {
		return res, err
	}
	s.afterTransition(ctx, res.Order, txtShipped(res.Order.ID, tracking))
	return res, nil
}

// MarkDelivered moves a Shipped order to Delivered and tells both the
// customer and the admin. It serves both the admin button and the
// reconciliation sweep; whichever lands second is a no-op.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uint) (Result, error) {
	ctx, sp := orderSpan(ctx, "MarkDelivered", orderID)
	defer sp.End()

	res, err := s.transition(ctx, orderID, domain.StatusDelivered, nil)
	if err != nil || !res.Changed {
		return res, err
	}
	s.afterTransition(ctx, res.Order, txtDelivered(res.Order.ID))
	s.notifier().message(ctx, s.AdminChatID, txtAdminDelivered(*res.Order), messenger.Keyboard{})
	return res, nil
}

// Cancel moves any non-terminal order to Cancelled. The reason is optional.
func (s *OrderService) Cancel(ctx context.Context, orderID uint, reason string) (Result, error) {
	ctx, sp := orderSpan(ctx, "Cancel", orderID)
	defer sp.End()

	reason = strings.TrimSpace(reason)
	var extra map[string]any
	if reason != "" {
		extra = map[string]any{"reject_reason": reason}
	}
	res, err := s.transition(ctx, orderID, domain.StatusCancelled, extra)
	if err != nil || !res.Changed {
		return res, err
	}
	s.afterTransition(ctx, res.Order, txtCancelled(res.Order.ID, reason))
	return res, nil
}

// Details returns one order, or ErrOrderNotFound.
func (s *OrderService) Details(ctx context.Context, orderID uint) (*domain.Order, error) {
	o, err := repo.GetOrder(ctx, s.DB, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ListForUser returns a customer's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	return repo.ListOrdersByUser(ctx, s.DB, userID, limit)
}

// ListActive returns every non-terminal order, oldest first.
func (s *OrderService) ListActive(ctx context.Context) ([]domain.Order, error) {
	return repo.ListNonTerminalOrders(ctx, s.DB)
}

// ListPage returns a page of orders (newest first) and the total count,
// optionally filtered by status. page is 1-based.
func (s *OrderService) ListPage(ctx context.Context, status domain.Status, page, pageSize int) ([]domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total, err := repo.CountOrders(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListOrdersPage(ctx, s.DB, status, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ResendControls posts a new control message for o and makes it the live
// one. Used by the admin "orders in progress" list.
func (s *OrderService) ResendControls(ctx context.Context, o *domain.Order) {
	s.resendControls(ctx, o)
}

// transition applies from -> to as a compare-and-set, retrying when another
// writer changed the status in between.
func (s *OrderService) transition(ctx context.Context, id uint, to domain.Status, extra map[string]any) (Result, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		o, err := repo.GetOrder(ctx, s.DB, id)
		if errors.Is(err, repo.ErrNotFound) {
			return Result{}, ErrOrderNotFound
		}
		if err != nil {
			return Result{}, err
		}
		if o.Status == to {
			return Result{Order: o, From: o.Status}, nil
		}
		if !domain.CanTransition(o.Status, to) {
			return Result{Order: o, From: o.Status}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}

		err = repo.TransitionOrderStatus(ctx, s.DB, id, o.Status, to, extra)
		if errors.Is(err, repo.ErrStaleStatus) {
			log.Debug().Uint("order_id", id).Str("to", string(to)).Msg("stale status, re-reading order")
			continue
		}
		if err != nil {
			return Result{}, err
		}

		from := o.Status
		updated, err := repo.GetOrder(ctx, s.DB, id)
		if err != nil {
			return Result{}, err
		}
		observability.ObserveTransition(string(from), string(to))
		log.Info().Uint("order_id", id).Int64("user_id", updated.UserID).
			Str("from", string(from)).Str("to", string(to)).Msg("order status changed")
		return Result{Order: updated, From: from, Changed: true}, nil
	}
	return Result{}, repo.ErrStaleStatus
}

// afterTransition notifies the customer and refreshes the live admin
// control message.
func (s *OrderService) afterTransition(ctx context.Context, o *domain.Order, customerText string) {
	n := s.notifier()
	n.message(ctx, o.UserID, customerText, messenger.Keyboard{})
	n.markup(ctx, s.AdminChatID, o.AdminMessageID, ControlsFor(*o))
}

func (s *OrderService) resendControls(ctx context.Context, o *domain.Order) {
	id := s.notifier().message(ctx, s.AdminChatID, controlCaption(*o), ControlsFor(*o))
	if id == 0 {
		return
	}
	s.setAdminMessage(ctx, o, id)
}

// setAdminMessage makes msgID the order's one live control message. The
// previous one, if any, loses its buttons so it cannot act on stale status.
func (s *OrderService) setAdminMessage(ctx context.Context, o *domain.Order, msgID int) {
	if err := repo.SetOrderAdminMessage(ctx, s.DB, o.ID, msgID); err != nil {
		log.Error().Err(err).Uint("order_id", o.ID).Msg("store admin message id")
		return
	}
	if old := o.AdminMessageID; old != 0 && old != msgID {
		s.notifier().markup(ctx, s.AdminChatID, old, messenger.Keyboard{})
	}
	o.AdminMessageID = msgID
}

func trimShipping(in domain.ShippingInfo) domain.ShippingInfo {
	return domain.ShippingInfo{
		City:   strings.TrimSpace(in.City),
		Branch: strings.TrimSpace(in.Branch),
		Name:   strings.TrimSpace(in.Name),
		Phone:  strings.TrimSpace(in.Phone),
	}
}
