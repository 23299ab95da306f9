// Package services – ShipmentService
//
// This file implements shipment document creation. The admin walks a short
// wizard (sender city, payer, sender branch, confirmation); the collected
// ShipmentDraft is turned into a carrier request. A carrier refusal is
// returned as *carrier.ValidationError and leaves the order untouched so the
// admin can fall back to typing the tracking number by hand.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/domain"
)

// Carrier is the shipment client contract used by the services and the
// reconciliation sweep.
type Carrier interface {
	CreateDocument(ctx context.Context, req carrier.DocumentRequest) (carrier.Document, error)
	TrackingStatus(ctx context.Context, number, phone string) carrier.TrackingStatus
}

// SenderCities maps wizard keys to the sender city sent to the carrier.
var SenderCities = map[string]string{
	"kyiv":    "Київ",
	"kharkiv": "Харків",
}

// SenderCityKeys returns the keys of SenderCities in a stable order.
func SenderCityKeys() []string {
	keys := make([]string, 0, len(SenderCities))
	for k := range SenderCities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShipmentDraft is what the admin wizard collects for one document.
type ShipmentDraft struct {
	OrderID        uint
	SenderCity     string // key of SenderCities
	CashOnDelivery bool
	SenderBranch   string
}

// ShipmentService creates carrier documents for orders ready to ship.
type ShipmentService struct {
	Orders  *OrderService
	Carrier Carrier

	SenderName  string
	SenderPhone string
}

// Request builds the carrier request for d. The order must be ReadyToShip.
func (s *ShipmentService) Request(ctx context.Context, d ShipmentDraft) (carrier.DocumentRequest, error) {
	o, err := s.Orders.Details(ctx, d.OrderID)
	if err != nil {
		return carrier.DocumentRequest{}, err
	}
	if o.Status != domain.StatusReadyToShip {
		return carrier.DocumentRequest{}, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}
	city, ok := SenderCities[d.SenderCity]
	if !ok {
		return carrier.DocumentRequest{}, fmt.Errorf("unknown sender city %q", d.SenderCity)
	}
	branch := strings.TrimSpace(d.SenderBranch)
	if branch == "" {
		return carrier.DocumentRequest{}, fmt.Errorf("sender branch: %w", ErrEmptyText)
	}
	return carrier.DocumentRequest{
		Recipient: carrier.Party{
			Name:   o.Shipping.Name,
			Phone:  o.Shipping.Phone,
			City:   o.Shipping.City,
			Branch: o.Shipping.Branch,
		},
		Sender: carrier.Party{
			Name:   s.SenderName,
			Phone:  s.SenderPhone,
			City:   city,
			Branch: branch,
		},
		DeclaredValue:  o.Price,
		CashOnDelivery: d.CashOnDelivery,
		Description:    "Одяг",
	}, nil
}

// Preview renders the confirmation screen for d.
func (s *ShipmentService) Preview(ctx context.Context, d ShipmentDraft) (string, error) {
	req, err := s.Request(ctx, d)
	if err != nil {
		return "", err
	}
	payer := "Відправник (передоплата)"
	if req.CashOnDelivery {
		payer = fmt.Sprintf("Отримувач (накладений платіж %d грн)", req.DeclaredValue)
	}
	return fmt.Sprintf("📝 **ТТН для замовлення #%d**\n\n"+
		"📤 **Відправник:** %s, %s\n🏙 %s, відділення №%s\n\n"+
		"📥 **Отримувач:** %s, %s\n🏙 %s, відділення №%s\n\n"+
		"💳 **Платник:** %s\n💸 **Оголошена вартість:** %d грн",
		d.OrderID,
		req.Sender.Name, req.Sender.Phone, req.Sender.City, req.Sender.Branch,
		req.Recipient.Name, req.Recipient.Phone, req.Recipient.City, req.Recipient.Branch,
		payer, req.DeclaredValue), nil
}

// Create submits the document and, on success, ships the order with the
// returned tracking number.
func (s *ShipmentService) Create(ctx context.Context, d ShipmentDraft) (Result, error) {
	ctx, sp := otel.Tracer("services/ShipmentService").Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("order.id", int64(d.OrderID))))
	defer sp.End()

	req, err := s.Request(ctx, d)
	if err != nil {
		return Result{}, err
	}
	doc, err := s.Carrier.CreateDocument(ctx, req)
	if err != nil {
		log.Warn().Err(err).Uint("order_id", d.OrderID).Msg("carrier document not created")
		return Result{}, err
	}
	log.Info().Uint("order_id", d.OrderID).Str("tracking", doc.Number).Msg("carrier document created")
	return s.Orders.SetTracking(ctx, d.OrderID, doc.Number)
}

// Track queries the carrier for an order's tracking number.
func (s *ShipmentService) Track(ctx context.Context, o domain.Order) carrier.TrackingStatus {
	if o.TrackingNumber == "" {
		return carrier.TrackingStatus{}
	}
	return s.Carrier.TrackingStatus(ctx, o.TrackingNumber, o.Shipping.Phone)
}
