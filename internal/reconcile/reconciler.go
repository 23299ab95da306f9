// Package reconcile runs the periodic sweep that aligns order status with
// the carrier's delivery status.
//
// A sweep loads every non-terminal order, queries the carrier for each one
// that has a tracking number, and marks the order Delivered when the carrier
// reports the parcel as received. The transition goes through the same
// compare-and-set path as the admin button, so an order delivered by both
// produces one set of notifications. A failure on one order is logged and
// the sweep moves on.
//
// Run executes sweeps back to back with a fixed pause between the end of one
// and the start of the next, so sweeps never overlap.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/observability"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
)

// Deliverer applies the Delivered transition.
type Deliverer interface {
	MarkDelivered(ctx context.Context, orderID uint) (services.Result, error)
}

// Report summarizes one sweep.
type Report struct {
	Checked   int // orders queried at the carrier
	Delivered int // orders moved to Delivered by this sweep
	Failed    int // orders whose query or transition failed
	Purged    int64
}

// Reconciler owns the sweep's collaborators.
type Reconciler struct {
	DB       *gorm.DB
	Orders   Deliverer
	Carrier  services.Carrier
	Interval time.Duration

	// Now is the clock used for purging update claims. Defaults to UTC now.
	Now func() time.Time
}

// Sweep performs one reconciliation pass. It only returns an error when the
// order list itself cannot be read.
func (r *Reconciler) Sweep(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer("reconcile/Reconciler").Start(ctx, "Sweep")
	defer span.End()
	start := time.Now()

	var rep Report
	orders, err := repo.ListNonTerminalOrders(ctx, r.DB)
	if err != nil {
		observability.ObserveSweep(time.Since(start), "error")
		span.RecordError(err)
		return rep, fmt.Errorf("list orders: %w", err)
	}

	for _, o := range orders {
		if ctx.Err() != nil {
			break
		}
		if o.TrackingNumber == "" {
			continue
		}
		rep.Checked++
		delivered, err := r.check(ctx, o)
		switch {
		case err != nil:
			rep.Failed++
			log.Warn().Err(err).Uint("order_id", o.ID).Int64("user_id", o.UserID).
				Str("tracking", o.TrackingNumber).Msg("reconcile order failed")
		case delivered:
			rep.Delivered++
		}
	}

	now := func() time.Time { return time.Now().UTC() }
	if r.Now != nil {
		now = r.Now
	}
	if n, err := repo.PurgeExpiredUpdates(ctx, r.DB, now()); err != nil {
		log.Warn().Err(err).Msg("purge processed updates")
	} else {
		rep.Purged = n
	}
	r.publishGauge(ctx)

	outcome := "ok"
	if rep.Failed > 0 {
		outcome = "partial"
	}
	observability.ObserveSweep(time.Since(start), outcome)
	span.SetAttributes(
		attribute.Int("orders.checked", rep.Checked),
		attribute.Int("orders.delivered", rep.Delivered),
		attribute.Int("orders.failed", rep.Failed),
	)
	log.Info().Int("checked", rep.Checked).Int("delivered", rep.Delivered).
		Int("failed", rep.Failed).Dur("took", time.Since(start)).Msg("reconcile sweep finished")
	return rep, nil
}

// check handles one order. A panic in a collaborator is turned into an error
// so the remaining orders are still processed.
func (r *Reconciler) check(ctx context.Context, o domain.Order) (delivered bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	st := r.Carrier.TrackingStatus(ctx, o.TrackingNumber, o.Shipping.Phone)
	switch {
	case !st.Available:
		observability.ObserveCarrierQuery("unavailable")
		return false, fmt.Errorf("carrier status unavailable")
	case !st.Received():
		observability.ObserveCarrierQuery("in_transit")
		return false, nil
	}
	observability.ObserveCarrierQuery("received")

	res, err := r.Orders.MarkDelivered(ctx, o.ID)
	if err != nil {
		return false, err
	}
	return res.Changed, nil
}

func (r *Reconciler) publishGauge(ctx context.Context) {
	counts, err := repo.CountOrdersByStatus(ctx, r.DB)
	if err != nil {
		log.Warn().Err(err).Msg("count orders by status")
		return
	}
	known := make([]string, len(domain.AllStatuses))
	byName := make(map[string]int64, len(counts))
	for i, s := range domain.AllStatuses {
		known[i] = string(s)
	}
	for s, n := range counts {
		byName[string(s)] = n
	}
	observability.SetOrdersByStatus(known, byName)
}

// Run sweeps until ctx is cancelled, pausing Interval after each sweep
// completes.
func (r *Reconciler) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := r.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("reconcile sweep")
		}
		timer.Reset(r.Interval)
	}
}
