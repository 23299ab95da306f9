package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/observability"
	"github.com/tbourn/merch-order-bot/internal/repo"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Dispatcher runs one worker goroutine per active chat so that events of a
// chat are handled one at a time in arrival order, while different chats
// proceed in parallel. Workers exit after IdleTimeout without events.
//
// Every update id is claimed in the processed-updates table before the
// handler runs; a redelivered update is dropped. A panicking handler is
// recovered and logged.
type Dispatcher struct {
	Handler Handler

	// DB enables the replay guard when non-nil.
	DB       *gorm.DB
	ClaimTTL time.Duration

	QueueSize      int
	IdleTimeout    time.Duration
	HandlerTimeout time.Duration

	mu     sync.Mutex
	queues map[int64]chan Event
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher with default limits.
func NewDispatcher(h Handler, db *gorm.DB, claimTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		Handler:        h,
		DB:             db,
		ClaimTTL:       claimTTL,
		QueueSize:      64,
		IdleTimeout:    time.Minute,
		HandlerTimeout: 30 * time.Second,
	}
}

// Dispatch queues ev on its chat's worker, starting one if needed. When the
// chat's queue is full the event is dropped and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queues == nil {
		d.queues = make(map[int64]chan Event)
	}
	q, ok := d.queues[ev.ChatID]
	if !ok {
		size := d.QueueSize
		if size <= 0 {
			size = 64
		}
		q = make(chan Event, size)
		d.queues[ev.ChatID] = q
		d.wg.Add(1)
		go d.worker(ctx, ev.ChatID, q)
	}
	select {
	case q <- ev:
	default:
		observability.ObserveUpdate(ev.Kind(), "dropped")
		log.Warn().Int64("chat_id", ev.ChatID).Int("update_id", ev.UpdateID).Msg("chat queue full, update dropped")
	}
}

// Wait blocks until every worker has exited. Workers exit when the context
// passed to Dispatch is cancelled.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Active returns the number of running chat workers.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

func (d *Dispatcher) worker(ctx context.Context, chatID int64, q chan Event) {
	defer d.wg.Done()
	idle := d.IdleTimeout
	if idle <= 0 {
		idle = time.Minute
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.remove(chatID)
			return
		case ev := <-q:
			d.handle(ctx, ev)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		case <-timer.C:
			d.mu.Lock()
			if len(q) == 0 {
				delete(d.queues, chatID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(idle)
		}
	}
}

func (d *Dispatcher) remove(chatID int64) {
	d.mu.Lock()
	delete(d.queues, chatID)
	d.mu.Unlock()
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	kind := ev.Kind()
	ctx, span := otel.Tracer("bot/Dispatcher").Start(ctx, "HandleUpdate",
		trace.WithAttributes(
			attribute.Int("update.id", ev.UpdateID),
			attribute.Int64("chat.id", ev.ChatID),
			attribute.String("update.kind", kind),
		))
	defer span.End()

	if d.DB != nil && ev.UpdateID > 0 {
		err := repo.ClaimUpdate(ctx, d.DB, ev.UpdateID, ev.ChatID, d.ClaimTTL)
		if errors.Is(err, repo.ErrDuplicate) {
			observability.ObserveUpdate(kind, "duplicate")
			log.Debug().Int("update_id", ev.UpdateID).Msg("update already processed")
			return
		}
		if err != nil {
			log.Warn().Err(err).Int("update_id", ev.UpdateID).Msg("claim update")
		}
	}

	if d.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandlerTimeout)
		defer cancel()
	}

	outcome := "ok"
	if err := d.safeHandle(ctx, ev); err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Int64("chat_id", ev.ChatID).Int("update_id", ev.UpdateID).Str("kind", kind).Msg("handle update")
	}
	observability.ObserveUpdate(kind, outcome)
}

func (d *Dispatcher) safeHandle(ctx context.Context, ev Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return d.Handler.Handle(ctx, ev)
}
