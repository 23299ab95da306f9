package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
)

const (
	adminChat int64 = -500
	customer  int64 = 42
)

// fakeCarrier answers tracking queries from a table. Numbers mapped to
// "panic" make the call panic.
type fakeCarrier struct {
	statuses map[string]carrier.TrackingStatus
	calls    atomic.Int32
}

func (f *fakeCarrier) CreateDocument(context.Context, carrier.DocumentRequest) (carrier.Document, error) {
	return carrier.Document{}, fmt.Errorf("not supported")
}

func (f *fakeCarrier) TrackingStatus(_ context.Context, number, _ string) carrier.TrackingStatus {
	f.calls.Add(1)
	if number == "panic" {
		panic("carrier exploded")
	}
	return f.statuses[number]
}

type fixture struct {
	db     *gorm.DB
	rec    *messenger.Recorder
	orders *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))

	cat, err := catalog.FromReader(strings.NewReader(
		`{"t_shirts":[{"model_id":"ts1","model_name":"Tee","colors":["https://img/ts1.jpg"]}]}`))
	require.NoError(t, err)
	rec := &messenger.Recorder{}
	ledger := &services.Ledger{DB: db}
	return &fixture{
		db:     db,
		rec:    rec,
		orders: services.NewOrderService(db, ledger, cat, rec, adminChat, "card"),
	}
}

func (f *fixture) seed(t *testing.T, status domain.Status, tracking string) *domain.Order {
	t.Helper()
	o := &domain.Order{
		UserID: customer, ProductRef: "ts1", Size: "M", PaymentMethod: domain.PaymentCash,
		Status: status, Price: 1150, TrackingNumber: tracking,
		Shipping: domain.ShippingInfo{City: "Київ", Branch: "1", Name: "Іван", Phone: "+380500000000"},
	}
	require.NoError(t, f.db.Create(o).Error)
	return o
}

func (f *fixture) reconciler(c services.Carrier) *Reconciler {
	return &Reconciler{DB: f.db, Orders: f.orders, Carrier: c, Interval: time.Hour}
}

func TestSweep_DeliversOnlyReceivedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, domain.StatusNew, "")
	f.seed(t, domain.StatusReadyToShip, "")
	byCode := f.seed(t, domain.StatusShipped, "20450000000001")
	moving := f.seed(t, domain.StatusShipped, "20450000000002")
	byPhrase := f.seed(t, domain.StatusShipped, "20450000000003")
	broken := f.seed(t, domain.StatusShipped, "20450000000004")
	f.seed(t, domain.StatusDelivered, "20450000000005")

	fc := &fakeCarrier{statuses: map[string]carrier.TrackingStatus{
		"20450000000001": {Available: true, Code: 9, Text: "Отримано"},
		"20450000000002": {Available: true, Code: 5, Text: "Прямує до міста"},
		"20450000000003": {Available: true, Text: carrier.ReceivedPhrase},
		// 20450000000004 is missing: unavailable
	}}
	rep, err := f.reconciler(fc).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Checked)
	assert.Equal(t, 2, rep.Delivered)
	assert.Equal(t, 1, rep.Failed)

	for id, want := range map[uint]domain.Status{
		byCode.ID:   domain.StatusDelivered,
		byPhrase.ID: domain.StatusDelivered,
		moving.ID:   domain.StatusShipped,
		broken.ID:   domain.StatusShipped,
	} {
		got, err := repo.GetOrder(ctx, f.db, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "order %d", id)
	}

	assert.Equal(t, 2, f.rec.Count(customer, "отримано!"))
	assert.Equal(t, 2, f.rec.Count(adminChat, "доставлено клієнту"))

	// a second sweep finds nothing new to announce
	rep, err = f.reconciler(fc).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Delivered)
	assert.Equal(t, 2, f.rec.Count(customer, "отримано!"))
}

func TestSweep_ContainsPanics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, domain.StatusShipped, "panic")
	ok := f.seed(t, domain.StatusShipped, "20450000000009")

	fc := &fakeCarrier{statuses: map[string]carrier.TrackingStatus{
		"20450000000009": {Available: true, Code: 10},
	}}
	rep, err := f.reconciler(fc).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Delivered)

	got, err := repo.GetOrder(ctx, f.db, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
}

func TestSweep_AdminAlreadyDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.seed(t, domain.StatusShipped, "20450000000001")

	_, err := f.orders.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)

	fc := &fakeCarrier{statuses: map[string]carrier.TrackingStatus{"20450000000001": {Available: true, Code: 9}}}
	rep, err := f.reconciler(fc).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Checked)
	assert.Equal(t, 1, f.rec.Count(customer, "отримано!"))
}

func TestSweep_PurgesExpiredUpdateClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, repo.ClaimUpdate(ctx, f.db, 1, customer, time.Minute))
	require.NoError(t, repo.ClaimUpdate(ctx, f.db, 2, customer, time.Hour))

	r := f.reconciler(&fakeCarrier{})
	r.Now = func() time.Time { return time.Now().UTC().Add(30 * time.Minute) }
	rep, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rep.Purged)
}

func TestSweep_ListFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&domain.Order{}))
	_, err := f.reconciler(&fakeCarrier{}).Sweep(context.Background())
	assert.Error(t, err)
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StatusShipped, "20450000000002")
	fc := &fakeCarrier{statuses: map[string]carrier.TrackingStatus{"20450000000002": {Available: true, Code: 5}}}
	r := f.reconciler(fc)
	r.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fc.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

// TestOrderLifecycle_CashTShirt walks a cash t-shirt order from checkout to
// carrier-confirmed delivery.
func TestOrderLifecycle_CashTShirt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.orders.Checkout(ctx, customer, domain.Draft{
		Category:   domain.CategoryTShirt,
		ProductRef: "ts1",
		Size:       "M",
		Payment:    domain.PaymentCash,
		Shipping:   domain.ShippingInfo{City: "Київ", Branch: "12", Name: "Іван", Phone: "+380501112233"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1150, o.Price)
	assert.Equal(t, domain.StatusNew, o.Status)

	res, err := f.orders.MarkReady(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyToShip, res.Order.Status)

	res, err = f.orders.SetTracking(ctx, o.ID, "20450000000000")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, res.Order.Status)
	assert.Equal(t, 1, f.rec.Count(customer, "20450000000000"))

	fc := &fakeCarrier{statuses: map[string]carrier.TrackingStatus{
		"20450000000000": {Available: true, Text: carrier.ReceivedPhrase},
	}}
	rep, err := f.reconciler(fc).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Delivered)

	got, err := repo.GetOrder(ctx, f.db, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	assert.Equal(t, 1, f.rec.Count(customer, "отримано!"))
	assert.Equal(t, 1, f.rec.Count(adminChat, "доставлено клієнту"))

	// the admin control message followed every transition
	edit, ok := f.rec.Last("markup")
	require.True(t, ok)
	assert.Equal(t, got.AdminMessageID, edit.MessageID)
	assert.Equal(t, services.ControlsFor(*got), edit.Keyboard)
}
