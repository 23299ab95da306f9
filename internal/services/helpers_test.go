package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/repo"
)

const (
	adminChat int64 = -1001
	customer  int64 = 777
)

const catalogJSON = `{
  "t_shirts": [{"model_id": "ts1", "model_name": "Tee", "colors": ["https://img/ts1-0.jpg", "https://img/ts1-1.jpg"]}],
  "hoodies":  [{"model_id": "hd1", "model_name": "Hoodie", "colors": ["https://img/hd1.jpg"]}]
}`

type harness struct {
	db     *gorm.DB
	rec    *messenger.Recorder
	ledger *Ledger
	orders *OrderService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	cat, err := catalog.FromReader(strings.NewReader(catalogJSON))
	require.NoError(t, err)
	rec := &messenger.Recorder{}
	ledger := &Ledger{DB: db}
	return &harness{
		db:     db,
		rec:    rec,
		ledger: ledger,
		orders: NewOrderService(db, ledger, cat, rec, adminChat, "4441 1111 4061 5463"),
	}
}

func readyDraft(ref string, pay domain.PaymentMethod) domain.Draft {
	return domain.Draft{
		Category:   domain.CategoryOf(ref),
		ProductRef: ref,
		Size:       "M",
		Payment:    pay,
		Shipping:   domain.ShippingInfo{City: "Київ", Branch: "12", Name: "Іван Петренко", Phone: "+380501112233"},
	}
}

// seed inserts an order directly in the given status.
func (h *harness) seed(t *testing.T, status domain.Status) *domain.Order {
	t.Helper()
	o := &domain.Order{
		UserID: customer, ProductRef: "ts1", Size: "M",
		PaymentMethod: domain.PaymentCash, Status: status, Price: 1150,
		Shipping: domain.ShippingInfo{City: "Київ", Branch: "12", Name: "Іван", Phone: "+380501112233"},
	}
	require.NoError(t, h.db.Create(o).Error)
	return o
}

func (h *harness) status(t *testing.T, id uint) domain.Status {
	t.Helper()
	o, err := repo.GetOrder(context.Background(), h.db, id)
	require.NoError(t, err)
	return o.Status
}
