package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
	"github.com/tbourn/merch-order-bot/internal/session"
)

const (
	adminChat int64 = -1001
	adminUser int64 = 1
	customer  int64 = 777
	stranger  int64 = 888
)

const catalogJSON = `{
  "t_shirts": [
    {"model_id": "ts1", "model_name": "Tee", "colors": ["https://img/ts1-0.jpg", "https://img/ts1-1.jpg"]},
    {"model_id": "ts2", "model_name": "Tee Two", "colors": ["https://img/ts2.jpg"]}
  ],
  "hoodies": [{"model_id": "hd1", "model_name": "Hoodie", "colors": ["https://img/hd1.jpg"]}]
}`

type fakeCarrier struct {
	doc  carrier.Document
	err  error
	reqs []carrier.DocumentRequest
}

func (f *fakeCarrier) CreateDocument(_ context.Context, req carrier.DocumentRequest) (carrier.Document, error) {
	f.reqs = append(f.reqs, req)
	return f.doc, f.err
}

func (f *fakeCarrier) TrackingStatus(context.Context, string, string) carrier.TrackingStatus {
	return carrier.TrackingStatus{Available: true, Text: "Прибув у відділення", Code: 7}
}

type harness struct {
	db      *gorm.DB
	rec     *messenger.Recorder
	carrier *fakeCarrier
	bot     *Bot
	nextID  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))

	cat, err := catalog.FromReader(strings.NewReader(catalogJSON))
	require.NoError(t, err)

	rec := &messenger.Recorder{}
	fc := &fakeCarrier{doc: carrier.Document{Number: "20450000000001", Ref: "ref-1"}}
	ledger := &services.Ledger{DB: db}
	orders := services.NewOrderService(db, ledger, cat, rec, adminChat, "4441 1111 4061 5463")

	return &harness{
		db:      db,
		rec:     rec,
		carrier: fc,
		bot: &Bot{
			Orders:      orders,
			Discounts:   &services.DiscountService{Ledger: ledger, Notify: rec, AdminChatID: adminChat},
			Shipments:   &services.ShipmentService{Orders: orders, Carrier: fc, SenderName: "Магазин", SenderPhone: "+380670000000"},
			Support:     &services.SupportService{DB: db, Notify: rec, AdminChatID: adminChat},
			Ledger:      ledger,
			Catalog:     cat,
			Send:        rec,
			AdminChatID: adminChat,
			Drafts:      session.New[domain.Draft](0),
			Dialogs:     session.New[AdminDialog](0),
		},
	}
}

func (h *harness) event(chatID int64) Event {
	h.nextID++
	user := chatID
	if chatID == adminChat {
		user = adminUser
	}
	return Event{UpdateID: h.nextID, ChatID: chatID, UserID: user, Username: "buyer"}
}

// text delivers a text message from chatID.
func (h *harness) text(t *testing.T, chatID int64, s string) {
	t.Helper()
	ev := h.event(chatID)
	ev.Text = s
	require.NoError(t, h.bot.Handle(context.Background(), ev))
}

// photo delivers a photo from chatID.
func (h *harness) photo(t *testing.T, chatID int64, fileID string) {
	t.Helper()
	ev := h.event(chatID)
	ev.PhotoID = fileID
	require.NoError(t, h.bot.Handle(context.Background(), ev))
}

// press delivers an inline-button press on message msgID.
func (h *harness) press(t *testing.T, chatID int64, data string, msgID int) {
	t.Helper()
	ev := h.event(chatID)
	ev.Callback = &Callback{ID: fmt.Sprintf("cb%d", h.nextID), Data: data, MessageID: msgID, Caption: "caption"}
	require.NoError(t, h.bot.Handle(context.Background(), ev))
}

// lastAnswer returns the text of the most recent callback answer.
func (h *harness) lastAnswer(t *testing.T) string {
	t.Helper()
	s, ok := h.rec.Last("callback")
	require.True(t, ok, "no callback answered")
	return s.Text
}

func (h *harness) lastTo(t *testing.T, chatID int64) messenger.Sent {
	t.Helper()
	sent := h.rec.To(chatID)
	require.NotEmpty(t, sent, "nothing sent to %d", chatID)
	return sent[len(sent)-1]
}

func (h *harness) order(t *testing.T, id uint) *domain.Order {
	t.Helper()
	o, err := repo.GetOrder(context.Background(), h.db, id)
	require.NoError(t, err)
	return o
}

// seed inserts a cash t-shirt order for customer in the given status.
func (h *harness) seed(t *testing.T, status domain.Status) *domain.Order {
	t.Helper()
	o := &domain.Order{
		UserID: customer, ProductRef: "ts1", Size: "L",
		PaymentMethod: domain.PaymentCash, Status: status, Price: 1150,
		Shipping: domain.ShippingInfo{City: "Львів", Branch: "3", Name: "Олена Коваль", Phone: "+380931234567"},
	}
	require.NoError(t, h.db.Create(o).Error)
	return o
}

// fillShipping walks the city/branch/name/phone prompts.
func (h *harness) fillShipping(t *testing.T, chatID int64) {
	t.Helper()
	h.text(t, chatID, "Київ")
	h.text(t, chatID, "12")
	h.text(t, chatID, "Іван Петренко")
	h.text(t, chatID, "+380 50 111 22 33")
}
