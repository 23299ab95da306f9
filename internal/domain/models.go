// Package domain defines the persistence models for orders, discount
// eligibility, and support issues, together with the order status vocabulary
// and the in-conversation draft types. The models are mapped with GORM and
// form the core data layer of the order bot.
package domain

import "time"

// ShippingInfo is the recipient's delivery destination as typed by the
// customer during checkout. Branch is a carrier warehouse number.
type ShippingInfo struct {
	City   string `json:"city"   gorm:"type:varchar(128)"`
	Branch string `json:"branch" gorm:"type:varchar(64)"`
	Name   string `json:"name"   gorm:"type:varchar(255)"`
	Phone  string `json:"phone"  gorm:"type:varchar(32)"`
}

// OptionFlags is the fixed set of print options an order may carry. Which
// flags apply depends on the product category (see OptionsFor).
type OptionFlags struct {
	MadeInUkraine bool `json:"made_in_ukraine" gorm:"not null;default:false"`
	BackText      bool `json:"back_text"       gorm:"not null;default:false"`
	BackPrint     bool `json:"back_print"      gorm:"not null;default:false"`
	Collar        bool `json:"collar"          gorm:"not null;default:false"`
	SleeveText    bool `json:"sleeve_text"     gorm:"not null;default:false"`
}

// Order is a persisted customer order. Orders are never deleted; they only
// move along the status graph (see CanTransition).
//
// Fields:
//   - ID: autoincrement integer assigned at creation.
//   - UserID: customer chat identifier, indexed for "my orders".
//   - ProductRef: catalog model id; its prefix encodes the category.
//   - Status: stable internal code, never the display label.
//   - TrackingNumber: carrier document number, set when the order ships.
//   - ReceiptRef: transport file id of the payment receipt (card orders).
//   - AdminMessageID: the one admin message whose buttons mirror Status.
type Order struct {
	ID             uint          `json:"id"               gorm:"primaryKey;autoIncrement"`
	UserID         int64         `json:"user_id"          gorm:"not null;index:idx_orders_user"`
	ProductRef     string        `json:"product_ref"      gorm:"type:varchar(64);not null"`
	Size           string        `json:"size"             gorm:"type:varchar(8)"`
	Options        OptionFlags   `json:"options"          gorm:"embedded"`
	Shipping       ShippingInfo  `json:"shipping"         gorm:"embedded;embeddedPrefix:ship_"`
	PaymentMethod  PaymentMethod `json:"payment_method"   gorm:"type:varchar(8);not null"`
	Status         Status        `json:"status"           gorm:"type:varchar(32);not null;index:idx_orders_status"`
	Price          int           `json:"price"            gorm:"not null"`
	TrackingNumber string        `json:"tracking_number,omitempty" gorm:"type:varchar(32)"`
	ReceiptRef     string        `json:"receipt_ref,omitempty"     gorm:"type:varchar(255)"`
	RejectReason   string        `json:"rejection_reason,omitempty" gorm:"type:text"`
	ColorIndex     int           `json:"color_index"      gorm:"not null;default:0"`
	AdminMessageID int           `json:"-"                gorm:"not null;default:0"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// Category derives the product category from the catalog reference.
func (o Order) Category() Category { return CategoryOf(o.ProductRef) }

// Discount is the per-user discount ledger row. It is created lazily on
// first query and never deleted.
//
// RepostEverUsed is a one-time latch: it becomes true when a repost discount
// is approved and is never cleared, even by a later rejection.
type Discount struct {
	UserID         int64  `gorm:"primaryKey;autoIncrement:false"`
	UBD            bool   `gorm:"column:ubd;not null;default:false"`
	Repost         bool   `gorm:"not null;default:false"`
	RepostEverUsed bool   `gorm:"not null;default:false"`
	RejectUBD      string `gorm:"column:reject_reason_ubd;type:text"`
	RejectRepost   string `gorm:"column:reject_reason_repost;type:text"`
	AdminMsgUBD    int    `gorm:"column:admin_message_id_ubd;not null;default:0"`
	AdminMsgRepost int    `gorm:"column:admin_message_id_repost;not null;default:0"`
}

// TableName returns the database table name for Discount.
func (Discount) TableName() string { return "discounts" }

// Active reports the currently approved discounts.
func (d Discount) Active() Discounts {
	return Discounts{UBD: d.UBD, Repost: d.Repost}
}

// SupportIssue is an immutable record of a customer's support request. Its
// ID routes the admin's reply back to the customer.
type SupportIssue struct {
	ID        uint      `json:"id"      gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Text      string    `json:"text"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for SupportIssue.
func (SupportIssue) TableName() string { return "support_issues" }
