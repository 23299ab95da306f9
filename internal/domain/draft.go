package domain

import "strings"

// Category is a product family with its own base price and option set.
type Category string

const (
	CategoryTShirt Category = "t_shirts"
	CategoryHoodie Category = "hoodies"
)

// CategoryOf derives the category from a catalog model id ("ts..." for
// t-shirts, anything else is a hoodie).
func CategoryOf(productRef string) Category {
	if strings.HasPrefix(productRef, "ts") {
		return CategoryTShirt
	}
	return CategoryHoodie
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash" // cash on delivery at the carrier branch
	PaymentCard PaymentMethod = "card" // prepaid card transfer, verified by receipt
)

// DiscountKind names one of the two discount programmes.
type DiscountKind string

const (
	DiscountUBD    DiscountKind = "ubd"
	DiscountRepost DiscountKind = "repost"
)

// Valid reports whether k is a known discount kind.
func (k DiscountKind) Valid() bool { return k == DiscountUBD || k == DiscountRepost }

// Discounts is the set of currently approved discounts for a user.
type Discounts struct {
	UBD    bool
	Repost bool
}

// Has reports whether the discount of kind k is active.
func (d Discounts) Has(k DiscountKind) bool {
	switch k {
	case DiscountUBD:
		return d.UBD
	case DiscountRepost:
		return d.Repost
	}
	return false
}

// Option is a single toggleable print option.
type Option string

const (
	OptionMadeInUkraine Option = "made_in_ukraine"
	OptionBackText      Option = "back_text"
	OptionBackPrint     Option = "back_print"
	OptionCollar        Option = "collar"
	OptionSleeveText    Option = "sleeve_text"
)

// Sizes is the closed list of sizes offered for every category.
var Sizes = []string{"S", "M", "L", "XL", "XXL"}

// ValidSize reports whether s is an offered size.
func ValidSize(s string) bool {
	for _, v := range Sizes {
		if v == s {
			return true
		}
	}
	return false
}

// OptionsFor returns the options a category offers, in display order.
func OptionsFor(c Category) []Option {
	if c == CategoryTShirt {
		return []Option{OptionMadeInUkraine, OptionBackText, OptionBackPrint}
	}
	return []Option{OptionCollar, OptionSleeveText, OptionBackPrint}
}

// Get reports whether option o is enabled.
func (f OptionFlags) Get(o Option) bool {
	switch o {
	case OptionMadeInUkraine:
		return f.MadeInUkraine
	case OptionBackText:
		return f.BackText
	case OptionBackPrint:
		return f.BackPrint
	case OptionCollar:
		return f.Collar
	case OptionSleeveText:
		return f.SleeveText
	}
	return false
}

// Toggle flips option o and returns the updated flags.
func (f OptionFlags) Toggle(o Option) OptionFlags {
	switch o {
	case OptionMadeInUkraine:
		f.MadeInUkraine = !f.MadeInUkraine
	case OptionBackText:
		f.BackText = !f.BackText
	case OptionBackPrint:
		f.BackPrint = !f.BackPrint
	case OptionCollar:
		f.Collar = !f.Collar
	case OptionSleeveText:
		f.SleeveText = !f.SleeveText
	}
	return f
}

// Restrict clears every flag the category does not offer.
func (f OptionFlags) Restrict(c Category) OptionFlags {
	var out OptionFlags
	for _, o := range OptionsFor(c) {
		if f.Get(o) {
			out = out.Toggle(o)
		}
	}
	return out
}

// Step is the customer's position in the conversation.
type Step int

const (
	StepIdle Step = iota
	StepSize
	StepBrowse
	StepPayment
	StepCity
	StepBranch
	StepName
	StepPhone
	StepReceipt
	StepProofUBD
	StepProofRepost
	StepSupportIssue
)

// MessageRef identifies a sent message that may be edited later. Caption
// keeps the original text so a decision can be appended to it.
type MessageRef struct {
	ChatID    int64
	MessageID int
	Caption   string
}

// Draft is the typed, in-memory state of one customer's checkout flow.
// Price is recomputed from ProductRef and the ledger before every display.
type Draft struct {
	Step         Step
	Category     Category
	ProductIndex int
	ProductRef   string
	ProductName  string
	Size         string
	ColorIndex   int
	Options      OptionFlags
	Payment      PaymentMethod
	Price        int
	Shipping     ShippingInfo
	Pending      MessageRef // product card edited in place while browsing
}

// Ready reports whether the draft has everything checkout needs.
func (d Draft) Ready() bool {
	return d.ProductRef != "" && ValidSize(d.Size) &&
		(d.Payment == PaymentCash || d.Payment == PaymentCard) &&
		strings.TrimSpace(d.Shipping.City) != "" &&
		strings.TrimSpace(d.Shipping.Branch) != "" &&
		strings.TrimSpace(d.Shipping.Name) != "" &&
		strings.TrimSpace(d.Shipping.Phone) != ""
}
