// Package pricing computes order prices from the product category and the
// customer's active discounts.
//
// Discounts are additive percentages of the base price, never compounded:
//
//	final = base * (1 - Σ active_pct), truncated to a whole currency unit
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// Base prices per category, in whole hryvnia.
const (
	BaseTShirt = 1150
	BaseHoodie = 1350
)

// Percent taken off the base by each discount programme.
const (
	PctUBD    = 10
	PctRepost = 10
)

// NoDiscountText is the breakdown shown when nothing applies.
const NoDiscountText = "🎁 **Знижки не застосовано**"

// BasePrice returns the base price for a category.
func BasePrice(c domain.Category) int {
	if c == domain.CategoryTShirt {
		return BaseTShirt
	}
	return BaseHoodie
}

// ComputePrice returns the final amount and a breakdown line listing the
// applied discounts.
func ComputePrice(c domain.Category, d domain.Discounts) (int, string) {
	pct := 0
	var parts []string
	if d.UBD {
		pct += PctUBD
		parts = append(parts, "🎖️ 10% за УБД")
	}
	if d.Repost {
		pct += PctRepost
		parts = append(parts, "🔄 10% за репост")
	}
	if pct > 100 {
		pct = 100
	}

	amount := decimal.NewFromInt(int64(BasePrice(c))).
		Mul(decimal.NewFromInt(int64(100 - pct))).
		Div(decimal.NewFromInt(100)).
		IntPart()

	if len(parts) == 0 {
		return int(amount), NoDiscountText
	}
	return int(amount), "🎁 **Ваша знижка:** " + strings.Join(parts, " + ")
}

// ForProduct prices a catalog reference.
func ForProduct(productRef string, d domain.Discounts) (int, string) {
	return ComputePrice(domain.CategoryOf(productRef), d)
}
