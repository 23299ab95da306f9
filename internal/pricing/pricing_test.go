package pricing

import (
	"strings"
	"testing"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

func TestComputePrice_Amounts(t *testing.T) {
	cases := []struct {
		name string
		cat  domain.Category
		d    domain.Discounts
		want int
	}{
		{"tshirt none", domain.CategoryTShirt, domain.Discounts{}, 1150},
		{"tshirt ubd", domain.CategoryTShirt, domain.Discounts{UBD: true}, 1035},
		{"tshirt repost", domain.CategoryTShirt, domain.Discounts{Repost: true}, 1035},
		{"tshirt both", domain.CategoryTShirt, domain.Discounts{UBD: true, Repost: true}, 920},
		{"hoodie none", domain.CategoryHoodie, domain.Discounts{}, 1350},
		{"hoodie ubd", domain.CategoryHoodie, domain.Discounts{UBD: true}, 1215},
		{"hoodie both", domain.CategoryHoodie, domain.Discounts{UBD: true, Repost: true}, 1080},
	}
	for _, tc := range cases {
		got, _ := ComputePrice(tc.cat, tc.d)
		if got != tc.want {
			t.Errorf("%s: ComputePrice = %d; want %d", tc.name, got, tc.want)
		}
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	a, at := ComputePrice(domain.CategoryTShirt, domain.Discounts{UBD: true, Repost: true})
	b, bt := ComputePrice(domain.CategoryTShirt, domain.Discounts{UBD: true, Repost: true})
	if a != b || at != bt {
		t.Fatalf("same input produced different output: %d/%q vs %d/%q", a, at, b, bt)
	}
}

func TestComputePrice_Breakdown(t *testing.T) {
	_, none := ComputePrice(domain.CategoryHoodie, domain.Discounts{})
	if none != NoDiscountText {
		t.Fatalf("no-discount text = %q", none)
	}
	_, both := ComputePrice(domain.CategoryTShirt, domain.Discounts{UBD: true, Repost: true})
	if !strings.Contains(both, "УБД") || !strings.Contains(both, "репост") || !strings.Contains(both, " + ") {
		t.Fatalf("breakdown should list both discounts: %q", both)
	}
	_, one := ComputePrice(domain.CategoryTShirt, domain.Discounts{Repost: true})
	if strings.Contains(one, "УБД") || strings.Contains(one, " + ") {
		t.Fatalf("breakdown should list only repost: %q", one)
	}
}

func TestForProduct_UsesPrefix(t *testing.T) {
	if p, _ := ForProduct("ts-9", domain.Discounts{}); p != BaseTShirt {
		t.Fatalf("ts product priced %d", p)
	}
	if p, _ := ForProduct("hd-9", domain.Discounts{}); p != BaseHoodie {
		t.Fatalf("hd product priced %d", p)
	}
}
