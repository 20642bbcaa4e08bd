package cart

import (
	"math"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
)

type Totals struct {
	ItemCount int   `json:"item_count"`
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	Tax       int64 `json:"tax"`
	Total     int64 `json:"total"`
}

// ComputeTotals prices items. Shipping is free only when the subtotal is
// strictly above the threshold, so an empty cart still shows the fee.
func ComputeTotals(items []Item, p config.Checkout) Totals {
	var t Totals
	for _, it := range items {
		t.ItemCount += it.Quantity
		t.Subtotal += it.Price * int64(it.Quantity)
	}
	if t.Subtotal <= p.FreeShippingThreshold {
		t.Shipping = p.ShippingFee
	}
	t.Tax = int64(math.Round(float64(t.Subtotal) * p.TaxRate))
	t.Total = t.Subtotal + t.Shipping + t.Tax
	return t
}
