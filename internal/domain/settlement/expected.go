// internal/domain/settlement/expected.go
package settlement

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ProductFlow is the per-product input to the shared expected-sales
// computation. Both engines reduce to it: for a vehicle, inflow is the
// quantity sent and outflow the quantity returned; for the shop, inflow is
// opening + production + transfers in and outflow is transfers out + wastage
// + the physical count.
type ProductFlow struct {
	ProductID   uint
	ProductName string
	Inflow      int
	Outflow     int
	UnitPrice   decimal.Decimal
}

// SoldQuantity returns the inferred sold quantity, clamped at zero
func (f ProductFlow) SoldQuantity() int {
	sold := f.Inflow - f.Outflow
	if sold < 0 {
		return 0
	}
	return sold
}

// ExpectedSales computes the sold-item lines and expected cash for a set of
// product flows. Products whose computed sold quantity is not positive are
// dropped from the lines; their IDs are returned separately so callers can
// surface the over-count anomaly without changing the settlement contract.
// The computation is deterministic: lines are ordered by product ID, and
// recomputing over unchanged flows yields identical output.
func ExpectedSales(flows []ProductFlow) ([]SoldItem, decimal.Decimal, []uint) {
	ordered := make([]ProductFlow, len(flows))
	copy(ordered, flows)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	var lines []SoldItem
	var overcounted []uint
	total := decimal.Zero

	for _, flow := range ordered {
		if flow.Inflow-flow.Outflow < 0 {
			overcounted = append(overcounted, flow.ProductID)
		}
		sold := flow.SoldQuantity()
		if sold <= 0 {
			continue
		}
		subtotal := flow.UnitPrice.Mul(decimal.NewFromInt(int64(sold)))
		lines = append(lines, SoldItem{
			ProductID:   flow.ProductID,
			ProductName: flow.ProductName,
			Quantity:    sold,
			UnitPrice:   flow.UnitPrice,
			TotalPrice:  subtotal,
		})
		total = total.Add(subtotal)
	}

	return lines, total, overcounted
}
