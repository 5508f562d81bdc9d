// internal/domain/settlement/expected_test.go
package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestExpectedSales_VehicleRoundTrip(t *testing.T) {
	// Vehicle sent 10 units at 50, brought 3 back
	flows := []ProductFlow{
		{ProductID: 1, ProductName: "Croissant", Inflow: 10, Outflow: 3, UnitPrice: price(50)},
	}

	lines, total, overcounted := ExpectedSales(flows)

	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.True(t, lines[0].TotalPrice.Equal(price(350)))
	assert.True(t, total.Equal(price(350)))
	assert.Empty(t, overcounted)

	// With a 2000 float the driver owes 2350
	floatCash := price(2000)
	assert.True(t, floatCash.Add(total).Equal(price(2350)))
}

func TestExpectedSales_ShopShortfall(t *testing.T) {
	// Opening 20, no arrivals, wastage 2, counted 10: 8 must have been sold
	flows := []ProductFlow{
		{ProductID: 5, ProductName: "Baguette", Inflow: 20, Outflow: 2 + 10, UnitPrice: price(30)},
	}

	lines, total, overcounted := ExpectedSales(flows)

	require.Len(t, lines, 1)
	assert.Equal(t, 8, lines[0].Quantity)
	assert.True(t, total.Equal(price(240)))
	assert.Empty(t, overcounted)
}

func TestExpectedSales_DropsNonPositiveSold(t *testing.T) {
	flows := []ProductFlow{
		{ProductID: 1, Inflow: 5, Outflow: 5, UnitPrice: price(10)}, // nothing sold
		{ProductID: 2, Inflow: 3, Outflow: 7, UnitPrice: price(10)}, // counted more than arrived
		{ProductID: 3, Inflow: 4, Outflow: 1, UnitPrice: price(10)},
	}

	lines, total, overcounted := ExpectedSales(flows)

	require.Len(t, lines, 1)
	assert.Equal(t, uint(3), lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, total.Equal(price(30)))
	assert.Equal(t, []uint{2}, overcounted)
}

func TestExpectedSales_DeterministicOrdering(t *testing.T) {
	flows := []ProductFlow{
		{ProductID: 9, Inflow: 2, Outflow: 0, UnitPrice: price(5)},
		{ProductID: 1, Inflow: 2, Outflow: 0, UnitPrice: price(5)},
		{ProductID: 4, Inflow: 2, Outflow: 0, UnitPrice: price(5)},
	}

	lines, _, _ := ExpectedSales(flows)

	require.Len(t, lines, 3)
	assert.Equal(t, uint(1), lines[0].ProductID)
	assert.Equal(t, uint(4), lines[1].ProductID)
	assert.Equal(t, uint(9), lines[2].ProductID)

	// Input order must not matter
	reordered := []ProductFlow{flows[2], flows[0], flows[1]}
	again, totalAgain, _ := ExpectedSales(reordered)
	require.Len(t, again, 3)
	for i := range lines {
		assert.Equal(t, lines[i], again[i])
	}
	assert.True(t, totalAgain.Equal(price(30)))
}

func TestExpectedSales_IdempotentRecomputation(t *testing.T) {
	flows := []ProductFlow{
		{ProductID: 1, ProductName: "Bun", Inflow: 12, Outflow: 4, UnitPrice: price(15)},
		{ProductID: 2, ProductName: "Roll", Inflow: 6, Outflow: 6, UnitPrice: price(25)},
	}

	first, firstTotal, _ := ExpectedSales(flows)
	second, secondTotal, _ := ExpectedSales(flows)

	assert.Equal(t, first, second)
	assert.True(t, firstTotal.Equal(secondTotal))
}

func TestExpectedSales_Empty(t *testing.T) {
	lines, total, overcounted := ExpectedSales(nil)
	assert.Empty(t, lines)
	assert.True(t, total.Equal(decimal.Zero))
	assert.Empty(t, overcounted)
}

func TestVehicleSettlement_ItemsSold(t *testing.T) {
	s := &VehicleSettlement{
		Items: []VehicleSettlementItem{
			{ProductID: 1, ProductName: "Croissant", QuantitySent: 10, QuantityReturned: 3, QuantitySold: 7, UnitPrice: price(50), SoldValue: price(350)},
			{ProductID: 2, ProductName: "Scone", QuantitySent: 4, QuantityReturned: 4, QuantitySold: 0, UnitPrice: price(20), SoldValue: decimal.Zero},
		},
	}

	sold := s.ItemsSold()
	require.Len(t, sold, 1)
	assert.Equal(t, uint(1), sold[0].ProductID)
	assert.Equal(t, 7, sold[0].Quantity)
	assert.True(t, sold[0].TotalPrice.Equal(price(350)))
}

func TestShopSettlement_ItemsSold(t *testing.T) {
	s := &ShopSettlement{
		Items: []ShopSettlementItem{
			{ProductID: 5, ProductName: "Baguette", QuantitySold: 8, UnitPrice: price(30), SoldValue: price(240)},
			{ProductID: 6, ProductName: "Loaf", QuantitySold: 0},
		},
	}

	sold := s.ItemsSold()
	require.Len(t, sold, 1)
	assert.Equal(t, uint(5), sold[0].ProductID)
	assert.True(t, sold[0].TotalPrice.Equal(price(240)))
}

func TestStatusTerminality(t *testing.T) {
	v := &VehicleSettlement{Status: StatusPending}
	assert.False(t, v.IsSettled())
	v.Status = StatusSettled
	assert.True(t, v.IsSettled())

	sh := &ShopSettlement{Status: StatusSettled}
	assert.True(t, sh.IsSettled())
}
