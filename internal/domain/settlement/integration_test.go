// internal/domain/settlement/integration_test.go
package settlement_test

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/production"
	"github.com/your-org/bakery-backend/internal/domain/sales"
	"github.com/your-org/bakery-backend/internal/domain/settlement"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"github.com/your-org/bakery-backend/internal/pkg/dates"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv bundles the services under test against a real database
type testEnv struct {
	db         *gorm.DB
	catalog    *catalog.Service
	ledger     *inventory.Service
	transfers  *transfer.Service
	production *production.Service
	sales      *sales.Service
	vehicles   *settlement.VehicleService
	shops      *settlement.ShopService
}

// newTestEnv connects to the test database and resets the schema. Gated
// behind INTEGRATION_TESTS=1 so the unit suite stays database-free.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=bakery_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	models := []interface{}{
		&catalog.Location{},
		&catalog.Product{},
		&inventory.InventoryEntry{},
		&inventory.Wastage{},
		&transfer.StockTransfer{},
		&production.Batch{},
		&sales.Sale{},
		&sales.SaleItem{},
		&settlement.VehicleSettlement{},
		&settlement.VehicleSettlementItem{},
		&settlement.ShopSettlement{},
		&settlement.ShopSettlementItem{},
	}
	require.NoError(t, db.AutoMigrate(models...))

	tables := []string{
		"shop_settlement_items", "shop_settlements",
		"vehicle_settlement_items", "vehicle_settlements",
		"sale_items", "sales", "production_batches",
		"stock_transfers", "wastages", "inventory_entries",
		"products", "locations",
	}
	for _, table := range tables {
		require.NoError(t, db.Exec("TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE").Error)
	}

	cfg := &config.Config{}
	cfg.App.Name = "bakery-test"
	cfg.Settlement.DefaultFloatCash = 2000
	cfg.Settlement.PriceCacheTTL = time.Minute

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	catalogService := catalog.NewService(db, cfg, nil)
	ledger := inventory.NewService(db, cfg)
	transferService := transfer.NewService(db, cfg, ledger)

	return &testEnv{
		db:         db,
		catalog:    catalogService,
		ledger:     ledger,
		transfers:  transferService,
		production: production.NewService(db, cfg, catalogService, ledger, transferService),
		sales:      sales.NewService(db, cfg, catalogService, ledger),
		vehicles:   settlement.NewVehicleService(db, cfg, logger, catalogService, ledger, transferService),
		shops:      settlement.NewShopService(db, cfg, logger, catalogService, ledger, transferService),
	}
}

func (e *testEnv) createShop(t *testing.T, code string, isDefault bool) *catalog.Location {
	t.Helper()
	loc, err := e.catalog.CreateLocation(&catalog.CreateLocationRequest{
		Name: code, Code: code, Type: catalog.LocationTypeShop, IsDefault: isDefault,
	})
	require.NoError(t, err)
	return loc
}

func (e *testEnv) createVehicle(t *testing.T, code string) *catalog.Location {
	t.Helper()
	loc, err := e.catalog.CreateLocation(&catalog.CreateLocationRequest{
		Name: code, Code: code, Type: catalog.LocationTypeVehicle,
	})
	require.NoError(t, err)
	return loc
}

func (e *testEnv) createProduct(t *testing.T, sku string, sellingPrice float64, shopPrice *float64) *catalog.Product {
	t.Helper()
	prod, err := e.catalog.CreateProduct(&catalog.CreateProductRequest{
		SKU: sku, Name: sku, SellingPrice: sellingPrice, ShopPrice: shopPrice, ShelfLifeDays: 2,
	})
	require.NoError(t, err)
	return prod
}

func (e *testEnv) produce(t *testing.T, productID, locationID uint, quantity int, date time.Time) {
	t.Helper()
	_, err := e.production.RecordBatch(&production.RecordBatchRequest{
		ProductID: productID, Quantity: quantity, DestinationLocationID: locationID,
	}, 1, date)
	require.NoError(t, err)
}

func TestVehicleSettlementRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	vehicle := env.createVehicle(t, "VEH-01")
	croissant := env.createProduct(t, "CROISSANT", 50, nil)

	// 10 units produced straight onto the vehicle
	env.produce(t, croissant.ID, vehicle.ID, 10, today)

	floatCash := 2000.0
	s, err := env.vehicles.Initiate(&settlement.InitiateVehicleRequest{
		LocationID: vehicle.ID, FloatCash: &floatCash,
	}, 1, today)
	require.NoError(t, err)

	require.Len(t, s.Items, 1)
	assert.Equal(t, 10, s.Items[0].QuantitySent)
	// Returns default to everything still on the vehicle
	assert.Equal(t, 10, s.Items[0].QuantityReturned)
	assert.True(t, s.ExpectedCash.Equal(decimal.NewFromInt(2000)))

	// Driver actually brought back 3
	s, err = env.vehicles.RecordReturns(s.ID, &settlement.RecordReturnsRequest{
		Items: []settlement.ReturnItemRequest{
			{ProductID: croissant.ID, QuantityReturned: 3},
		},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, 7, s.Items[0].QuantitySold)
	assert.True(t, s.ExpectedCash.Equal(decimal.NewFromInt(2350)), "expected 2000 float + 7x50 sales, got %s", s.ExpectedCash)

	// Re-initiating refreshes prices but keeps the entered returns
	s, err = env.vehicles.Initiate(&settlement.InitiateVehicleRequest{LocationID: vehicle.ID}, 1, today)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Items[0].QuantityReturned)
	assert.True(t, s.ExpectedCash.Equal(decimal.NewFromInt(2350)))

	s, err = env.vehicles.Settle(s.ID, &settlement.SettleRequest{ActualCash: 2300}, 2, time.Now())
	require.NoError(t, err)

	assert.Equal(t, settlement.StatusSettled, s.Status)
	assert.True(t, s.Discrepancy.Equal(decimal.NewFromInt(-50)))

	// Returned stock landed at the default shop, vehicle zeroed out
	vehicleQty, err := env.ledger.QuantityOf(vehicle.ID, croissant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, vehicleQty)

	shopQty, err := env.ledger.QuantityOf(shop.ID, croissant.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, shopQty)

	// Returned batches keep their original dates
	entries, err := env.ledger.StockByLocation(shop.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, dates.SameDay(entries[0].ProductionDate, today))

	// Settled is terminal
	_, err = env.vehicles.Settle(s.ID, &settlement.SettleRequest{ActualCash: 2300}, 2, time.Now())
	assert.ErrorIs(t, err, settlement.ErrAlreadySettled)

	_, err = env.vehicles.RecordReturns(s.ID, &settlement.RecordReturnsRequest{
		Items: []settlement.ReturnItemRequest{{ProductID: croissant.ID, QuantityReturned: 5}},
	}, 1)
	assert.ErrorIs(t, err, settlement.ErrAlreadySettled)

	// Initiate after settle returns the settled record unchanged
	again, err := env.vehicles.Initiate(&settlement.InitiateVehicleRequest{LocationID: vehicle.ID}, 1, today)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, settlement.StatusSettled, again.Status)
}

func TestVehicleRefreshKeepsReturnForUnsentProduct(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	env.createShop(t, "SHOP-MAIN", true)
	vehicle := env.createVehicle(t, "VEH-01")
	croissant := env.createProduct(t, "CROISSANT", 50, nil)
	danish := env.createProduct(t, "DANISH", 40, nil)

	env.produce(t, croissant.ID, vehicle.ID, 10, today)

	s, err := env.vehicles.Initiate(&settlement.InitiateVehicleRequest{LocationID: vehicle.ID}, 1, today)
	require.NoError(t, err)

	// Driver hands back a product the transfer log never sent today
	s, err = env.vehicles.RecordReturns(s.ID, &settlement.RecordReturnsRequest{
		Items: []settlement.ReturnItemRequest{
			{ProductID: croissant.ID, QuantityReturned: 3},
			{ProductID: danish.ID, QuantityReturned: 2},
		},
	}, 1)
	require.NoError(t, err)
	require.Len(t, s.Items, 2)

	// Refreshing re-derives the sent snapshot but keeps both entered counts
	s, err = env.vehicles.Initiate(&settlement.InitiateVehicleRequest{LocationID: vehicle.ID}, 1, today)
	require.NoError(t, err)

	byProduct := make(map[uint]settlement.VehicleSettlementItem, len(s.Items))
	for _, item := range s.Items {
		byProduct[item.ProductID] = item
	}
	require.Contains(t, byProduct, danish.ID)
	assert.Equal(t, 0, byProduct[danish.ID].QuantitySent)
	assert.Equal(t, 2, byProduct[danish.ID].QuantityReturned)
	assert.Equal(t, 3, byProduct[croissant.ID].QuantityReturned)
}

func TestVehicleSettleDerivesExpectedFromStoredItems(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	env.createShop(t, "SHOP-MAIN", true)
	vehicle := env.createVehicle(t, "VEH-01")
	croissant := env.createProduct(t, "CROISSANT", 50, nil)
	env.produce(t, croissant.ID, vehicle.ID, 10, today)

	floatCash := 2000.0
	s, err := env.vehicles.Initiate(&settlement.InitiateVehicleRequest{
		LocationID: vehicle.ID, FloatCash: &floatCash,
	}, 1, today)
	require.NoError(t, err)

	s, err = env.vehicles.RecordReturns(s.ID, &settlement.RecordReturnsRequest{
		Items: []settlement.ReturnItemRequest{{ProductID: croissant.ID, QuantityReturned: 3}},
	}, 1)
	require.NoError(t, err)

	// Corrupt the stored header figure; finalizing must recompute from the
	// item rows inside its transaction rather than trust the column.
	require.NoError(t, env.db.Model(&settlement.VehicleSettlement{}).
		Where("id = ?", s.ID).Update("expected_cash", 999999).Error)

	s, err = env.vehicles.Settle(s.ID, &settlement.SettleRequest{ActualCash: 2350}, 2, time.Now())
	require.NoError(t, err)
	assert.True(t, s.ExpectedCash.Equal(decimal.NewFromInt(2350)), "expected 2350, got %s", s.ExpectedCash)
	assert.True(t, s.Discrepancy.IsZero())
}

func TestVehicleSettlementRejectsShop(t *testing.T) {
	env := newTestEnv(t)
	shop := env.createShop(t, "SHOP-MAIN", true)

	_, err := env.vehicles.Initiate(&settlement.InitiateVehicleRequest{LocationID: shop.ID}, 1, time.Now())
	assert.ErrorIs(t, err, catalog.ErrInvalidLocationRole)
}

func TestShopSettlementShortfallBecomesSales(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	shopPrice := 30.0
	baguette := env.createProduct(t, "BAGUETTE", 35, &shopPrice)

	// 20 produced into the shop, 2 wasted, 10 still on the shelf at close
	env.produce(t, baguette.ID, shop.ID, 20, today)
	_, err := env.ledger.RecordWastage(&inventory.RecordWastageRequest{
		LocationID: shop.ID, ProductID: baguette.ID, Quantity: 2, Reason: "burnt",
	}, 1, today)
	require.NoError(t, err)

	s, err := env.shops.Initiate(&settlement.InitiateShopRequest{LocationID: shop.ID}, 1, today)
	require.NoError(t, err)

	require.Len(t, s.Items, 1)
	assert.Equal(t, 20, s.Items[0].ProducedQty)
	assert.Equal(t, 2, s.Items[0].WastageQty)
	// No prior settlement: opening back-derived from the current ledger
	assert.False(t, s.OpeningChained)
	assert.Equal(t, 0, s.Items[0].OpeningQty)

	s, err = env.shops.RecordCounts(s.ID, &settlement.RecordCountsRequest{
		Items: []settlement.CountItemRequest{
			{ProductID: baguette.ID, Quantity: 10},
		},
	}, 1)
	require.NoError(t, err)

	// (0 + 20 + 0) - (0 + 2 + 10) = 8 sold at the shop price of 30
	assert.Equal(t, 8, s.Items[0].QuantitySold)
	assert.True(t, s.ExpectedCash.Equal(decimal.NewFromInt(240)), "expected 240, got %s", s.ExpectedCash)

	s, err = env.shops.Settle(s.ID, &settlement.SettleRequest{ActualCash: 240}, 2, time.Now())
	require.NoError(t, err)

	assert.Equal(t, settlement.StatusSettled, s.Status)
	assert.True(t, s.Discrepancy.IsZero())

	// Ledger reconciled down to the physical count
	qty, err := env.ledger.QuantityOf(shop.ID, baguette.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	// The adjustment left an audit trail in the transfer log
	locationID := shop.ID
	records, err := env.transfers.List(&transfer.ListFilter{
		LocationID: &locationID,
		Types:      []transfer.Type{transfer.TypeTransferOut},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 8, records[0].Quantity)

	// Next day's settlement chains its opening from today's counts
	tomorrow := dates.NextDay(today)
	next, err := env.shops.Initiate(&settlement.InitiateShopRequest{LocationID: shop.ID}, 1, tomorrow)
	require.NoError(t, err)
	assert.True(t, next.OpeningChained)
	require.Len(t, next.Items, 1)
	assert.Equal(t, 10, next.Items[0].OpeningQty)
}

func TestShopSettleRequiresCounts(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	baguette := env.createProduct(t, "BAGUETTE", 30, nil)
	env.produce(t, baguette.ID, shop.ID, 20, today)

	s, err := env.shops.Initiate(&settlement.InitiateShopRequest{LocationID: shop.ID}, 1, today)
	require.NoError(t, err)

	// Settling before any count would reconcile everything to zero
	_, err = env.shops.Settle(s.ID, &settlement.SettleRequest{ActualCash: 0}, 1, time.Now())
	assert.ErrorIs(t, err, settlement.ErrCountsNotRecorded)

	qty, err := env.ledger.QuantityOf(shop.ID, baguette.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, qty, "rejected settle must leave the ledger untouched")
}

func TestSaleUsesShopPriceAtShop(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	shopPrice := 30.0
	roll := env.createProduct(t, "ROLL", 35, &shopPrice)
	env.produce(t, roll.ID, shop.ID, 5, today)

	sale, err := env.sales.RecordSale(&sales.RecordSaleRequest{
		LocationID: shop.ID,
		Items:      []sales.SaleItemRequest{{ProductID: roll.ID, Quantity: 2}},
	}, 1, today)
	require.NoError(t, err)

	// 2 x 30 shop price, not the 35 vehicle price
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(60)), "expected 60, got %s", sale.TotalAmount)
}

func TestSaleRejectsInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	loaf := env.createProduct(t, "LOAF", 80, nil)
	env.produce(t, loaf.ID, shop.ID, 3, today)

	_, err := env.sales.RecordSale(&sales.RecordSaleRequest{
		LocationID: shop.ID,
		Items:      []sales.SaleItemRequest{{ProductID: loaf.ID, Quantity: 5}},
	}, 1, today)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// Strict depletion leaves the ledger untouched
	qty, err := env.ledger.QuantityOf(shop.ID, loaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
}

func TestFEFODepletesEarliestExpiryFirst(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())
	yesterday := dates.PrevDay(today)

	shop := env.createShop(t, "SHOP-MAIN", true)
	bun := env.createProduct(t, "BUN", 15, nil)

	// Older batch expires first
	env.produce(t, bun.ID, shop.ID, 4, yesterday)
	env.produce(t, bun.ID, shop.ID, 6, today)

	_, err := env.sales.RecordSale(&sales.RecordSaleRequest{
		LocationID: shop.ID,
		Items:      []sales.SaleItemRequest{{ProductID: bun.ID, Quantity: 5}},
	}, 1, today)
	require.NoError(t, err)

	entries, err := env.ledger.StockByLocation(shop.ID)
	require.NoError(t, err)

	remaining := map[bool]int{} // keyed by "is today's batch"
	for _, entry := range entries {
		remaining[dates.SameDay(entry.ProductionDate, today)] += entry.Quantity
	}
	assert.Equal(t, 0, remaining[false], "older batch should be fully depleted")
	assert.Equal(t, 5, remaining[true])
}

func TestManualTransferMovesBatchesIntact(t *testing.T) {
	env := newTestEnv(t)
	today := dates.DateOnly(time.Now())

	shop := env.createShop(t, "SHOP-MAIN", true)
	vehicle := env.createVehicle(t, "VEH-01")
	scone := env.createProduct(t, "SCONE", 20, nil)

	env.produce(t, scone.ID, shop.ID, 8, today)

	records, err := env.transfers.TransferBetweenLocations(&transfer.ManualTransferRequest{
		ProductID:      scone.ID,
		FromLocationID: shop.ID,
		ToLocationID:   vehicle.ID,
		Quantity:       5,
		Type:           transfer.TypeShopToVehicle,
	}, 1, today)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	shopQty, err := env.ledger.QuantityOf(shop.ID, scone.ID)
	require.NoError(t, err)
	vehicleQty, err := env.ledger.QuantityOf(vehicle.ID, scone.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, shopQty)
	assert.Equal(t, 5, vehicleQty)

	// Batch dates survive the move
	entries, err := env.ledger.StockByLocation(vehicle.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, dates.SameDay(entries[0].ProductionDate, today))

	// Requesting more than available is rejected outright
	_, err = env.transfers.TransferBetweenLocations(&transfer.ManualTransferRequest{
		ProductID:      scone.ID,
		FromLocationID: shop.ID,
		ToLocationID:   vehicle.ID,
		Quantity:       10,
		Type:           transfer.TypeShopToVehicle,
	}, 1, today)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}
