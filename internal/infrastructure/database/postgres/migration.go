// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/bakery-backend/internal/domain/catalog"
	"github.com/your-org/bakery-backend/internal/domain/inventory"
	"github.com/your-org/bakery-backend/internal/domain/production"
	"github.com/your-org/bakery-backend/internal/domain/sales"
	"github.com/your-org/bakery-backend/internal/domain/settlement"
	"github.com/your-org/bakery-backend/internal/domain/transfer"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Catalog domain - Base tables
		&catalog.Location{},
		&catalog.Product{},

		// Inventory domain
		&inventory.InventoryEntry{},
		&inventory.Wastage{},

		// Transfer log
		&transfer.StockTransfer{},

		// Production domain
		&production.Batch{},

		// Sales domain
		&sales.Sale{},
		&sales.SaleItem{},

		// Settlement domain - Dependent tables
		&settlement.VehicleSettlement{},
		&settlement.VehicleSettlementItem{},
		&settlement.ShopSettlement{},
		&settlement.ShopSettlementItem{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Location indexes
		"CREATE INDEX IF NOT EXISTS idx_locations_type_active ON locations(type, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_locations_code ON locations(code)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)",

		// Inventory indexes - FEFO scans read (location, product) ordered by expiry
		"CREATE INDEX IF NOT EXISTS idx_inventory_location_product ON inventory_entries(location_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_fefo ON inventory_entries(location_id, product_id, expiry_date, production_date)",
		"CREATE INDEX IF NOT EXISTS idx_wastages_location_date ON wastages(location_id, wastage_date)",

		// Transfer log indexes - settlement snapshots aggregate by endpoint and day
		"CREATE INDEX IF NOT EXISTS idx_stock_transfers_to_date ON stock_transfers(to_location_id, type, transfer_date)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transfers_from_date ON stock_transfers(from_location_id, type, transfer_date)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transfers_reference ON stock_transfers(reference)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transfers_product ON stock_transfers(product_id)",

		// Production indexes
		"CREATE INDEX IF NOT EXISTS idx_production_batches_date ON production_batches(production_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_production_batches_product ON production_batches(product_id)",

		// Sales indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_location_date ON sales(location_id, sale_date)",
		"CREATE INDEX IF NOT EXISTS idx_sales_sale_number ON sales(sale_number)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_product ON sale_items(product_id)",

		// Settlement indexes
		"CREATE INDEX IF NOT EXISTS idx_vehicle_settlements_status ON vehicle_settlements(status)",
		"CREATE INDEX IF NOT EXISTS idx_vehicle_settlements_date ON vehicle_settlements(settlement_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_vehicle_settlement_items_settlement ON vehicle_settlement_items(settlement_id)",
		"CREATE INDEX IF NOT EXISTS idx_shop_settlements_status ON shop_settlements(status)",
		"CREATE INDEX IF NOT EXISTS idx_shop_settlements_date ON shop_settlements(settlement_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_shop_settlement_items_settlement ON shop_settlement_items(settlement_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedLocations(); err != nil {
		return fmt.Errorf("failed to seed locations: %w", err)
	}

	if err := m.seedTestProducts(); err != nil {
		return fmt.Errorf("failed to seed test products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedLocations creates the default shop and the delivery vehicles
func (m *Migration) seedLocations() error {
	log.Println("🏪 Seeding locations...")

	locations := []catalog.Location{
		{
			Code:      "SHOP-MAIN",
			Name:      "Main Shop",
			Type:      catalog.LocationTypeShop,
			IsDefault: true,
			IsActive:  true,
		},
		{
			Code:     "VEH-01",
			Name:     "Delivery Vehicle 1",
			Type:     catalog.LocationTypeVehicle,
			IsActive: true,
		},
		{
			Code:     "VEH-02",
			Name:     "Delivery Vehicle 2",
			Type:     catalog.LocationTypeVehicle,
			IsActive: true,
		},
	}

	for _, location := range locations {
		var existing catalog.Location
		result := m.db.Where("code = ?", location.Code).First(&existing)
		if result.Error != nil {
			// Location doesn't exist, create it
			if err := m.db.Create(&location).Error; err != nil {
				return err
			}
			log.Printf("✅ Created location: %s", location.Name)
		} else {
			log.Printf("⏭️ Location already exists: %s", location.Name)
		}
	}

	return nil
}

// seedTestProducts creates sample products for development
func (m *Migration) seedTestProducts() error {
	log.Println("🥐 Seeding test products...")

	var productCount int64
	m.db.Model(&catalog.Product{}).Count(&productCount)
	if productCount >= 3 {
		log.Println("⏭️ Test products already exist")
		return nil
	}

	shopPrice := decimal.NewFromInt(45)
	testProducts := []catalog.Product{
		{
			SKU:            "BAK-TEST-001",
			Name:           "Butter Croissant",
			Category:       "pastry",
			SellingPrice:   decimal.NewFromInt(50),
			ShopPrice:      &shopPrice,
			ProductionCost: decimal.NewFromInt(20),
			ShelfLifeDays:  2,
			IsActive:       true,
		},
		{
			SKU:            "BAK-TEST-002",
			Name:           "Baguette",
			Category:       "bread",
			SellingPrice:   decimal.NewFromInt(30),
			ProductionCost: decimal.NewFromInt(12),
			ShelfLifeDays:  1,
			IsActive:       true,
		},
		{
			SKU:            "BAK-TEST-003",
			Name:           "Sourdough Loaf",
			Category:       "bread",
			SellingPrice:   decimal.NewFromInt(80),
			ProductionCost: decimal.NewFromInt(35),
			ShelfLifeDays:  3,
			IsActive:       true,
		},
	}

	for _, prod := range testProducts {
		var existing catalog.Product
		result := m.db.Where("sku = ?", prod.SKU).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&prod).Error; err != nil {
				log.Printf("⚠️ Failed to create test product %s: %v", prod.SKU, err)
			} else {
				log.Printf("✅ Created test product: %s", prod.Name)
			}
		} else {
			log.Printf("⏭️ Product already exists: %s", prod.Name)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"shop_settlement_items",
		"shop_settlements",
		"vehicle_settlement_items",
		"vehicle_settlements",
		"sale_items",
		"sales",
		"production_batches",
		"stock_transfers",
		"wastages",
		"inventory_entries",
		"products",
		"locations",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}

// CleanupTestData removes test data (useful for production setup)
func (m *Migration) CleanupTestData() error {
	log.Println("🧹 Cleaning up test data...")

	result := m.db.Where("sku LIKE ?", "BAK-TEST-%").Delete(&catalog.Product{})
	log.Printf("🗑️ Removed %d test products", result.RowsAffected)

	log.Println("✅ Test data cleanup completed")
	return nil
}
