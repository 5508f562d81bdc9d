// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/interfaces/http/handlers"
	"github.com/your-org/bakery-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupCatalogRoutes(rg, db, redisClient, cfg)
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupTransferRoutes(rg, db, redisClient, cfg)
	SetupProductionRoutes(rg, db, redisClient, cfg)
	SetupSalesRoutes(rg, db, redisClient, cfg)
	SetupSettlementRoutes(rg, db, redisClient, cfg)
}

// SetupCatalogRoutes sets up location and product routes
func SetupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	catalogHandler := handlers.NewCatalogHandler(db, cfg, redisClient)

	locations := rg.Group("/locations")
	locations.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		locations.GET("", catalogHandler.GetLocations)
		locations.GET("/:id", catalogHandler.GetLocation)

		protected := locations.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("", catalogHandler.CreateLocation)
		}
	}

	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		products.GET("", catalogHandler.GetProducts)
		products.GET("/:id", catalogHandler.GetProduct)

		protected := products.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("", catalogHandler.CreateProduct)
		}
	}
}

// SetupInventoryRoutes sets up stock and wastage routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg)) // All inventory routes require authentication
	{
		inventory.GET("/locations/:id", inventoryHandler.GetStockByLocation)
		inventory.GET("/locations/:id/products/:productId", inventoryHandler.GetStockLevel)

		inventory.POST("/wastage", inventoryHandler.RecordWastage)
		inventory.GET("/wastage/locations/:id", inventoryHandler.ListWastage)
	}
}

// SetupTransferRoutes sets up stock transfer routes
func SetupTransferRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	transferHandler := handlers.NewTransferHandler(db, cfg)

	transfers := rg.Group("/transfers")
	transfers.Use(middleware.AuthMiddleware(cfg))
	{
		transfers.POST("", transferHandler.CreateTransfer)
		transfers.GET("", transferHandler.ListTransfers)
	}
}

// SetupProductionRoutes sets up production batch routes
func SetupProductionRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	productionHandler := handlers.NewProductionHandler(db, cfg, redisClient)

	production := rg.Group("/production")
	production.Use(middleware.AuthMiddleware(cfg))
	{
		production.POST("/batches", productionHandler.RecordBatch)
		production.GET("/batches", productionHandler.ListBatches)
	}
}

// SetupSalesRoutes sets up point-of-sale routes
func SetupSalesRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	salesHandler := handlers.NewSalesHandler(db, cfg, redisClient)

	sales := rg.Group("/sales")
	sales.Use(middleware.AuthMiddleware(cfg))
	{
		sales.POST("", salesHandler.RecordSale)
		sales.GET("/:id", salesHandler.GetSale)
		sales.GET("/locations/:id", salesHandler.ListSales)
	}
}

// SetupSettlementRoutes sets up vehicle and shop settlement routes
func SetupSettlementRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	vehicleHandler := handlers.NewVehicleSettlementHandler(db, cfg, redisClient)
	shopHandler := handlers.NewShopSettlementHandler(db, cfg, redisClient)

	settlements := rg.Group("/settlements")
	settlements.Use(middleware.AuthMiddleware(cfg)) // Settlements stamp audit identity
	{
		vehicle := settlements.Group("/vehicle")
		{
			vehicle.POST("", vehicleHandler.Initiate)
			vehicle.GET("/:id", vehicleHandler.Get)
			vehicle.GET("/locations/:id", vehicleHandler.GetByLocationAndDate)
			vehicle.PUT("/:id/returns", vehicleHandler.RecordReturns)
			vehicle.POST("/:id/settle", vehicleHandler.Settle)
		}

		shop := settlements.Group("/shop")
		{
			shop.POST("", shopHandler.Initiate)
			shop.GET("/:id", shopHandler.Get)
			shop.GET("/locations/:id", shopHandler.GetByLocationAndDate)
			shop.PUT("/:id/counts", shopHandler.RecordCounts)
			shop.POST("/:id/settle", shopHandler.Settle)
		}
	}
}
