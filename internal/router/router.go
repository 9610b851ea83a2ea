// Package router assembles the HTTP API from services, handlers and
// middleware.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"finbook/internal/handlers"
	"finbook/internal/middleware"
	"finbook/internal/services"

	_ "finbook/internal/docs" // swagger docs
)

// Options configures authorization and upload limits.
type Options struct {
	JWTSecret []byte
	// Gate judges verified principals; nil admits every verified principal.
	Gate               middleware.Gate
	PipelineAPIKeyHash string
	MaxUploadBytes     int64
	// RequestLogging toggles the per-request log line.
	RequestLogging bool
}

// New builds the gin engine with every route of the API.
func New(db *gorm.DB, opts Options) *gin.Engine {
	gate := opts.Gate
	if gate == nil {
		gate = middleware.AnyPrincipal
	}

	// Services
	auditService := services.NewAuditService(db)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	contractService := services.NewContractService(db)
	recordService := services.NewRecordService(db)
	transactionService := services.NewTransactionService(db)
	importService := services.NewImportService(db)

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	contractHandler := handlers.NewContractHandler(contractService, auditService)
	recordHandler := handlers.NewRecordHandler(recordService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	importHandler := handlers.NewImportHandler(importService, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Unattended bank export uploads
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKeyHash))
	pipeline.POST("/import", middleware.MaxBodySize(opts.MaxUploadBytes), importHandler.ImportStatements)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret, gate))

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	contracts := protected.Group("/contracts")
	contracts.POST("", contractHandler.CreateContract)
	contracts.GET("", contractHandler.ListContracts)
	contracts.GET("/:id", contractHandler.GetContractByID)
	contracts.PUT("/:id", contractHandler.UpdateContract)
	contracts.DELETE("/:id", contractHandler.DeleteContract)

	records := protected.Group("/records")
	records.POST("", recordHandler.CreateRecords)
	records.GET("", recordHandler.ListRecords)
	records.GET("/subjects", recordHandler.Subjects)
	records.GET("/aggregate", recordHandler.AggregateRecords)
	records.GET("/:id", recordHandler.GetRecordByID)
	records.PUT("/:id", recordHandler.UpdateRecord)
	records.DELETE("/:id", recordHandler.DeleteRecord)

	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/duplicates", transactionHandler.FindDuplicates)
	transactions.POST("/counter-booking", transactionHandler.PairCounterBooking)
	transactions.POST("/import", middleware.MaxBodySize(opts.MaxUploadBytes), importHandler.ImportStatements)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/hide", transactionHandler.Hide)
	transactions.POST("/:id/show", transactionHandler.Show)
	transactions.POST("/:id/bookmark", transactionHandler.Bookmark)
	transactions.POST("/:id/unbookmark", transactionHandler.Unbookmark)
	transactions.POST("/:id/records", transactionHandler.SetRecords)
	transactions.POST("/:id/records/:recordId", transactionHandler.LinkRecord)
	transactions.DELETE("/:id/records/:recordId", transactionHandler.UnlinkRecord)
	transactions.GET("/:id/suggestions", transactionHandler.SuggestRecords)

	protected.GET("/audit-logs", auditHandler.ListAuditLogs)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
