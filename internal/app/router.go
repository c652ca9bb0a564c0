package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "famledger/internal/docs" // Import swagger docs
	"famledger/internal/handlers"
	"famledger/internal/middleware"
)

// NewRouter builds the HTTP API. An empty opsAPIKey leaves the operator
// endpoints mounted but disabled.
func NewRouter(svc *Services, opsAPIKey string) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	familyHandler := handlers.NewFamilyHandler(svc.Families, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	entryHandler := handlers.NewEntryHandler(svc.Ledger, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Alerts, svc.Families, svc.Audit)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	opsHandler := handlers.NewOpsHandler(svc.Budgets)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	ops := v1.Group("/ops", middleware.OpsAuthMiddleware(opsAPIKey))
	ops.POST("/families/:id/repair", opsHandler.RepairFamily)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	families := protected.Group("/families")
	families.POST("", familyHandler.CreateFamily)
	families.GET("", familyHandler.GetFamilies)
	families.GET("/:id", familyHandler.GetFamily)
	families.POST("/:id/members", familyHandler.AddMember)
	families.POST("/:id/leave", familyHandler.LeaveFamily)
	families.POST("/:id/categories", categoryHandler.CreateCategory)
	families.GET("/:id/categories", categoryHandler.GetCategories)
	families.POST("/:id/entries", entryHandler.CreateEntry)
	families.GET("/:id/entries", entryHandler.GetEntries)
	families.POST("/:id/budgets/recalculate", budgetHandler.RecalculateFamily)

	protected.GET("/categories/:id", categoryHandler.GetCategory)

	entries := protected.Group("/entries")
	entries.GET("/:id", entryHandler.GetEntry)
	entries.PUT("/:id", entryHandler.UpdateEntry)
	entries.DELETE("/:id", entryHandler.DeleteEntry)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/summary", budgetHandler.GetSummary)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.POST("/:id/recalculate", budgetHandler.RecalculateBudget)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)

	return router
}
