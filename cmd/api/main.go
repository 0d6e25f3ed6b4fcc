package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"budgetwatch/internal/config"
	"budgetwatch/internal/database"
	"budgetwatch/internal/handlers"
	"budgetwatch/internal/logger"
	"budgetwatch/internal/middleware"
	"budgetwatch/internal/services"
	"budgetwatch/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "budgetwatch/internal/docs" // Import swagger docs
)

// @title           BudgetWatch API
// @version         1.0
// @description     BudgetWatch monitors spending against budgets, raises threshold and predicted-overspend alerts, and adjusts budgets from spending history.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	ledgerService := services.NewLedgerService(db)
	budgetService := services.NewBudgetService(db, ledgerService)
	alertService := services.NewAlertService(db)
	predictionService := services.NewPredictionService(ledgerService)
	adjustmentService := services.NewAdjustmentService(db)
	notifier := services.NewNotifier(alertService, services.NewLogDispatcher())
	defer notifier.Close()
	sweepService := services.NewSweepService(budgetService, ledgerService, alertService, predictionService, notifier)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, adjustmentService, sweepService)
	alertHandler := handlers.NewAlertHandler(alertService)
	sweepHandler := handlers.NewSweepHandler(sweepService)

	// Scheduled sweep: checks every active budget across all users. Each run
	// gets its own deadline so a slow cycle cannot pile up behind the next.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(appConfig.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), appConfig.SweepDeadline)
		defer cancel()

		summary, err := sweepService.SweepAll(ctx, services.SystemScope{})
		if err != nil {
			log.Errorw("scheduled sweep failed", "error", err)
			return
		}
		log.Infow("scheduled sweep finished",
			"budgets_checked", summary.BudgetsChecked,
			"alerts_created", summary.AlertsCreated,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"deferred", summary.Deferred,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep (%q): %w", appConfig.SweepSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Pipeline routes (system triggers, API-key guarded)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.POST("/sweep", sweepHandler.RunSweep)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.POST("/check", budgetHandler.CheckBudgets)
	budgets.GET("/:id", budgetHandler.GetBudgetByID)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)
	budgets.GET("/:id/history", budgetHandler.GetBudgetHistory)
	budgets.POST("/:id/adjust", budgetHandler.AdjustBudget)

	// Alert routes
	alerts := protected.Group("/alerts")
	alerts.GET("", alertHandler.GetAlerts)
	alerts.POST("/:id/acknowledge", alertHandler.AcknowledgeAlert)
	alerts.POST("/:id/dismiss", alertHandler.DismissAlert)

	log.Infof("Starting BudgetWatch API server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
