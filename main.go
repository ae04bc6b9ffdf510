package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"strompris-api/cache"
	"strompris-api/config"
	"strompris-api/models"
	"strompris-api/routes"
	"strompris-api/scheduler"
	"strompris-api/services"
	"strompris-api/services/pricefeed"
	"strompris-api/services/regression"
)

// dbInitialized tracks whether the database has been successfully
// initialized, so the /ready endpoint can report readiness while the
// startup backfill still runs in the background
var dbInitialized bool
var dbInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Strompris Backend API - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Health endpoints first so the platform can see the process is up while
	// the database and the startup ingestion come online in the background.
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	jobScheduler := scheduler.NewScheduler()
	go initializeApplication(router, cfg, jobScheduler)

	gracefulShutdown(server, jobScheduler)
}

// initializeApplication connects storage, wires the services, runs the
// startup ingestion and training, and arms the recurring jobs
func initializeApplication(router *gin.Engine, cfg *config.Config, jobScheduler *scheduler.Scheduler) {
	db, err := config.InitDB()
	if err != nil {
		log.Printf("ERROR: Database connection failed: %v", err)
		log.Println("Service will continue in limited mode (health check only)")
		return
	}

	log.Println("Running database migrations...")
	if err := models.MigratePriceModels(db); err != nil {
		log.Printf("ERROR: Migration failed: %v", err)
		return
	}

	queryCache := cache.NewCache(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	feed := pricefeed.NewClient(cfg.PriceFeedURL, cfg.FetchTimeout)
	ingestor := services.NewIngestService(db, cfg, feed)
	predictor := services.NewPredictorService(db, regression.NewLeastSquares(cfg.MarketAreas))
	queries := services.NewQueryService(db, predictor, queryCache)
	reservoir := services.NewReservoirService(db, cfg.ReservoirFeedURL, cfg.FetchTimeout)

	dbInitMutex.Lock()
	dbInitialized = true
	dbInitMutex.Unlock()

	routes.SetupRoutes(router, queries, reservoir)

	ctx := context.Background()

	// Startup ingestion: trailing backfill, plus tomorrow's prices if the
	// feed's daily publication time has already passed.
	if _, err := ingestor.Backfill(ctx, cfg.BackfillDays); err != nil {
		log.Printf("Startup backfill failed: %v", err)
	}
	now := time.Now()
	published := time.Date(now.Year(), now.Month(), now.Day(),
		cfg.RefreshAt.Hour, cfg.RefreshAt.Minute, 0, 0, now.Location())
	if now.After(published) {
		if _, err := ingestor.FetchDayAhead(ctx); err != nil {
			log.Printf("Startup day-ahead fetch failed: %v", err)
		}
	}

	if err := reservoir.Refresh(ctx); err != nil {
		log.Printf("Startup reservoir refresh failed: %v", err)
	}

	if err := predictor.Train(ctx); err != nil {
		log.Printf("Initial model training failed: %v", err)
	} else {
		log.Println("Price prediction model trained, retraining task scheduled")
	}

	refreshTask := func(ctx context.Context) error {
		_, err := ingestor.FetchDayAhead(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(cfg.MarketAreas))
		for _, area := range cfg.MarketAreas {
			keys = append(keys, services.AverageCacheKey(area))
		}
		queryCache.Invalidate(ctx, keys...)
		return nil
	}

	jobScheduler.Daily("price-refresh", cfg.RefreshAt, refreshTask)
	jobScheduler.Every("model-retrain", cfg.RetrainInterval, predictor.Retrain)
	jobScheduler.Every("reservoir-refresh", 7*24*time.Hour, reservoir.Refresh)
	jobScheduler.Start()

	log.Println("Application fully initialized with database")
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Strompris Backend API",
			"version": "1.0.0",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown stops the scheduler, drains the server and closes storage
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop recurring jobs first; their contexts are cancelled so in-flight
	// fetches and a pending retrain are abandoned.
	jobScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
