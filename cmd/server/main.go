package main

import (
	"log"

	"fortune-report-api/internal/api"
	"fortune-report-api/internal/config"
	"fortune-report-api/internal/database"
	"fortune-report-api/internal/markdown"
	"fortune-report-api/internal/middleware"
	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/services"
	"fortune-report-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	cfg := config.Load()

	// Initialize logging
	if err := logging.InitLogging(cfg.Mode); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	rdb, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize Redis:", err)
	}
	defer database.Close(db, rdb)

	cache := database.NewRedisRecordCache(rdb, cfg.RecordCacheTTL())
	analysis := services.NewAnalysisClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout())

	var machineOpts []report.Option
	if locker := services.NewRedisService(rdb, cfg.GenerationLockTTL()); locker != nil {
		machineOpts = append(machineOpts, report.WithLocker(locker))
	}

	// One logical store and unlock machine per domain
	stores := make(map[string]*database.RecordStore)
	machines := make(map[string]*report.Machine)
	for _, d := range models.Domains() {
		stores[d.Name] = database.NewRecordStore(db, d.Store, cache)
		machines[d.Name] = report.NewMachine(d, stores[d.Name], analysis, machineOpts...)
	}

	records := services.NewRecordService(stores, analysis)
	coupons := services.NewCouponService(database.NewCouponRepository(db))
	payments := services.NewPaymentService(database.NewPaymentOrderRepository(db), records, coupons, cfg.PublicBaseURL, cfg.TossClientKey)
	views := report.NewViews(markdown.New(markdown.Options{Mode: markdown.JoinBlocks}))

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigins))

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(records, payments, coupons, machines, views), cfg.AdminAPIKey)

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
