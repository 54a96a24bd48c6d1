package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/allocation-service/internal/application"
	kafkaAdapter "github.com/wms-platform/allocation-service/internal/infrastructure/kafka"
	mongoRepo "github.com/wms-platform/allocation-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/allocation-service/pkg/cloudevents"
	"github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/kafka"
	"github.com/wms-platform/allocation-service/pkg/logging"
	"github.com/wms-platform/allocation-service/pkg/metrics"
	"github.com/wms-platform/allocation-service/pkg/middleware"
	"github.com/wms-platform/allocation-service/pkg/mongodb"
	"github.com/wms-platform/allocation-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/allocation-service/pkg/outbox/mongodb"
	"github.com/wms-platform/allocation-service/pkg/tracing"
)

const serviceName = "allocation-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting allocation-service API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation and circuit breaker
	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation and circuit breaker
	kafkaProducer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceAllocation)

	// Initialize repositories
	db := mongoClient.Database()
	stockRepo := mongoRepo.NewStockRepository(db, eventFactory)
	documentRepo := mongoRepo.NewDemandDocumentRepository(db, eventFactory)
	waveRepo := mongoRepo.NewWaveRepository(db, eventFactory)
	jobRepo := mongoRepo.NewPickingJobRepository(db, eventFactory)
	claimRepo := mongoRepo.NewStorageUnitClaimRepository(db)
	ledgerRepo := mongoRepo.NewLedgerRepository(db)
	txManager := mongoRepo.NewTransactionManager(mongoClient.Client())

	// Initialize and start outbox publisher
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure outbox indexes")
		os.Exit(1)
	}
	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		kafkaProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	documentService := application.NewDocumentService(documentRepo, logger)
	allocationService := application.NewAllocationService(txManager, stockRepo, documentRepo, jobRepo, claimRepo, ledgerRepo, logger)
	stockService := application.NewStockService(txManager, stockRepo, documentRepo, ledgerRepo, logger)
	waveService := application.NewWaveService(txManager, stockRepo, documentRepo, waveRepo, jobRepo, claimRepo, ledgerRepo, logger)
	pickingService := application.NewPickingService(txManager, stockRepo, documentRepo, jobRepo, claimRepo, ledgerRepo, logger)

	// Start inbound order consumer
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	if config.OrderConsumerEnabled {
		consumer := kafka.NewProductionConsumer(config.Kafka, m, logger)
		orderConsumer := kafkaAdapter.NewOrderConsumer(consumer, documentService, logger)
		go func() {
			if err := orderConsumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
				logger.WithError(err).Error("Order consumer stopped")
			}
		}()
		defer orderConsumer.Close()
		logger.Info("Order consumer started", "topic", kafka.Topics.OrdersInbound)
	} else {
		logger.Info("Order consumer disabled")
	}

	// Setup Gin router with middleware
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:9080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID", "X-WMS-Correlation-ID", "X-WMS-Wave-ID", "X-WMS-Document-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID", "X-WMS-Correlation-ID", "X-WMS-Wave-ID"},
		AllowCredentials: true,
	}))

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middlewareConfig.EnableCORS = false
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		documents := api.Group("/documents")
		{
			documents.POST("", createDocumentHandler(documentService, m, logger))
			documents.GET("", listDocumentsHandler(documentService, logger))
			documents.GET("/:documentId", getDocumentHandler(documentService, logger))
			documents.POST("/:documentId/approve", approveDocumentHandler(documentService, logger))
			documents.POST("/:documentId/allocate", allocateDocumentHandler(allocationService, m, logger))
			documents.POST("/:documentId/cancel", cancelDocumentHandler(allocationService, logger))
			documents.POST("/:documentId/ship", shipDocumentHandler(pickingService, m, logger))
		}

		stock := api.Group("/stock")
		{
			stock.POST("/receipts", receiveStockHandler(stockService, logger))
			stock.POST("/adjustments", adjustStockHandler(stockService, logger))
			stock.GET("", listStockHandler(stockService, logger))
			stock.GET("/:sku", getStockHandler(stockService, logger))
			stock.GET("/:sku/availability", getAvailabilityHandler(stockService, logger))
			stock.GET("/:sku/ledger", getLedgerHandler(stockService, logger))
		}

		waves := api.Group("/waves")
		{
			waves.POST("", createWaveHandler(waveService, logger))
			waves.GET("", listWavesHandler(waveService, logger))
			waves.GET("/:waveId", getWaveHandler(waveService, logger))
			waves.POST("/:waveId/release", releaseWaveHandler(waveService, m, logger))
			waves.POST("/:waveId/cancel", cancelWaveHandler(waveService, logger))
			waves.POST("/:waveId/complete", completeWaveHandler(waveService, logger))
			waves.POST("/suggestions", suggestClustersHandler(waveService, logger))
		}

		jobs := api.Group("/picking-jobs")
		{
			jobs.GET("", listJobsHandler(pickingService, logger))
			jobs.GET("/:jobId", getJobHandler(pickingService, logger))
			jobs.POST("/:jobId/assign", assignJobHandler(pickingService, logger))
			jobs.POST("/:jobId/picks", recordPickHandler(pickingService, m, logger))
			jobs.POST("/:jobId/exceptions", reportExceptionHandler(pickingService, logger))
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	consumerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr           string
	MongoDB              *mongodb.Config
	Kafka                *kafka.Config
	OrderConsumerEnabled bool
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8003"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "allocation_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		OrderConsumerEnabled: getEnv("ORDER_CONSUMER_ENABLED", "true") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}

// Document handlers

func createDocumentHandler(service *application.DocumentService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.CreateDocumentCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		doc, err := service.CreateDocument(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		m.RecordDocumentCreated(doc.Source)
		c.JSON(http.StatusCreated, doc)
	}
}

func listDocumentsHandler(service *application.DocumentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		status := c.DefaultQuery("status", "pending")
		limit := parseIntQuery(c, "limit", 50)
		offset := parseIntQuery(c, "offset", 0)

		docs, err := service.ListDocumentsByStatus(c.Request.Context(), status, limit, offset)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, docs)
	}
}

func getDocumentHandler(service *application.DocumentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID := c.Param("documentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"document.id": documentID,
		})

		doc, err := service.GetDocument(c.Request.Context(), documentID)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func approveDocumentHandler(service *application.DocumentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.ApproveDocumentCommand{DocumentID: c.Param("documentId")}

		var req struct {
			Actor string `json:"actor"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		cmd.Actor = req.Actor

		doc, err := service.ApproveDocument(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func allocateDocumentHandler(service *application.AllocationService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID := c.Param("documentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"document.id": documentID,
		})

		start := time.Now()
		result, err := service.Allocate(c.Request.Context(), application.AllocateDocumentCommand{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		m.RecordAllocation(result.Success, time.Since(start), len(result.MissingItems))
		if !result.Success {
			// Shortage is a reported outcome, not a transport error
			c.JSON(http.StatusConflict, result)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func cancelDocumentHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.CancelDocumentCommand{
			DocumentID: c.Param("documentId"),
			Reason:     req.Reason,
		}

		doc, err := service.CancelDocument(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func shipDocumentHandler(service *application.PickingService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		documentID := c.Param("documentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"document.id": documentID,
		})

		doc, err := service.ShipDocument(c.Request.Context(), application.ShipDocumentCommand{DocumentID: documentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		m.RecordDocumentShipped(doc.Kind)
		c.JSON(http.StatusOK, doc)
	}
}

// Stock handlers

func receiveStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.ReceiveStockCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := service.Receive(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

func adjustStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.AdjustStockCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := service.Adjust(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func listStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit := parseIntQuery(c, "limit", 50)
		offset := parseIntQuery(c, "offset", 0)

		items, err := service.ListStock(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func getStockHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		item, err := service.GetStock(c.Request.Context(), c.Param("sku"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func getAvailabilityHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		availability, err := service.GetAvailability(c.Request.Context(), c.Param("sku"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, availability)
	}
}

func getLedgerHandler(service *application.StockService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit := parseIntQuery(c, "limit", 50)
		offset := parseIntQuery(c, "offset", 0)

		entries, err := service.GetLedger(c.Request.Context(), c.Param("sku"), limit, offset)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, entries)
	}
}

// Wave handlers

func createWaveHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.CreateWaveCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"wave.documentCount": len(cmd.DocumentIDs),
		})

		wave, err := service.CreateWave(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, wave)
	}
}

func listWavesHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		status := c.DefaultQuery("status", "planning")
		limit := parseIntQuery(c, "limit", 50)
		offset := parseIntQuery(c, "offset", 0)

		waves, err := service.ListWavesByStatus(c.Request.Context(), status, limit, offset)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, waves)
	}
}

func getWaveHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		waveID := c.Param("waveId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"wave.id": waveID,
		})

		wave, err := service.GetWave(c.Request.Context(), waveID)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, wave)
	}
}

func releaseWaveHandler(service *application.WaveService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		waveID := c.Param("waveId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"wave.id": waveID,
		})

		start := time.Now()
		result, err := service.ReleaseWave(c.Request.Context(), application.ReleaseWaveCommand{WaveID: waveID})
		if err != nil {
			respondError(responder, err)
			return
		}

		m.RecordAllocation(result.Success, time.Since(start), len(result.MissingItems))
		if !result.Success {
			c.JSON(http.StatusConflict, result)
			return
		}

		if wave, err := service.GetWave(c.Request.Context(), waveID); err == nil {
			m.RecordWaveReleased(wave.Size)
		}
		c.JSON(http.StatusOK, result)
	}
}

func cancelWaveHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.CancelWaveCommand{
			WaveID: c.Param("waveId"),
			Reason: req.Reason,
		}

		wave, err := service.CancelWave(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, wave)
	}
}

func completeWaveHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		wave, err := service.CompleteWave(c.Request.Context(), application.CompleteWaveCommand{WaveID: c.Param("waveId")})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, wave)
	}
}

func suggestClustersHandler(service *application.WaveService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.SuggestClustersCommand
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&cmd); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		clusters, err := service.SuggestClusters(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, clusters)
	}
}

// Picking handlers

func listJobsHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		if pickerID := c.Query("pickerId"); pickerID != "" {
			jobs, err := service.ListJobsByPicker(c.Request.Context(), pickerID)
			if err != nil {
				respondError(responder, err)
				return
			}
			c.JSON(http.StatusOK, jobs)
			return
		}

		zone := c.Query("zone")
		if zone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "zone or pickerId query parameter is required"})
			return
		}

		jobs, err := service.ListJobsByZone(c.Request.Context(), zone, c.Query("status"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, jobs)
	}
}

func getJobHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		job, err := service.GetJob(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

func assignJobHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PickerID string `json:"pickerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.AssignJobCommand{
			JobID:    c.Param("jobId"),
			PickerID: req.PickerID,
		}

		job, err := service.AssignJob(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

func recordPickHandler(service *application.PickingService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			TaskID   string `json:"taskId" binding:"required"`
			Quantity int    `json:"quantity" binding:"required,gt=0"`
			PickerID string `json:"pickerId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.RecordPickCommand{
			JobID:    c.Param("jobId"),
			TaskID:   req.TaskID,
			Quantity: req.Quantity,
			PickerID: req.PickerID,
		}

		job, err := service.RecordPick(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		m.RecordItemPicked(job.Zone, req.Quantity)
		c.JSON(http.StatusOK, job)
	}
}

func reportExceptionHandler(service *application.PickingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			TaskID     string `json:"taskId" binding:"required"`
			Actual     int    `json:"actual" binding:"gte=0"`
			Reason     string `json:"reason" binding:"required"`
			ReportedBy string `json:"reportedBy"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.ReportExceptionCommand{
			JobID:      c.Param("jobId"),
			TaskID:     req.TaskID,
			Actual:     req.Actual,
			Reason:     req.Reason,
			ReportedBy: req.ReportedBy,
		}

		job, err := service.ReportException(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, job)
	}
}
