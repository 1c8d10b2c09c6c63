package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-engine/config"
	"booking-engine/internal/api"
	"booking-engine/internal/broker"
	"booking-engine/internal/redisclient"
	"booking-engine/internal/service"
	"booking-engine/internal/store"
	"booking-engine/internal/util"
	"booking-engine/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting booking engine")

	tp, err := util.InitTracer("booking-engine", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservation)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	catalog := service.NewPropertyCatalog(db, redisClient)
	availabilityIndex := service.NewAvailabilityIndex(db, redisClient)
	rewardLedger := service.NewRewardLedger(db)

	gateway := service.NewHTTPGateway(cfg.Gateway.BaseURL, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)
	orchestrator := service.NewPaymentOrchestrator(db, redisClient, gateway, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)

	stateMachine := service.NewReservationStateMachine(
		db,
		availabilityIndex,
		rewardLedger,
		orchestrator,
		catalog,
		eventPublisher,
		time.Duration(cfg.Business.HoldTTLMinutes)*time.Minute,
		time.Duration(cfg.Business.FreeCancelHours)*time.Hour,
		cfg.Business.PointsPerUnit,
		cfg.Business.ServiceFeePercent,
	)
	orchestrator.BindStateMachine(stateMachine)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	sweepWorker := worker.NewSweepWorker(stateMachine, time.Duration(cfg.Business.SweepIntervalSeconds)*time.Second)
	go sweepWorker.Start(workerCtx)

	refundConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservation, cfg.Kafka.RefundGroup)
	refundWorker := worker.NewRefundWorker(refundConsumer, orchestrator)
	go func() {
		if err := refundWorker.Start(workerCtx); err != nil {
			log.Printf("Refund worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(stateMachine, orchestrator, rewardLedger, catalog, availabilityIndex, cfg.Gateway.WebhookSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	refundWorker.Stop()

	log.Println("Server exited")
}
