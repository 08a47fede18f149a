package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"watch-party-service/internal/auth"
	"watch-party-service/internal/config"
	"watch-party-service/internal/db"
	"watch-party-service/internal/handlers"
	"watch-party-service/internal/middleware"
	"watch-party-service/internal/notifications"
	"watch-party-service/internal/observability"
	"watch-party-service/internal/presence"
	"watch-party-service/internal/rabbitmq"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/scheduler"
	"watch-party-service/internal/telemetry"
	"watch-party-service/internal/toxicity"
	"watch-party-service/internal/ws"
)

const serviceName = "watch-party-service"

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := observability.InitTracer(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	defer shutdownTracer(context.Background())

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("observability publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	if mode := rabbitmq.PublisherMode(publisher); mode == "noop" {
		log.Printf("audit publisher degraded mode=%s reason=%q", mode, rabbitmq.PublisherNoopReason(publisher))
	}

	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, serviceName, cfg.Environment)

	partyRepo := repositories.NewPartyRepo(database)
	memberRepo := repositories.NewMemberRepo(database)
	messageRepo := repositories.NewPartyMessageRepo(database)
	reminderRepo := repositories.NewReminderRepo(database)
	catalogRepo := repositories.NewCatalogRepo(database)
	userRepo := repositories.NewUserRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	resolver := auth.NewJWTResolver(cfg.JWTSecret, userRepo)
	classifier := toxicity.NewPerspectiveClient(cfg.PerspectiveAPIKey, cfg.PerspectiveURL, cfg.ToxicityTimeout)

	hub := ws.NewHub()
	registry := presence.NewRegistry()
	gateway := ws.NewGateway(hub, registry, resolver, partyRepo, memberRepo, messageRepo, userRepo, classifier)

	notifier := notifications.NewService(notificationRepo, publisher, cfg.NotifyRouting, gateway)

	reminderScheduler := scheduler.New(partyRepo, reminderRepo, notifier, cfg.SchedulerInterval, cfg.ReminderLead)
	go reminderScheduler.Start(ctx)

	partyHandler := handlers.NewPartyHandler(partyRepo, messageRepo, reminderRepo, catalogRepo, hub, auditEmitter)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(resolver)

	router.POST("/parties", authMiddleware, partyHandler.Create)
	router.GET("/parties", authMiddleware, partyHandler.List)
	router.GET("/parties/:party_id", authMiddleware, partyHandler.GetDetails)
	router.POST("/parties/join", authMiddleware, partyHandler.JoinByCode)
	router.POST("/parties/:party_id/remind", authMiddleware, partyHandler.ToggleReminder)
	router.PUT("/parties/:party_id/end", authMiddleware, partyHandler.End)
	router.DELETE("/parties/:party_id", authMiddleware, partyHandler.Cancel)

	router.GET("/ws", gateway.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, registry, userRepo, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
