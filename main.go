package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"notification-service/internal/auth"
	"notification-service/internal/db"
	"notification-service/internal/engine"
	"notification-service/internal/handlers"
	"notification-service/internal/middleware"
	"notification-service/internal/observability"
	"notification-service/internal/rabbitmq"
	"notification-service/internal/repositories"
	"notification-service/internal/telemetry"
)

func main() {
	host, port := parseArgs(os.Args[1:])

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(
		getEnv("AMQP_URL", ""),
		getEnv("AMQP_EXCHANGE", "notification_events"),
	)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	emitter := telemetry.NewAuditEmitter(
		publisher,
		"audit.notification",
		"notification-service",
		getEnv("ENVIRONMENT", "development"),
	)

	validator := auth.NewJWTValidator(
		getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		getEnv("JWT_ISSUER", "notification-service"),
	)

	outboxRepo := repositories.NewOutboxRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	eng := engine.New(engine.Config{Host: host, Port: port}, validator, outboxRepo, notificationRepo, publisher)
	if err := eng.Listen(); err != nil {
		log.Fatalf("engine listen failed: %v", err)
	}

	go runOpsServer(eng, database, validator, emitter)

	emitter.Emit(context.Background(), "INFO", "notification engine starting")
	if err := eng.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("engine stopped: %v", err)
	}
}

// runOpsServer exposes health, metrics, and debug stats on a separate port.
func runOpsServer(eng *engine.Engine, health handlers.HealthChecker, validator auth.TokenValidator, emitter *telemetry.AuditEmitter) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	ops := handlers.NewOpsHandler(eng.Stats(), health, emitter)
	router.GET("/healthz", ops.Healthz)
	router.GET("/metrics", ops.Metrics())
	ops.RegisterDebugRoutes(router, middleware.AuthMiddleware(validator), getEnv("DEBUG_ROUTES", "") == "true")

	addr := ":" + getEnv("OPS_PORT", "9090")
	if err := router.Run(addr); err != nil {
		log.Printf("ops server error: %v", err)
	}
}

// parseArgs reads the two optional positional arguments: host and port.
func parseArgs(args []string) (string, int) {
	host := "0.0.0.0"
	port := 8080
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("invalid port %q: %v", args[1], err)
		}
		port = parsed
	}
	return host, port
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
