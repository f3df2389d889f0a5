/**
 * @description
 * This is the main entry point for the savings service. It is responsible for
 * initializing all components of the service, including configuration, the
 * database connection (and schema migrations), the message broker, the Redis
 * rate limiter, repositories, the core application service, the cron
 * scheduler, and the HTTP server. It wires everything together and starts the
 * service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/joho/godotenv: Loads a local .env file in development.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/catalogclient, pkg/rabbitmq: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/api"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/app"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/config"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/pkg/catalogclient"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/pkg/rabbitmq"
)

func main() {
	// A missing .env is fine; containers supply real environment variables.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting savings service\" port=%s", cfg.ServerPort)

	if cfg.RunMigrations {
		if err := store.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"migrations failed\" err=%v", err)
		}
		log.Println("level=info component=bootstrap msg=\"migrations applied\"")
	}

	dbpool, err := store.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish notification events. The
	// service stays up without the broker; events fall back to a no-op.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Catalog client for product-linked goals. Missing catalog config degrades
	// product-linked goal creation but does not prevent booting.
	var catalog app.ProductCatalog
	if strings.TrimSpace(cfg.CatalogServiceURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"catalog service not configured; product-linked goals disabled\" env=CATALOG_SERVICE_URL")
	} else {
		catalog = catalogclient.NewClient(cfg.CatalogServiceURL, cfg.InternalAPIKey)
	}

	// Redis-backed rate limiting. Missing or unreachable Redis disables it.
	var limiter app.RateLimiter
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	repository := store.NewPostgresRepository(dbpool)
	executor := store.NewExecutor(dbpool, cfg.LedgerMaxRetries)

	service := app.NewService(repository, executor, catalog, producer, cfg.NotificationEventExchange, cfg.DefaultCurrency)

	// Cron scheduler for the daily automated savings batch.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	scheduler := app.NewScheduler(service, logger, cfg.AutomationCronSchedule)
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	handlers := api.NewHandlers(service)
	router := api.Routes(handlers, limiter, cfg)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
