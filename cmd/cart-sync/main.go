package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fjod/cart-sync/internal/cache"
	h "github.com/fjod/cart-sync/internal/http"
	"github.com/fjod/cart-sync/internal/repository"
	"github.com/fjod/cart-sync/internal/service"
)

type Config struct {
	HTTPPort        string
	StoreBackend    string // "memory" or "mongo"
	MongoURI        string
	MongoDBName     string
	RedisAddr       string // empty disables the read cache
	RedisPassword   string
	SessionIdleTTL  time.Duration // <= 0 disables eviction
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		StoreBackend:    getEnv("STORE_BACKEND", "memory"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "cartsync"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SessionIdleTTL:  getDurationEnv("SESSION_IDLE_TTL", 0),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Fatalf("invalid %s: %v", key, err)
		}
		return d
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := loadConfig()
	ctx := context.Background()

	// Storage backend
	var repo repository.Repository
	switch cfg.StoreBackend {
	case "memory":
		repo = repository.NewMemoryRepository()
		log.Println("using in-memory store")
	case "mongo":
		mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Client().Disconnect(ctx)
		repo, err = repository.NewMongoRepository(ctx, mongoDB)
		if err != nil {
			log.Fatalf("Failed to set up MongoDB repository: %v", err)
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
	default:
		log.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// Optional Redis read cache
	var cartCache cache.CartCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Println("Redis ping succeeded")
		cartCache = cache.NewRedisCache(redisClient)
	}

	sessions := service.NewSessionStore(repo, cfg.SessionIdleTTL)
	defer sessions.Close()

	carts := service.NewCartService(repo, cartCache)
	gateway := service.NewGateway(carts, sessions)
	linker := service.NewLinker(sessions, carts, gateway)
	pending := service.NewPendingLinks()

	cartHandler := h.NewCartHandler(gateway, sessions, cfg.RequestTimeout)
	linkHandler := h.NewLinkHandler(linker, sessions, gateway, pending, cfg.RequestTimeout)

	router := h.NewRouter(cartHandler, linkHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("cart-sync listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
