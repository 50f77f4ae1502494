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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messageapp/internal/config"
	"messageapp/internal/handlers"
	"messageapp/internal/jobs"
	"messageapp/internal/middleware"
	"messageapp/internal/observability"
	"messageapp/internal/rabbitmq"
	"messageapp/internal/repositories"
	"messageapp/internal/store"
	"messageapp/internal/telemetry"
	"messageapp/internal/updates"
	"messageapp/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName)
	defer publisher.Close()
	log.Printf("rabbitmq mode=%s", rabbitmq.Mode(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.ServiceName, cfg.Environment)

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open store backend: %v", err)
	}
	defer closeBackend()

	db, err := store.Open(ctx, backend)
	if err != nil {
		log.Fatalf("failed to load store: %v", err)
	}

	userRepo := repositories.NewUserRepo(db, cfg.TokenTTL, cfg.BcryptCost)
	tokenRepo := repositories.NewTokenRepo(db)
	conversationRepo := repositories.NewConversationRepo(db)
	messageRepo := repositories.NewMessageRepo(db)

	tracker, closeTracker := openTracker(ctx, cfg.RedisAddr)
	defer closeTracker()

	hub := ws.NewHub(tokenRepo, conversationRepo)

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, hub, audit, cfg.TokenTTL, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(userRepo, audit)
	friendHandler := handlers.NewFriendHandler(userRepo, tracker, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, userRepo, messageRepo, hub, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, conversationRepo, tracker, hub, audit)
	updatesHandler := handlers.NewUpdatesHandler(tracker)
	conversationWS := ws.NewConversationHandler(hub, tokenRepo, conversationRepo)

	router := gin.Default()
	router.Use(
		middleware.CORS(cfg.CORSOrigin),
		otelgin.Middleware(cfg.ServiceName),
		observability.RequestID(),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/healthCheck", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	authMiddleware := middleware.Auth(tokenRepo, userRepo)

	auth := router.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/verify", authHandler.Verify)
	auth.POST("/logout", authMiddleware, authHandler.Logout)
	auth.POST("/logout-all", authMiddleware, authHandler.LogoutAll)

	users := router.Group("/users", authMiddleware)
	users.GET("/me", userHandler.Me)
	users.PUT("/me", userHandler.UpdateMe)
	users.PUT("/password", userHandler.ChangePassword)
	users.GET("/search", userHandler.Search)
	users.GET("/:id", userHandler.Get)

	friends := router.Group("/friends", authMiddleware)
	friends.GET("", friendHandler.List)
	friends.GET("/requests", friendHandler.Requests)
	friends.POST("/requests/:userId", friendHandler.SendRequest)
	friends.PUT("/requests/:userId/accept", friendHandler.Accept)
	friends.PUT("/requests/:userId/decline", friendHandler.Decline)
	friends.DELETE("/:userId", friendHandler.Remove)

	conversations := router.Group("/conversations", authMiddleware)
	conversations.GET("", conversationHandler.List)
	conversations.POST("/direct/:userId", conversationHandler.CreateDirect)
	conversations.POST("/group", conversationHandler.CreateGroup)
	conversations.GET("/:id", conversationHandler.Get)
	conversations.PUT("/:id", conversationHandler.Rename)
	conversations.DELETE("/:id", conversationHandler.Delete)
	conversations.POST("/:id/participants", conversationHandler.AddParticipants)
	conversations.DELETE("/:id/participants/:userId", conversationHandler.RemoveParticipant)

	messages := router.Group("/messages", authMiddleware)
	messages.GET("/unread", messageHandler.Unread)
	messages.GET("/search", messageHandler.Search)
	messages.GET("/conversations/:id/messages", messageHandler.List)
	messages.POST("/conversations/:id/messages", messageHandler.Send)
	messages.PUT("/conversations/:id/read", messageHandler.MarkConversationRead)
	messages.PUT("/:id/read", messageHandler.MarkRead)
	messages.PUT("/:id", messageHandler.Edit)
	messages.DELETE("/:id", messageHandler.Delete)

	router.GET("/updates/check", authMiddleware, updatesHandler.Check)
	router.GET("/ws/conversations/:id", conversationWS.Handle)

	go jobs.RunTokenSweeper(ctx, tokenRepo, cfg.TokenSweepInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("server listening port=%s store=%s", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// openBackend picks the snapshot backend named by STORE_DRIVER.
func openBackend(cfg config.Config) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		conn, err := store.Connect(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresBackend(conn), func() { _ = conn.Close() }, nil
	case config.DriverFile:
		return store.NewFileBackend(cfg.StorePath), func() {}, nil
	default:
		return nil, nil, errors.New("unknown store driver " + cfg.StoreDriver)
	}
}

// openTracker uses Redis when an address is configured and reachable, and the
// in-process tracker otherwise.
func openTracker(ctx context.Context, addr string) (updates.Tracker, func()) {
	if addr == "" {
		return updates.NewMemoryTracker(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis unavailable addr=%s err=%v, using in-memory update tracker", addr, err)
		_ = client.Close()
		return updates.NewMemoryTracker(), func() {}
	}

	log.Printf("redis update tracker addr=%s", addr)
	return updates.NewRedisTracker(client, updates.DefaultRedisKey), func() { _ = client.Close() }
}
