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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/promptcraft/server/internal/compute"
	"github.com/promptcraft/server/internal/config"
	"github.com/promptcraft/server/internal/events"
	"github.com/promptcraft/server/internal/handler"
	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/middleware"
	"github.com/promptcraft/server/internal/reward"
	"github.com/promptcraft/server/internal/service"
	"github.com/promptcraft/server/internal/session"
	"github.com/promptcraft/server/internal/store"
	"github.com/promptcraft/server/internal/treasury"
)

func main() {
	// ── Configuration ──
	cfg := config.Load()

	// ── Redis (ephemeral round state) ──
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("connected to Redis at", cfg.RedisAddr)

	// ── SQL Store (reward ledger + audit) ──
	dbDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	st, err := store.NewStore(dbDSN)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	log.Printf("database initialised: %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)

	// ── Reward path ──
	ledg := ledger.NewSQLLedger(st.DB())
	disburser := treasury.NewClient(cfg.TreasuryURL, cfg.TreasuryToken)
	issuer := reward.NewIssuer(ledg, disburser, cfg.RewardAmount)

	// ── Compute agent client ──
	policy := compute.PollPolicy{
		MaxAttempts:    cfg.PollMaxAttempts,
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.PollRequestTimeout,
	}
	cc := compute.NewClient(cfg.ComputeBaseURL, cfg.PipelineID, policy)

	// ── Rounds & events ──
	rounds := session.NewStore(rdb, cfg.RoundTTL)
	bus := events.NewBus()

	// ── Service ──
	svc := service.NewRoundService(cc, rounds, issuer, bus, st, cfg.RewardThreshold)

	// ── Gin Router ──
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	h := handler.NewHandler(svc, ledg, bus)
	h.RegisterRoutes(r)

	adminHandler := handler.NewAdminHandler(ledg, st)
	adminHandler.RegisterRoutes(r.Group("/api/v1/admin", middleware.AdminTokenAuth(cfg.AdminToken)))

	// ── HTTP Server with graceful shutdown ──
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	// ── Graceful Shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	rdb.Close()
	log.Println("server exited cleanly")
}
