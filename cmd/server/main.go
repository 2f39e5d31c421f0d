package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/config"
	"github.com/scriptvoid/scriptvoid/internal/database"
	"github.com/scriptvoid/scriptvoid/internal/handler"
	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/middleware"
	"github.com/scriptvoid/scriptvoid/internal/notify"
	"github.com/scriptvoid/scriptvoid/internal/promotion"
	"github.com/scriptvoid/scriptvoid/internal/queue"
	"github.com/scriptvoid/scriptvoid/internal/repository"
	"github.com/scriptvoid/scriptvoid/internal/router"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
)

func main() {
	// Missing .env is fine in production where the environment is real.
	_ = godotenv.Load()

	cfg := config.Load()
	cacheCfg := config.LoadCacheConfig()
	scoringCfg := config.LoadScoringConfig()
	rlCfg := config.LoadRateLimitConfig()
	metrics.Init()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	scripts := repository.NewScriptRepo(db)
	promos := repository.NewPromoRepo(db)
	comments := repository.NewCommentRepo(db)
	likes := repository.NewLikeRepo(db)

	changes := cache.NewChangeLog(cacheCfg.ChangeLogSize)
	ttl := cache.NewTTLCache(cacheCfg.Capacity, cacheCfg.Sweep)
	defer ttl.Close()
	smart := cache.NewSmartCache(ttl, changes)
	warmer := cache.NewWarmer(scripts, cacheCfg.WarmPageSize, cacheCfg.WarmFreshness)

	runner := scoring.NewRunner(scripts, users)
	runner.Budget = scoringCfg.BatchBudget

	webhook := notify.NewWebhook(os.Getenv("WEBHOOK_URL"))
	redeemer := promotion.NewService(promos, scripts, webhook)

	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	// Warm the popular/newest pages before taking traffic. A failed warm
	// just means the first requests hit the database.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := warmer.WarmCache(ctx); err != nil {
			log.Printf("initial cache warm failed: %v", err)
		}
		cancel()
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, &handler.BrowseHandler{
		Scripts:  scripts,
		Users:    users,
		Comments: comments,
		Cache:    smart,
		Warmer:   warmer,
		CacheTTL: cacheCfg.TTL,
	})
	router.RegisterScripts(e,
		&handler.ScriptHandler{Scripts: scripts, Users: users, Cache: smart, Notifier: webhook},
		&handler.EngagementHandler{Scripts: scripts, Comments: comments, Likes: likes, Cache: smart, Scoring: scoringCfg},
		&handler.PromotionHandler{Service: redeemer, Cache: smart},
		cfg.JWTSecret,
		middleware.NewTokenBucket(rlCfg, rdb),
	)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Runner:  runner,
		Promos:  promos,
		Users:   users,
		Cache:   smart,
		Warmer:  warmer,
		Scoring: scoringCfg,
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
