package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cataloghub/internal/cachedemo"
	"cataloghub/internal/catalog"
	"cataloghub/internal/jobs"
	"cataloghub/pkg/cache"
	"cataloghub/pkg/database"
	"cataloghub/pkg/logger"
	"cataloghub/pkg/utils"
)

func main() {
	srvCfg := utils.LoadServerConfig()

	log, err := logger.New(srvCfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	// one backing store behind all three cache tiers
	var store cache.Store
	if srvCfg.RedisAddr != "" {
		log.Info("using redis cache store", "addr", srvCfg.RedisAddr)
		redisStore := cache.NewRedisStore(srvCfg.RedisAddr)
		defer redisStore.Close()
		store = redisStore
	} else {
		memStore := cache.NewMemoryStore()
		defer memStore.Close()
		store = memStore
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"items": []string{
				"/items/fanout", "/items/join", "/items/batch", "/items/combined",
				"/items/filter", "/items/atomic-update", "/items/projected",
				"/items/deferred", "/items/as-maps", "/items/as-tuples",
				"/items/index-compare",
			},
			"cache": []string{"/cache/manual", "/cache/per-view", "/cache/fragment"},
			"jobs":  []string{"/jobs/item-stats?item_id=", "/jobs/user-stats?user_id=", "/jobs/:id"},
		})
	})

	catalogHandler := catalog.NewHandler(db)
	catalogHandler.RegisterRoutes(router.Group("/items"))

	cacheHandler := cachedemo.NewHandler(db, store, srvCfg.CacheTTL)
	cacheHandler.RegisterRoutes(router.Group("/cache"))

	queue := jobs.NewQueue(db)
	jobsHandler := jobs.NewHandler(queue)
	jobsHandler.RegisterRoutes(router.Group("/jobs"))

	httpSrv := &http.Server{
		Addr:    srvCfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API server listening", "addr", srvCfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	log.Info("server stopped")
}
