package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/cache"
	"github.com/liblogin/internal/config"
	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/handler"
	"github.com/liblogin/internal/logger"
	"github.com/liblogin/internal/router"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "dev"

var (
	cfg config.AppConfig
	log *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "liblogin",
	Short:        "Captive portal content and reach analytics backend",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		log, err = logger.New(cfg.Log.Mode)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, initUserCmd, importHotspotsCmd, rollupCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("liblogin", version)
	},
}

func openDB() (*gorm.DB, error) {
	gdb, err := db.Init(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return gdb, nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// openCache returns the configured store and a function releasing it.
func openCache(ctx context.Context) (cache.Store, func(), error) {
	if cfg.Cache.Driver == "redis" {
		rdb, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mem := cache.NewMemory()
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					log.Debug("swept expired cache entries", "count", n)
				}
			case <-stop:
				return
			}
		}
	}()
	return mem, func() { close(stop) }, nil
}

func newAPI(gdb *gorm.DB, store cache.Store) (*handler.API, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return handler.NewAPI(gdb, store, handler.Options{
		MediaBaseURL:          cfg.Media.BaseURL,
		HotspotRoot:           cfg.Hotspot.RootDir,
		Location:              loc,
		LandingTTL:            cfg.Cache.LandingTTL,
		DefaultTargetAudience: cfg.Analytics.DefaultTargetAudience,
		Logger:                log,
	}), nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gin.SetMode(cfg.Server.GinMode)

		gdb, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		if created, err := db.EnsureUser(gdb, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		} else if created {
			log.Info("created admin user", "username", cfg.Admin.Username)
		}

		store, release, err := openCache(ctx)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer release()

		api, err := newAPI(gdb, store)
		if err != nil {
			return err
		}

		limiter := handler.NewRateLimiter(cfg.RateLimit.ImpressionsPerMinute)
		limiter.Start(10 * time.Minute)
		defer limiter.Stop()

		srv := &http.Server{
			Addr: cfg.Server.ListenAddr,
			Handler: router.SetupRouter(api, router.Options{
				SessionSecret:     cfg.Server.SessionSecret,
				Logger:            log,
				ImpressionLimiter: limiter,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", "addr", srv.Addr, "database", cfg.Database.Driver, "cache", cfg.Cache.Driver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}
