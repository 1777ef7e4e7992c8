package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // used only before the zap logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/config"   // Internal config loader
	"github.com/iliyamo/shop-api/internal/database" // MySQL connection and schema
	"github.com/iliyamo/shop-api/internal/logger"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/repository/memstore"
	"github.com/iliyamo/shop-api/internal/router" // Internal router setup
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

// stores groups the repositories selected by STORE_DRIVER.
type stores struct {
	users    repository.UserRepository
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	orders   repository.OrderRepository
	db       *sql.DB
}

func openStores(ctx context.Context, cfg config.Config, lg *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		lg.Warn("using in-memory store; data is lost on restart")
		m := memstore.New()
		return &stores{users: m.Users(), products: m.Products(), reviews: m.Reviews(), orders: m.Orders()}, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoSchema {
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		lg.Info("database schema ensured")
	}
	return &stores{
		users:    repository.NewUserRepo(db),
		products: repository.NewProductRepo(db),
		reviews:  repository.NewReviewRepo(db),
		orders:   repository.NewOrderRepo(db),
		db:       db,
	}, nil
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.Init(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "shop-api",
		File:        cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}

	identity := service.NewIdentityService(st.users, cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute, cfg.BcryptCost, lg.Named("identity"))
	if err := identity.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		lg.Fatal("bootstrap admin", zap.Error(err))
	}
	propagator := service.NewPropagator(st.orders, lg.Named("propagator"))

	uploader, err := storage.NewLocalUploader(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		lg.Fatal("upload dir", zap.String("dir", cfg.UploadDir), zap.Error(err))
	}

	rlCfg := config.LoadRateLimitConfig()
	var buckets redis.Scripter
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		if rlCfg.Enabled {
			lg.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		}
	} else {
		defer rdb.Close()
		buckets = rdb
	}

	e := router.New(router.Deps{
		JWTSecret: cfg.JWTSecret,
		Log:       lg,
		Identity:  identity,
		Catalog:   service.NewCatalogService(st.products, propagator, lg.Named("catalog")),
		Orders:    service.NewOrderService(st.orders, st.products, lg.Named("orders")),
		Reviews:   service.NewReviewService(st.reviews, st.products, st.orders, st.users, lg.Named("reviews")),
		Uploader:  uploader,
		UploadDir: cfg.UploadDir,
		Redis:     buckets,
		RateLimit: rlCfg,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown", zap.Error(err))
	}
}
