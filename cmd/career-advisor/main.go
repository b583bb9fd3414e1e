package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-career-advisor/internal/cache"
	"github.com/pribylovaa/go-career-advisor/internal/chat"
	"github.com/pribylovaa/go-career-advisor/internal/chat/gemini"
	"github.com/pribylovaa/go-career-advisor/internal/config"
	apphttp "github.com/pribylovaa/go-career-advisor/internal/http"
	"github.com/pribylovaa/go-career-advisor/internal/metrics"
	"github.com/pribylovaa/go-career-advisor/internal/reports"
	"github.com/pribylovaa/go-career-advisor/internal/service"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"github.com/pribylovaa/go-career-advisor/internal/storage/mongo"
	"github.com/pribylovaa/go-career-advisor/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "db_driver", cfg.DB.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := openStorage(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		log.Error("storage_connect_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("storage_connected", slog.String("driver", cfg.DB.Driver))

	m := metrics.New(prometheus.DefaultRegisterer)

	// Сервис.
	srvc, err := service.New(str, cfg.Auth, cfg.Quiz)
	if err != nil {
		log.Error("service_init_failed", slog.String("err", err.Error()))
		rootCancel()
		_ = str.Close(context.Background())
		os.Exit(1)
	}
	srvc.SetMetrics(m)

	// Опциональные зависимости: без них сервис работает в урезанном режиме.
	var rcache cache.RefreshCache
	if cfg.Redis.URL != "" {
		rcache, err = cache.NewRedisCache(rootCtx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Auth.RefreshTokenTTL)
		if err != nil {
			log.Warn("redis_unavailable", slog.String("err", err.Error()))
			rcache = nil
		} else {
			srvc.SetRefreshCache(rcache)
			log.Info("redis_connected")
		}
	}

	if cfg.S3.Endpoint != "" {
		store, err := reports.New(rootCtx, cfg.S3)
		if err != nil {
			log.Warn("reports_unavailable", slog.String("err", err.Error()))
		} else {
			srvc.SetReports(store)
			log.Info("reports_enabled", slog.String("bucket", cfg.S3.Bucket))
		}
	}

	var assistant chat.Assistant
	model := cfg.Chat.Model
	if cfg.Chat.APIKey != "" {
		client, err := gemini.New(rootCtx, cfg.Chat.APIKey, cfg.Chat.Model, chat.SystemPrompt)
		if err != nil {
			log.Warn("chat_assistant_unavailable", slog.String("err", err.Error()))
		} else {
			assistant = client
			model = client.Model()
		}
	} else {
		log.Warn("chat_assistant_not_configured")
	}

	bot := chat.NewBot(assistant, model, cfg.Chat.Timeout)
	bot.SetMetrics(m)
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := srvc.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apphttp.NewRouter(srvc, bot, apphttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: cfg.HTTP.BasePath,
		Metrics:  m,
	}))

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Фоновая очистка просроченных refresh-токенов.
	startRefreshJanitor(rootCtx, srvc, log, cfg.Auth.JanitorPeriod)

	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed",
			slog.String("addr", httpAddr),
			slog.String("err", err.Error()),
		)
		rootCancel()
		_ = str.Close(context.Background())
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	atomic.StoreInt32(&ready, 1)

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	// Явная очистка перед выходом.
	if rcache != nil {
		_ = rcache.Close()
	}
	if err := str.Close(shutdownCtx); err != nil {
		log.Warn("storage_close_failed", slog.String("err", err.Error()))
	}
	shutdownCancel()
	rootCancel()

	log.Info("service_stopped")
	os.Exit(0)
}

// openStorage подключает хранилище выбранного драйвера.
func openStorage(ctx context.Context, cfg config.DBConfig) (storage.Storage, error) {
	if cfg.Driver == config.DriverPostgres {
		st, err := postgres.New(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}

	st, err := mongo.New(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// tokenCleaner — то, что умеет удалять просроченные refresh-токены (service.Service).
type tokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// startRefreshJanitor запускает фоновую задачу, которая периодически удаляет
// просроченные refresh-токены из хранилища отзыва.
func startRefreshJanitor(ctx context.Context, c tokenCleaner, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := c.CleanupExpiredTokens(ctx)
				if err != nil {
					log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				log.Debug("refresh_janitor_done", slog.Int64("deleted", n))
			}
		}
	}()
}
