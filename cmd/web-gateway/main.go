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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/event-booking/internal/clients"
	"github.com/pribylovaa/event-booking/internal/config"
	"github.com/pribylovaa/event-booking/internal/credentials"
	gwhttp "github.com/pribylovaa/event-booking/internal/http"
	"github.com/pribylovaa/event-booking/internal/http/handlers"
	"github.com/pribylovaa/event-booking/internal/locale"
	"github.com/pribylovaa/event-booking/internal/metrics"
	"github.com/pribylovaa/event-booking/internal/models"
	"github.com/pribylovaa/event-booking/internal/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting web-gateway", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	cl, err := clients.New(*cfg, log)
	if err != nil {
		log.Error("clients_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if cerr := cl.Close(); cerr != nil {
			log.Warn("clients_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("clients_initialized", slog.String("backend", cfg.Backend.URL))

	newRole := func(role models.Role, rc config.RoleConfig) handlers.Role {
		return handlers.Role{
			Session: session.New(cl.For(role), session.Options{
				Role:      role,
				LoginPath: rc.LoginPath,
				Base:      cl.Base,
				Timeout:   cl.Timeout,
				UserAgent: cl.UserAgent,
				Logger:    log,
				Metrics:   m,
			}),
			Backend: cl.For(role),
		}
	}

	h := handlers.New(handlers.Options{
		User:         newRole(models.RoleUser, cfg.User),
		Admin:        newRole(models.RoleAdmin, cfg.Admin),
		MaxBodyBytes: cfg.Backend.MaxBodyBytes,
		Locale:       locale.CookieOptions{Domain: cfg.Cookies.Domain, Secure: cfg.Cookies.Secure()},
	})

	renderer, err := handlers.RendererProxy(cfg.Renderer.URL, cl.Base)
	if err != nil {
		log.Error("renderer_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	opts := gwhttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Cookies: credentials.Options{
			Domain:   cfg.Cookies.Domain,
			Secure:   cfg.Cookies.Secure(),
			HTTPOnly: true,
			SameSite: cfg.Cookies.SameSiteMode(),
			User:     credentials.Policy{AccessTTL: cfg.User.AccessTTL, RefreshTTL: cfg.User.RefreshTTL},
			Admin:    credentials.Policy{AccessTTL: cfg.Admin.AccessTTL, RefreshTTL: cfg.Admin.RefreshTTL},
		},
		Locale:   locale.Options{Exclude: cfg.Locale.Exclude, Metrics: m},
		Renderer: renderer,
	}

	gatewayHandler := gwhttp.NewRouter(h, opts)

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", gatewayHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
