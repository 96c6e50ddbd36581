// cmd/web/main.go
//
// Medcost – HTTP entry point.
//
// Start-up
// --------
//
//  1. Load configuration (defaults → conf/global.yaml → conf/.env → env).
//
//  2. Start the rotating logger (tees to console when running in a TTY).
//
//  3. Load the form definition (embedded unless form.path is set).
//
//  4. Build the prediction client and the per-browser session store.
//
//  5. Resolve the CSRF key (literal, vault reference, or random per process).
//
//  6. Mount routes on chi: form surface, /metrics, /healthz.
//
//  7. Serve until SIGINT/SIGTERM, then shut down gracefully.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/config"
	"github.com/yanizio/medcost/internal/controller"
	"github.com/yanizio/medcost/internal/form"
	"github.com/yanizio/medcost/internal/logger"
	"github.com/yanizio/medcost/internal/middleware"
	"github.com/yanizio/medcost/internal/predict"
	"github.com/yanizio/medcost/internal/server"
	"github.com/yanizio/medcost/internal/session"
	"github.com/yanizio/medcost/internal/vault"
	"github.com/yanizio/medcost/internal/web"
)

const (
	shutdownGrace  = 15 * time.Second
	refreshSeconds = 1
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Log.Dir, runningInTTY() || cfg.Log.Tee, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Form definition ─────────────────────────────────────────────
	//
	def, err := loadForm(cfg.Form.Path)
	if err != nil {
		logOut.Fatalw("load form", "path", cfg.Form.Path, "err", err)
	}
	logOut.Infow("form ready", "id", def.ID, "fields", len(def.Fields))

	//
	// ── 4.  Prediction client + sessions ────────────────────────────────
	//
	client := predict.New(cfg.Predict.Endpoint, predict.WithLogger(logOut))
	logOut.Infow("prediction endpoint", "url", client.Endpoint())

	store := session.New(func() *controller.Controller {
		return controller.New(def, client, controller.WithLogger(logOut))
	}, session.Options{
		IdleTTL:      cfg.Session.IdleTTL,
		MaxEntries:   cfg.Session.MaxEntries,
		SecureCookie: cfg.HTTP.ForceHTTPS,
		Logger:       logOut,
	})
	defer store.Close()

	//
	// ── 5.  CSRF signer ─────────────────────────────────────────────────
	//
	signer, err := csrfSigner(context.Background(), cfg.Security.CSRFKey, logOut)
	if err != nil {
		logOut.Fatalw("csrf signer", "err", err)
	}

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logOut))
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)

	r.Handle("/metrics", promhttp.Handler())
	web.New(def, store, signer, logOut, refreshSeconds).Routes(r)

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logOut.Errorw("graceful shutdown", "err", err)
	}
}

// loadForm returns the embedded definition unless path points elsewhere.
func loadForm(path string) (*form.FormDef, error) {
	if path == "" {
		return form.Default()
	}
	return form.LoadFormDef(path)
}

// csrfSigner builds the signer from a literal key, a vault reference, or,
// when unset, a random key that lives for this process only.
func csrfSigner(ctx context.Context, key string, log *zap.SugaredLogger) (*form.Signer, error) {
	switch {
	case key == "":
		log.Warnw("security.csrf_key unset, using a per-process random key")
		return form.RandomSigner()
	case vault.IsRef(key):
		vc, err := vault.New(ctx, log.Infof)
		if err != nil {
			return nil, err
		}
		secret, err := vc.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		return form.NewSigner([]byte(secret))
	default:
		return form.NewSigner([]byte(key))
	}
}
