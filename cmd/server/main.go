package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/term"

	"ledgerviz/internal/config"
	"ledgerviz/internal/handlers/backup"
	"ledgerviz/internal/handlers/files"
	"ledgerviz/internal/handlers/visualization"
	"ledgerviz/internal/logging"
	"ledgerviz/internal/services/classifier"
	"ledgerviz/internal/services/dataloader"
	"ledgerviz/internal/services/metrics"
	"ledgerviz/internal/services/render"
	"ledgerviz/internal/services/storage"
	viz "ledgerviz/internal/services/visualization"
	"ledgerviz/internal/templates"
	"ledgerviz/internal/version"
)

// passwordEnv names the variable holding the data password for unattended
// starts
const passwordEnv = config.EnvPrefix + "_PASSWORD"

var store *storage.Storage

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	info := version.Get()
	if *showVersion {
		fmt.Println(info)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON}); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Log.Info("starting ledgerviz", append(info.Fields(),
		zap.String("addr", cfg.ListenAddr),
		zap.String("data_dir", cfg.DataDirectory))...)
	if warning := info.Warning(); warning != "" {
		logging.Log.Warn(warning)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logging.Log.Fatal("could not create directories", zap.Error(err))
	}

	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		logging.Log.Fatal("could not open data directory", zap.Error(err))
	}
	if store.IsEncrypted() {
		if err := unlockStorage(store); err != nil {
			logging.Log.Warn("data directory stays locked until POST /api/storage/unlock", zap.Error(err))
		}
	}

	if err := SetupDependencies(cfg); err != nil {
		logging.Log.Fatal("could not set up dependencies", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Log.Error("shutdown failed", zap.Error(err))
		}
	}()

	logging.Log.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Log.Fatal("server failed", zap.Error(err))
	}
	logging.Log.Info("server stopped")
}

// unlockStorage unlocks an encrypted data directory with the password from
// the environment, or by prompting when stdin is a terminal
func unlockStorage(s *storage.Storage) error {
	if password := os.Getenv(passwordEnv); password != "" {
		return s.Unlock(password)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%s is not set and stdin is not a terminal", passwordEnv)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		fmt.Fprint(os.Stderr, "Data password: ")
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		err = s.Unlock(string(password))
		if !errors.Is(err, storage.ErrIncorrectPassword) {
			return err
		}
		fmt.Fprintln(os.Stderr, "Incorrect password.")
	}
	return storage.ErrIncorrectPassword
}

// SetupDependencies builds the services and hands them to the handler
// packages. It opens the data directory unless store is already set.
func SetupDependencies(cfg *config.Config) error {
	if store == nil {
		var err error
		if store, err = storage.New(cfg.DataDirectory); err != nil {
			return err
		}
	}

	renderer, err := templates.New(templates.Files, cfg.Debug)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	c := classifier.New(cfg.Categories)
	loader := dataloader.New(store)
	settings := config.NewSettingsStore(cfg.UserSettingsFile, store)

	visualization.Initialize(visualization.Dependencies{
		Config:     cfg,
		Loader:     loader,
		Settings:   settings,
		Classifier: c,
		Builder: viz.NewBuilder(
			viz.WithClassifier(c),
			viz.WithSize("", fmt.Sprintf("%dpx", cfg.ChartHeight)),
		),
		Charts:    render.New(cfg.ChartWidth, cfg.ChartHeight),
		Metrics:   metrics.New(c),
		Templates: renderer,
	})
	files.Initialize(loader, store, settings)
	backup.Initialize(cfg, store)

	return nil
}

// SetupRouter creates the chi router with middleware and every route
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/visualization", http.StatusTemporaryRedirect)
	})

	visualization.RegisterRoutes(r)
	files.RegisterRoutes(r)
	backup.RegisterRoutes(r)

	return r
}
