package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/api"
	"github.com/debemdeboas/draftdesk/internal/auth"
	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/db"
	"github.com/debemdeboas/draftdesk/internal/drafts"
	"github.com/debemdeboas/draftdesk/internal/logger"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/remote"
	"github.com/debemdeboas/draftdesk/internal/routes"
	"github.com/debemdeboas/draftdesk/internal/sse"
	"github.com/debemdeboas/draftdesk/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level)
	setLoggers(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start draft service")
	}

	provider, err := newAuthProvider(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create auth provider")
	}

	// SSE streams only end when their request context does.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     a.routes(provider, log),
		BaseContext: func(net.Listener) context.Context { return streamCtx },
	}
	srv.RegisterOnShutdown(cancelStreams)

	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Backend).Msg("Draft service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	a.stop(log.WithContext(shutdownCtx), srv)
}

func setLoggers(log zerolog.Logger) {
	config.SetLogger(logger.Component(log, "config"))
	db.SetLogger(logger.Component(log, "db"))
	storage.SetLogger(logger.Component(log, "storage"))
	drafts.SetLogger(logger.Component(log, "drafts"))
	sse.SetLogger(logger.Component(log, "sse"))
	auth.SetLogger(logger.Component(log, "auth"))
	remote.SetLogger(logger.Component(log, "remote"))
}

type app struct {
	durable   storage.Durable
	stores    []*drafts.Store
	scheduler *drafts.CronScheduler
	registry  *drafts.Registry
	clients   *sse.SSEClients
	handler   *api.Handler
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	durable, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf(config.ErrOpenStorageFmt, err)
	}

	slot, err := storage.NewFileSlot(cfg.Drafts.FallbackDir)
	if err != nil {
		durable.Close()
		return nil, err
	}

	clients := sse.NewSSEClients()
	notifier := drafts.Notifiers{clients, drafts.LogNotifier{}}

	var stores []*drafts.Store
	for _, kind := range []model.Kind{model.KindBlog, model.KindProject} {
		st := drafts.NewStore(kind, durable, slot,
			drafts.WithMaxDrafts(cfg.Drafts.MaxDrafts),
			drafts.WithExcerptLength(cfg.Drafts.ExcerptLength),
			drafts.WithPersistTimeout(cfg.Storage.Timeout),
			drafts.WithNotifier(notifier),
		)
		loaded := st.Load(ctx)
		zerolog.Ctx(ctx).Debug().Str("kind", string(kind)).Int("drafts", len(loaded)).Msg("Loaded drafts")
		stores = append(stores, st)
	}

	scheduler := drafts.NewCronScheduler()
	scheduler.Start()

	registry := drafts.NewRegistry(stores, scheduler, cfg.Drafts.AutosaveInterval, notifier)

	return &app{
		durable:   durable,
		stores:    stores,
		scheduler: scheduler,
		registry:  registry,
		clients:   clients,
		handler:   api.NewHandler(registry, clients, remote.NewClient(cfg.Remote)),
	}, nil
}

func newAuthProvider(cfg config.AuthConfig) (auth.AuthProvider, error) {
	if !cfg.Enabled {
		return auth.NewOpenProvider(model.UserID(cfg.User)), nil
	}
	p, err := auth.NewEd25519AuthProvider(cfg.PublicKey, cfg.Header, model.UserID(cfg.User))
	if err != nil {
		return nil, fmt.Errorf(config.ErrCreateProviderFmt, err)
	}
	return p, nil
}

func (a *app) routes(provider auth.AuthProvider, log zerolog.Logger) http.Handler {
	protected := http.NewServeMux()
	a.handler.Register(protected)
	guarded := auth.RequireUser(provider)(protected)

	mux := http.NewServeMux()
	mux.Handle("/api/", guarded)
	mux.Handle(routes.SSEPath, guarded)
	a.handler.RegisterHealth(mux)

	if p, ok := provider.(*auth.Ed25519AuthProvider); ok {
		auth.RegisterEd25519AuthRoutes(mux, p)
	}

	authMux := provider.WithHeaderAuthorization()(secureHeaders(mux.ServeHTTP))
	return withLogger(log, cacheIt(authMux.ServeHTTP))
}

// stop closes the listener and waits for in-flight requests before the
// stores are unloaded, so no write lands after the persist workers exit.
func (a *app) stop(ctx context.Context, srv *http.Server) {
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Server shutdown")
	}
	a.shutdown(ctx)
}

// shutdown unloads every open editor and drains the persist workers.
func (a *app) shutdown(ctx context.Context) {
	log := zerolog.Ctx(ctx)

	n := a.registry.UnloadAll()
	log.Info().Int("sessions", n).Msg("Unloaded open editors")

	for _, st := range a.stores {
		if err := st.Flush(ctx); err != nil {
			log.Warn().Err(err).Str("kind", string(st.Kind())).Msg("Draft flush did not complete")
		}
		st.Close()
	}

	a.scheduler.Stop()
	if err := a.durable.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing draft storage")
	}
}

func withLogger(log zerolog.Logger, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r.WithContext(log.WithContext(r.Context())))
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	}
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie, Authorization")
		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}
