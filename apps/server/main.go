package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nileshj/vibelink/pkg/auth"
	"github.com/nileshj/vibelink/pkg/config"
	"github.com/nileshj/vibelink/pkg/dispatch"
	"github.com/nileshj/vibelink/pkg/jobs"
	"github.com/nileshj/vibelink/pkg/media"
	"github.com/nileshj/vibelink/pkg/metrics"
	"github.com/nileshj/vibelink/pkg/presence"
	"github.com/nileshj/vibelink/pkg/registry"
	"github.com/nileshj/vibelink/pkg/snowflake"
	"github.com/nileshj/vibelink/pkg/store"
)

type server struct {
	store      store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	presence   *presence.Tracker
	jobs       *jobs.Emitter
	uploader   media.Uploader
	verifier   *auth.Verifier
	ids        *snowflake.Node
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	protect := s.verifier.Middleware

	r.Handle("/login", http.HandlerFunc(s.handleLogin)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/stream/{userID}", protect(http.HandlerFunc(s.handleStream))).Methods(http.MethodGet)
	r.Handle("/messages/send", protect(http.HandlerFunc(s.handleSend))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/messages/conversation", protect(http.HandlerFunc(s.handleConversation))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/messages/recent", protect(http.HandlerFunc(s.handleRecent))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/presence/online", protect(http.HandlerFunc(s.handleOnline))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.Use(CORSMiddleware)
	return r
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if err := store.EnsureSchema(cfg.ScyllaHosts, cfg.ScyllaKeyspace); err != nil {
		slog.Error("failed to ensure schema", "err", err)
		os.Exit(1)
	}
	session, err := store.NewSession(cfg.ScyllaHosts, cfg.ScyllaKeyspace)
	if err != nil {
		slog.Error("failed to connect to ScyllaDB", "err", err)
		os.Exit(1)
	}
	defer session.Close()

	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		slog.Error("failed to initialize snowflake node", "err", err)
		os.Exit(1)
	}

	st := store.NewScylla(session)
	reg := registry.New()
	dispatcher := dispatch.New(st, reg)
	if len(cfg.KafkaBrokers) > 0 {
		dispatcher.EnableBridge(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer dispatcher.Close()

	tracker := presence.NewTracker(cfg.RedisAddr)
	defer tracker.Close()

	emitter, err := jobs.Connect(cfg.AMQPURL, "vibelink-jobs")
	if err != nil {
		slog.Error("failed to connect to job broker", "err", err)
		os.Exit(1)
	}
	defer emitter.Close()

	var uploader media.Uploader
	if cfg.MediaUploadURL != "" {
		uploader = media.NewClient(cfg.MediaUploadURL, cfg.MediaAPIKey)
	}

	s := &server{
		store:      st,
		registry:   reg,
		dispatcher: dispatcher,
		presence:   tracker,
		jobs:       emitter,
		uploader:   uploader,
		verifier:   auth.NewVerifier(cfg.JWTSecret),
		ids:        ids,
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}

	go func() {
		slog.Info("server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("shutdown incomplete", "err", err)
	}
}
