package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/chess-relay/internal/archive"
	appcfg "github.com/park285/chess-relay/internal/config"
	"github.com/park285/chess-relay/internal/lobby"
	"github.com/park285/chess-relay/internal/msgcat"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/wsserver"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and <env>.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load(*configDir)
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	texts, err := msgcat.New(cfg.App.MessagesDir)
	if err != nil {
		logger.Fatal("messages_error", zap.Error(err))
	}
	if err := texts.Require(
		"errors.name_too_long", "errors.creator_missing", "errors.room_not_found",
		"errors.room_full", "errors.not_in_room", "errors.already_seated",
		"errors.capacity", "errors.invalid_arguments", "errors.internal",
		"close.parse", "close.binary", "close.capacity", "close.slow_consumer", "close.shutdown",
	); err != nil {
		logger.Fatal("messages_missing", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		observers []relay.Observer
		asyncs    []*relay.Async
		lister    wsserver.LobbyLister
		counters  wsserver.CounterReader
	)

	if cfg.Redis.URL != "" {
		rdb, err := lobby.Dial(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer rdb.Close()
		store := lobby.NewStore(rdb)
		a := relay.NewAsync("lobby", lobby.NewObserver(store), 256)
		asyncs = append(asyncs, a)
		observers = append(observers, a)
		lister = store
		counters = store
		logger.Info("lobby_enabled")
	}

	if cfg.Database.URL != "" {
		repo, err := archive.NewPostgresRepository(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("database_init_error", zap.Error(err))
		}
		defer repo.Close()
		a := relay.NewAsync("archive", archive.NewObserver(repo), 256)
		asyncs = append(asyncs, a)
		observers = append(observers, a)
		logger.Info("archive_enabled")
	}

	coord := relay.New(relay.Options{
		MaxParticipants: cfg.App.MaxParticipants,
		MaxRooms:        cfg.App.MaxRooms,
		QueueSize:       cfg.App.QueueSize,
		Messages:        texts,
		Observers:       observers,
	})
	coordCtx, stopCoord := context.WithCancel(context.Background())
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		_ = coord.Run(coordCtx)
	}()

	srv := wsserver.New(wsserver.Options{
		Coordinator:    coord,
		Texts:          texts,
		StaticDir:      cfg.App.StaticDir,
		OutboundBuffer: cfg.App.OutboundBuffer,
		OriginPatterns: cfg.App.AllowedOrigins,
		Lobby:          lister,
		Counters:       counters,
	})
	httpSrv := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http_listen",
			zap.String("addr", httpSrv.Addr),
			zap.String("env", string(cfg.Environment)),
			zap.String("static_dir", cfg.App.StaticDir),
		)
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_error", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("ws_shutdown_error", zap.Error(err))
	}
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	stopCoord()
	<-coordDone
	for _, a := range asyncs {
		a.Close()
	}
	logger.Info("shutdown_complete")
}
