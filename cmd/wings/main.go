package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/api"
	"github.com/kswarrior/ks-wings/internal/assets"
	"github.com/kswarrior/ks-wings/internal/auth"
	"github.com/kswarrior/ks-wings/internal/config"
	"github.com/kswarrior/ks-wings/internal/deploy"
	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/pubsub"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/session"
	"github.com/kswarrior/ks-wings/internal/state"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "wings",
		Usage:   "Host agent - deploys and supervises game server containers",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the host agent",
				Flags:  serverFlags(),
				Action: runServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Host agent bind address",
			Value:   "0.0.0.0",
			EnvVars: []string{"WINGS_HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Host agent bind port",
			Value:   8080,
			EnvVars: []string{"WINGS_PORT"},
		},
		&cli.StringFlag{
			Name:     "key",
			Usage:    "Shared secret the control API and session multiplexer authenticate requests against",
			EnvVars:  []string{"WINGS_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "docker-host",
			Usage:   "Docker daemon endpoint (empty uses the client library's default)",
			EnvVars: []string{"WINGS_DOCKER_HOST"},
		},
		&cli.StringFlag{
			Name:    "data-root",
			Usage:   "Root directory for persisted state and instance volumes",
			Value:   "/var/lib/wings",
			EnvVars: []string{"WINGS_DATA_ROOT"},
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for cross-process log/stats fan-out (empty uses the in-memory backend)",
			EnvVars: []string{"WINGS_REDIS_ADDR"},
		},
	}
}

func runServer(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, log := logger.PrepareLogger(ctx)

	cfg := config.FromFlags(c, version)

	rt, err := runtime.New(cfg.DockerHost)
	if err != nil {
		return fmt.Errorf("failed to connect to container runtime: %w", err)
	}
	defer rt.Close()

	if err := rt.Ping(ctx); err != nil {
		return fmt.Errorf("container runtime not reachable: %w", err)
	}

	store := state.New(cfg.StateDocPath)
	fetcher := assets.New(nil)
	pipeline := deploy.New(rt, store, fetcher, cfg.VolumeRoot)

	authMiddleware := auth.NewMiddleware(cfg.Key)

	ps, closePubSub := newPubSub(log, cfg.RedisAddr)
	defer closePubSub()

	sessionServer := session.NewServer(rt, store, authMiddleware, ps, cfg.VolumeRoot)

	server := api.NewServer(pipeline, store, rt, authMiddleware, sessionServerHandler(sessionServer))

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // session connections are long-lived; never time out the write side
		IdleTimeout:  60 * time.Second,
	}

	log.Info("wings starting",
		zap.String("addr", cfg.Addr()),
		zap.String("volume_root", cfg.VolumeRoot),
		zap.String("version", cfg.Version))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown error", zap.Error(err))
	}

	log.Info("wings stopped")
	return nil
}

// newPubSub selects the Redis-backed pubsub when redisAddr is set, falling
// back to the in-memory backend for single-host deployments (spec's
// WINGS_REDIS_ADDR convention).
func newPubSub(log *zap.Logger, redisAddr string) (pubsub.PubSub, func()) {
	if redisAddr == "" {
		ps := pubsub.NewMemoryPubSub()
		return ps, func() { ps.Close() }
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	ps := pubsub.NewRedisPubSub(client)
	log.Info("using redis pubsub backend", zap.String("addr", redisAddr))
	return ps, func() { ps.Close() }
}

// sessionServerHandler adapts session.Server's ServeHTTP method to the
// http.Handler api.NewServer expects, keeping cmd/wings as the only place
// that knows both concrete types.
func sessionServerHandler(s *session.Server) http.Handler {
	return http.HandlerFunc(s.ServeHTTP)
}
