package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	devicehandler "rangerwatch/internal/device/handler"
	devicemetrics "rangerwatch/internal/device/metrics"
	deviceservice "rangerwatch/internal/device/service"
	devicestore "rangerwatch/internal/device/store"
	devicememory "rangerwatch/internal/device/store/memory"
	deviceredis "rangerwatch/internal/device/store/redis"
	httpapi "rangerwatch/internal/http"
	"rangerwatch/internal/platform/audit"
	auditkafka "rangerwatch/internal/platform/audit/store/kafka"
	auditmemory "rangerwatch/internal/platform/audit/store/memory"
	auditworker "rangerwatch/internal/platform/audit/worker"
	"rangerwatch/internal/platform/config"
	"rangerwatch/internal/platform/httpserver"
	"rangerwatch/internal/platform/logger"
	platformpg "rangerwatch/internal/platform/postgres"
	platformredis "rangerwatch/internal/platform/redis"
	sightinghandler "rangerwatch/internal/sighting/handler"
	sightingmetrics "rangerwatch/internal/sighting/metrics"
	sightingservice "rangerwatch/internal/sighting/service"
	sightingstore "rangerwatch/internal/sighting/store"
)

// main wires dependencies and supervises the server plus the audit worker.
// Unconfigured backends fall back to in-memory implementations so a bare
// `go run ./cmd/server` serves a working instance.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sighting storage.
	var st sightingstore.Store
	db, err := platformpg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "error", err)
		return err
	}
	if db != nil {
		defer db.Close()
		pg := sightingstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			return err
		}
		st = pg
		log.Info("using postgres sighting store")
	} else {
		st = sightingstore.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory sighting store")
	}

	// Device counter.
	var devices devicestore.Store
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		devices = deviceredis.New(redisClient)
		log.Info("using redis device counter")
	} else {
		devices = devicememory.New()
		log.Warn("REDIS_URL not set, using in-memory device counter")
	}

	// Audit pipeline.
	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		ks, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			return err
		}
		defer ks.Close()
		auditStore = ks
		log.Info("using kafka audit store", "topic", cfg.KafkaTopic)
	} else {
		auditStore = auditmemory.New()
		log.Warn("KAFKA_BROKERS not set, using in-memory audit store")
	}
	publisher := audit.NewPublisher(1024, log)
	worker := auditworker.New(auditStore, publisher.Events(), log)

	// Services.
	sightingSvc, err := sightingservice.New(st, cfg.MediaURLPrefix,
		sightingservice.WithLogger(log),
		sightingservice.WithMetrics(sightingmetrics.New()),
		sightingservice.WithAuditEmitter(publisher),
	)
	if err != nil {
		log.Error("build sighting service", "error", err)
		return err
	}

	deviceSvc, err := deviceservice.New(devices,
		deviceservice.WithLogger(log),
		deviceservice.WithMetrics(devicemetrics.New()),
		deviceservice.WithAuditEmitter(publisher),
	)
	if err != nil {
		log.Error("build device service", "error", err)
		return err
	}

	if !cfg.AdminEnabled() {
		log.Warn("admin credentials not configured, admin endpoints disabled")
	}

	router := httpapi.NewRouter(httpapi.Options{
		Logger:        log,
		Sighting:      sightinghandler.New(sightingSvc, log),
		Device:        devicehandler.New(deviceSvc, log),
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		Health: func(r *http.Request) error {
			if db != nil {
				return db.PingContext(r.Context())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting rangerwatch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
