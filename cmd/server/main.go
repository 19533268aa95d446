// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"veristage/internal/jwt_token"
	"veristage/internal/kyc/clients"
	"veristage/internal/kyc/handler"
	"veristage/internal/kyc/service"
	"veristage/internal/kyc/store"
	"veristage/internal/kyc/upload"
	"veristage/internal/kyc/workflow"
	"veristage/internal/platform/config"
	"veristage/internal/platform/httpserver"
	"veristage/internal/platform/logger"
	"veristage/internal/platform/metrics"
	platformredis "veristage/internal/platform/redis"
	httptransport "veristage/internal/transport/http"
	"veristage/pkg/platform/audit"
	auditkafka "veristage/pkg/platform/audit/kafka"
	"veristage/pkg/platform/audit/publishers/compliance"
	"veristage/pkg/platform/audit/publishers/ops"
	auditmemory "veristage/pkg/platform/audit/store/memory"
	auditpostgres "veristage/pkg/platform/audit/store/postgres"
	auditworker "veristage/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Audit store: Kafka sink when brokers are configured, Postgres outbox
	// when a DSN is set, in-memory otherwise (development only).
	var auditStore audit.Store
	switch {
	case len(cfg.Audit.KafkaBrokers) > 0:
		sink, err := auditkafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Error("kafka audit sink unavailable", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditStore = sink
		log.Info("audit sink: kafka", "brokers", cfg.Audit.KafkaBrokers)
	case cfg.Audit.PostgresDSN != "":
		pg, err := auditpostgres.Open(cfg.Audit.PostgresDSN)
		if err != nil {
			log.Error("postgres audit store unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		auditStore = pg
		log.Info("audit sink: postgres")
	default:
		auditStore = auditmemory.New()
		log.Warn("audit sink: in-memory, events are lost on restart")
	}

	compliancePub := compliance.New(auditStore, compliance.WithLogger(log))
	opsPub := ops.New(ops.WithLogger(log))
	opsWorker := auditworker.New(auditStore, opsPub.Outbox(), log)

	// Upstream clients. Mocks stand in when no URL is configured so the
	// service runs end-to-end in development.
	var documents upload.DocumentClient
	if cfg.Upstream.DocumentServiceURL != "" {
		documents = clients.NewDocumentServiceClient(cfg.Upstream.DocumentServiceURL, cfg.Upstream.Timeout)
	} else {
		log.Warn("document service URL not set, using in-process mock")
		documents = &clients.MockDocumentClient{}
	}

	var records workflow.RecordClient
	var fetcher service.RecordFetcher
	if cfg.Upstream.RecordServiceURL != "" {
		rc := clients.NewRecordServiceClient(cfg.Upstream.RecordServiceURL, cfg.Upstream.Timeout)
		records, fetcher = rc, rc
	} else {
		log.Warn("record service URL not set, using in-process mock")
		mc := &clients.MockRecordClient{}
		records, fetcher = mc, mc
	}

	svcOpts := []service.Option{
		service.WithRecordFetcher(fetcher),
		service.WithCompliancePublisher(compliancePub),
		service.WithOpsPublisher(opsPub),
		service.WithMetrics(m),
		service.WithLogger(log),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		snapshots := store.NewRedisSnapshotStore(redisClient.Client, cfg.Redis.SnapshotTTL)
		svcOpts = append(svcOpts, service.WithSnapshots(snapshots))
		log.Info("draft snapshot cache enabled", "ttl", cfg.Redis.SnapshotTTL)
	}

	if cfg.Archive.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Archive.PostgresDSN)
		if err != nil {
			log.Error("archive pool unavailable", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		svcOpts = append(svcOpts, service.WithArchive(store.NewPostgresArchive(pool)))
		log.Info("submission archive enabled")
	}

	workflows, err := service.New(documents, records, svcOpts...)
	if err != nil {
		log.Error("service wiring failed", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "veristage", "veristage")

	kycHandler := handler.New(workflows, log, m, jwtService)
	adminHandler := handler.NewAdmin(workflows, log, m, jwtService, cfg.Server.AdminAPIKeyHash)
	router := httptransport.NewRouter(kycHandler, adminHandler)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return opsWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting veristage", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
