// Command server runs the crisis signal isolation pipeline: HTTP ingest,
// operator APIs, and the blackout and retention sweep workers, in one
// process.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	blkhandler "beacon/internal/blackout/handler"
	blkservice "beacon/internal/blackout/service"
	blkstore "beacon/internal/blackout/store"
	blkworker "beacon/internal/blackout/worker"
	"beacon/internal/escalation"
	eschandler "beacon/internal/escalation/handler"
	escservice "beacon/internal/escalation/service"
	escstore "beacon/internal/escalation/store"
	gaphandler "beacon/internal/gapfill/handler"
	gapservice "beacon/internal/gapfill/service"
	gapstore "beacon/internal/gapfill/store"
	ingesthandler "beacon/internal/ingest/handler"
	ingestservice "beacon/internal/ingest/service"
	ingeststore "beacon/internal/ingest/store"
	"beacon/internal/isolation/keyring"
	isoservice "beacon/internal/isolation/service"
	isostore "beacon/internal/isolation/store"
	"beacon/internal/jwtoken"
	legalhandler "beacon/internal/legal/handler"
	legalservice "beacon/internal/legal/service"
	legalstore "beacon/internal/legal/store"
	"beacon/internal/pipeline"
	"beacon/internal/platform/config"
	"beacon/internal/platform/httpserver"
	"beacon/internal/platform/kafka/producer"
	"beacon/internal/platform/metrics"
	platformredis "beacon/internal/platform/redis"
	pgservice "beacon/internal/privacygap/service"
	pgstore "beacon/internal/privacygap/store"
	rethandler "beacon/internal/retention/handler"
	retservice "beacon/internal/retention/service"
	retstore "beacon/internal/retention/store"
	retworker "beacon/internal/retention/worker"
	supservice "beacon/internal/suppression/service"
	supstore "beacon/internal/suppression/store"
	httptransport "beacon/internal/transport/http"
	vaultservice "beacon/internal/vault/service"
	vaultstore "beacon/internal/vault/store"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
	auditpg "beacon/pkg/platform/audit/store/postgres"
	auditworker "beacon/pkg/platform/audit/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.FromEnv()
	m := metrics.New()

	kr, err := keyring.New(loadMasterSecret(logger, cfg.MasterKey))
	exitOn(logger, err)

	// Family-side state and the isolated vault never share a handle.
	var familyDB, vaultDB *sql.DB
	if cfg.DatabaseURL != "" {
		familyDB, err = openDatabase(cfg.DatabaseURL)
		exitOn(logger, err)
		defer familyDB.Close()
	}
	if cfg.VaultDatabaseURL != "" {
		vaultDB, err = openDatabase(cfg.VaultDatabaseURL)
		exitOn(logger, err)
		defer vaultDB.Close()
	}

	var (
		signalStore    ingestservice.SignalStore      = ingeststore.NewInMemorySignalStore()
		offlineQueue   ingestservice.OfflineQueue     = ingeststore.NewInMemoryOfflineQueue()
		keyStore       isoservice.KeyStore            = isostore.NewInMemoryKeyStore()
		retentionStore retservice.RetentionStore      = retstore.NewInMemoryRetentionStore()
		blackoutStore  blkservice.BlackoutStore       = blkstore.NewInMemoryBlackoutStore()
		supStore       supservice.SuppressionStore    = supstore.NewInMemorySuppressionStore()
		gapStore       pgservice.PrivacyGapStore      = pgstore.NewInMemoryPrivacyGapStore()
		patternStore   gapservice.PatternStore        = gapstore.NewInMemoryPatternStore()
		activityStore  gapservice.ActivityStore       = gapstore.NewInMemoryActivityStore()
		escStore       escservice.EscalationStore     = escstore.NewInMemoryEscalationStore()
		legalStore     legalservice.LegalRequestStore = legalstore.NewInMemoryLegalRequestStore()
		vaultStore     vaultservice.VaultStore        = vaultstore.NewInMemoryVaultStore()
	)
	if familyDB != nil {
		signalStore = ingeststore.NewPostgresSignalStore(familyDB)
		offlineQueue = ingeststore.NewPostgresOfflineQueue(familyDB)
		retentionStore = retstore.NewPostgresRetentionStore(familyDB)
		blackoutStore = blkstore.NewPostgresBlackoutStore(familyDB)
		gapStore = pgstore.NewPostgresPrivacyGapStore(familyDB)
		patternStore = gapstore.NewPostgresPatternStore(familyDB)
		activityStore = gapstore.NewPostgresActivityStore(familyDB)
		escStore = escstore.NewPostgresEscalationStore(familyDB)
		legalStore = legalstore.NewPostgresLegalRequestStore(familyDB)
	}
	if vaultDB != nil {
		vaultStore = vaultstore.NewPostgresVaultStore(vaultDB)
		keyStore = isostore.NewPostgresKeyStore(vaultDB)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	exitOn(logger, err)
	if redisClient != nil {
		defer redisClient.Close()
		supStore = supstore.NewRedisSuppressionStore(redisClient.Client)
		logger.Info("suppression store backed by redis")
	}

	var (
		publisher    *auditpub.Publisher
		outboxWorker *auditworker.Worker
	)
	if familyDB != nil {
		pgAudit := auditpg.New(familyDB)
		publisher = auditpub.New(pgAudit, auditpub.WithLogger(logger), auditpub.WithMetrics(m))
		if cfg.Kafka.Brokers != "" {
			prod, err := producer.New(producer.Config{Brokers: cfg.Kafka.Brokers}, logger)
			exitOn(logger, err)
			defer prod.Close()
			outboxWorker = auditworker.New(pgAudit, prod,
				auditworker.WithTopic(cfg.Kafka.AuditTopic),
				auditworker.WithLogger(logger),
			)
		}
	} else {
		publisher = auditpub.New(auditmem.New(), auditpub.WithLogger(logger), auditpub.WithMetrics(m))
	}

	signals, err := ingestservice.New(signalStore, offlineQueue, ingestservice.WithLogger(logger))
	exitOn(logger, err)
	keys, err := isoservice.New(keyStore, kr,
		isoservice.WithLogger(logger),
		isoservice.WithAuditPublisher(publisher),
	)
	exitOn(logger, err)
	retention, err := retservice.New(retentionStore,
		retservice.WithLogger(logger),
		retservice.WithAuditPublisher(publisher),
	)
	exitOn(logger, err)
	vaultSvc, err := vaultservice.New(vaultStore, retention, vaultservice.WithLogger(logger))
	exitOn(logger, err)
	suppressions, err := supservice.New(supStore, supservice.WithLogger(logger))
	exitOn(logger, err)
	blackouts, err := blkservice.New(blackoutStore,
		blkservice.WithLogger(logger),
		blkservice.WithAuditPublisher(publisher),
		blkservice.WithDuration(cfg.BlackoutDuration),
		blkservice.WithSuppressionExtender(suppressions),
	)
	exitOn(logger, err)
	privacyGaps, err := pgservice.New(gapStore,
		pgservice.WithLogger(logger),
		pgservice.WithAuditPublisher(publisher),
	)
	exitOn(logger, err)
	gapFiller, err := gapservice.New(patternStore, activityStore,
		gapservice.WithLogger(logger),
		gapservice.WithPrivacyGapChecker(privacyGaps),
	)
	exitOn(logger, err)
	escalations, err := escservice.New(escStore, loadPartnerDirectory(logger, cfg.PartnerDirectory),
		escservice.WithLogger(logger),
		escservice.WithAuditPublisher(publisher),
		escservice.WithBlackoutExtender(pipeline.BlackoutExtenderAdapter{Blackouts: blackouts}),
	)
	exitOn(logger, err)
	legalRequests, err := legalservice.New(legalStore,
		legalservice.WithLogger(logger),
		legalservice.WithAuditPublisher(publisher),
		legalservice.WithDisclosure(vaultSvc, keys),
	)
	exitOn(logger, err)

	flow, err := pipeline.New(signals, keys, vaultSvc, retention, blackouts, suppressions, privacyGaps,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	)
	exitOn(logger, err)

	completion := blkworker.New(blackouts, privacyGaps, gapFiller, suppressions,
		blkworker.WithSweepInterval(cfg.BlackoutSweepInterval),
		blkworker.WithLogger(logger),
		blkworker.WithMetrics(m),
	)
	sweeper := retworker.New(retention, vaultSvc, keys, signals,
		retworker.WithSweepInterval(cfg.RetentionSweepInterval),
		retworker.WithLogger(logger),
		retworker.WithAuditPublisher(publisher),
		retworker.WithMetrics(m),
	)

	jwtService := jwtoken.New(cfg.JWTSigningKey, "beacon", "beacon-operators")
	validator := jwtoken.NewValidator(jwtService)

	router := httptransport.NewRouter(logger,
		ingesthandler.New(flow, signals, logger, validator),
		rethandler.New(retention, logger, validator),
		eschandler.New(escalations, logger, validator),
		legalhandler.New(legalRequests, logger, validator),
		blkhandler.New(blackouts, logger, validator),
		gaphandler.New(gapFiller, logger),
	)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completion.Start()
	defer completion.Stop()
	sweeper.Start()
	defer sweeper.Stop()
	if outboxWorker != nil {
		outboxWorker.Start()
		defer outboxWorker.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	exitOn(logger, g.Wait())
	logger.Info("server stopped")
}

func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// loadMasterSecret decodes the hex-encoded keyring master secret. Without one
// the process generates an ephemeral secret; vaulted payloads then become
// unreadable after a restart, which is acceptable in development only.
func loadMasterSecret(logger *slog.Logger, hexKey string) []byte {
	if hexKey != "" {
		secret, err := hex.DecodeString(hexKey)
		exitOn(logger, err)
		if len(secret) != 32 {
			exitOn(logger, errors.New("master key must be 32 bytes"))
		}
		return secret
	}

	logger.Warn("no master key configured, generating ephemeral secret; vaulted payloads will not survive a restart")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		exitOn(logger, err)
	}
	return secret
}

// loadPartnerDirectory parses the accredited partner list. An empty directory
// is allowed; escalations then fail with not-found until partners are loaded.
func loadPartnerDirectory(logger *slog.Logger, raw string) *escstore.StaticPartnerDirectory {
	var partners []escalation.CrisisPartner
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &partners); err != nil {
			exitOn(logger, err)
		}
	}
	if len(partners) == 0 {
		logger.Warn("partner directory is empty, escalations will be refused")
	}
	return escstore.NewStaticPartnerDirectory(partners)
}

func exitOn(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
