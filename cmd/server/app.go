package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	announcementService "idbcrm/internal/announcements/service"
	announcementStore "idbcrm/internal/announcements/store"
	applicationService "idbcrm/internal/applications/service"
	applicationStore "idbcrm/internal/applications/store"
	authService "idbcrm/internal/auth/service"
	branchService "idbcrm/internal/branches/service"
	branchStore "idbcrm/internal/branches/store"
	catalogService "idbcrm/internal/catalog/service"
	catalogStore "idbcrm/internal/catalog/store"
	"idbcrm/internal/dashboard/cache"
	dashboardMetrics "idbcrm/internal/dashboard/metrics"
	dashboardService "idbcrm/internal/dashboard/service"
	followupService "idbcrm/internal/followups/service"
	followupStore "idbcrm/internal/followups/store"
	jwttoken "idbcrm/internal/jwt_token"
	leadMetrics "idbcrm/internal/leads/metrics"
	leadService "idbcrm/internal/leads/service"
	leadStore "idbcrm/internal/leads/store"
	noteService "idbcrm/internal/notes/service"
	noteStore "idbcrm/internal/notes/store"
	partnerService "idbcrm/internal/partners/service"
	partnerStore "idbcrm/internal/partners/store"
	paymentService "idbcrm/internal/payments/service"
	paymentStore "idbcrm/internal/payments/store"
	"idbcrm/internal/platform/blob"
	"idbcrm/internal/platform/config"
	"idbcrm/internal/platform/kafka"
	"idbcrm/internal/platform/metrics"
	"idbcrm/internal/platform/outbox"
	"idbcrm/internal/platform/postgres"
	"idbcrm/internal/platform/redis"
	ratelimitModels "idbcrm/internal/ratelimit/models"
	ratelimitService "idbcrm/internal/ratelimit/service"
	ratelimitStore "idbcrm/internal/ratelimit/store"
	"idbcrm/internal/scope"
	timelineMetrics "idbcrm/internal/timeline/metrics"
	timelineService "idbcrm/internal/timeline/service"
	timelineStore "idbcrm/internal/timeline/store"
	"idbcrm/pkg/platform/tx"
)

// stores groups the persistence layer. Postgres and in-memory variants
// satisfy the same service interfaces.
type stores struct {
	leads         leadService.Store
	leadCounts    dashboardService.LeadCounter
	partners      partnerService.Store
	members       branchService.Members
	branches      branchService.Store
	timeline      timelineService.Store
	notes         noteService.Store
	followups     followupService.Store
	applications  applicationService.Store
	payments      paymentService.Store
	announcements announcementService.Store
	catalog       catalogService.Store
}

// services is everything the router mounts.
type services struct {
	auth          *authService.Service
	partners      *partnerService.Service
	branches      *branchService.Service
	leads         *leadService.Service
	timeline      *timelineService.Service
	notes         *noteService.Service
	followups     *followupService.Service
	applications  *applicationService.Service
	payments      *paymentService.Service
	announcements *announcementService.Service
	catalog       *catalogService.Service
	dashboard     *dashboardService.Service
	tokens        *jwttoken.JWTService
	loginLimits   *ratelimitService.Service
}

// app owns the process-wide resources and closes them on shutdown.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	outbox   *outbox.Store
	runner   tx.Runner
	metrics  *metrics.Metrics
	services services
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, runner: tx.NewLocal(), metrics: metrics.New()}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		if cfg.Database.MigrateOnStart {
			applied, err := postgres.Migrate(ctx, db, logger)
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", "count", len(applied))
		}
		a.runner = postgres.NewTxRunner(db, cfg.Database.TxTimeout)
		a.outbox = outbox.NewStore(db)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = rc

	if len(cfg.Kafka.Brokers) > 0 && a.outbox != nil {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TimelineTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFac); err != nil {
			logger.Warn("ensure timeline topic failed", "topic", cfg.Kafka.TimelineTopic, "error", err)
		}
		a.producer = producer
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	a.services = a.buildServices(a.buildStores(), loc)
	return a, nil
}

func (a *app) buildStores() stores {
	if a.db == nil {
		leads := leadStore.NewInMemory()
		partners := partnerStore.NewInMemory()
		return stores{
			leads:         leads,
			leadCounts:    leads,
			partners:      partners,
			members:       partners,
			branches:      branchStore.NewInMemory(),
			timeline:      timelineStore.NewInMemory(),
			notes:         noteStore.NewInMemory(),
			followups:     followupStore.NewInMemory(leads),
			applications:  applicationStore.NewInMemory(),
			payments:      paymentStore.NewInMemory(leads),
			announcements: announcementStore.NewInMemory(),
			catalog:       catalogStore.NewInMemory(),
		}
	}
	leads := leadStore.NewPostgres(a.db)
	partners := partnerStore.NewPostgres(a.db)
	return stores{
		leads:         leads,
		leadCounts:    leads,
		partners:      partners,
		members:       partners,
		branches:      branchStore.NewPostgres(a.db),
		timeline:      timelineStore.NewPostgres(a.db, a.outbox),
		notes:         noteStore.NewPostgres(a.db),
		followups:     followupStore.NewPostgres(a.db),
		applications:  applicationStore.NewPostgres(a.db),
		payments:      paymentStore.NewPostgres(a.db),
		announcements: announcementStore.NewPostgres(a.db),
		catalog:       catalogStore.NewPostgres(a.db),
	}
}

func (a *app) buildServices(st stores, loc *time.Location) services {
	logger := a.logger
	runner := a.runner

	guard := leadService.NewGuard(st.leads,
		leadService.WithGuardLogger(logger),
		leadService.WithScopeMetrics(scope.NewMetrics()),
	)
	timeline := timelineService.New(st.timeline, guard,
		timelineService.WithLogger(logger),
		timelineService.WithMetrics(timelineMetrics.New()),
	)

	branches := branchService.New(st.branches, st.members,
		branchService.WithLogger(logger),
		branchService.WithTx(runner),
	)
	partners := partnerService.New(st.partners, branches,
		partnerService.WithLogger(logger),
		partnerService.WithTx(runner),
	)

	uploader := a.uploader()

	var statsCache dashboardService.Cache = cache.NewMemory()
	if a.redis != nil {
		statsCache = cache.NewRedis(a.redis.Client)
	}

	tokens := jwttoken.NewJWTService(a.cfg.Auth.JWTSigningKey, a.cfg.Auth.Issuer)
	loginLimits := a.loginLimits()

	return services{
		tokens:      tokens,
		loginLimits: loginLimits,
		auth: authService.New(partners, tokens, a.cfg.Auth.TokenTTL,
			authService.WithLogger(logger),
			authService.WithMetrics(a.metrics),
			authService.WithLoginGuard(loginLimits),
		),
		partners: partners,
		branches: branches,
		leads: leadService.New(st.leads, guard, timeline,
			leadService.WithLogger(logger),
			leadService.WithTx(runner),
			leadService.WithMetrics(leadMetrics.New()),
			leadService.WithPartnerChecker(partners),
			leadService.WithBranchChecker(branches),
		),
		timeline: timeline,
		notes: noteService.New(st.notes, guard, timeline,
			noteService.WithLogger(logger),
			noteService.WithTx(runner),
		),
		followups: followupService.New(st.followups, guard, timeline,
			followupService.WithLogger(logger),
			followupService.WithTx(runner),
		),
		applications: applicationService.New(st.applications, guard, timeline,
			applicationService.WithLogger(logger),
			applicationService.WithTx(runner),
			applicationService.WithUploader(uploader, a.cfg.Blob.DocumentBucket),
		),
		payments: paymentService.New(st.payments, guard, timeline,
			paymentService.WithLogger(logger),
			paymentService.WithTx(runner),
			paymentService.WithPartnerChecker(partners),
			paymentService.WithUploader(uploader, a.cfg.Blob.ReceiptBucket),
		),
		announcements: announcementService.New(st.announcements,
			announcementService.WithLogger(logger),
			announcementService.WithTx(runner),
			announcementService.WithBranchChecker(branches),
		),
		catalog: catalogService.New(st.catalog,
			catalogService.WithLogger(logger),
			catalogService.WithTx(runner),
		),
		dashboard: dashboardService.New(st.leadCounts,
			dashboardService.WithLogger(logger),
			dashboardService.WithCache(statsCache, a.cfg.Redis.StatsTTL),
			dashboardService.WithLocation(loc),
			dashboardService.WithMetrics(dashboardMetrics.New()),
		),
	}
}

// loginLimits shares counters through Redis when it is configured.
func (a *app) loginLimits() *ratelimitService.Service {
	rl := a.cfg.RateLimit
	opts := []ratelimitService.Option{
		ratelimitService.WithLogger(a.logger),
		ratelimitService.WithPolicy(ratelimitModels.Policy{
			IPLimit:          rl.LoginPerIP,
			IPWindow:         rl.LoginWindow,
			LockoutThreshold: rl.LockoutThreshold,
			LockoutWindow:    rl.LockoutWindow,
			LockoutDuration:  rl.LockoutDuration,
		}),
	}
	if a.redis != nil {
		rs := ratelimitStore.NewRedis(a.redis.Client)
		return ratelimitService.New(rs, rs, opts...)
	}
	ms := ratelimitStore.NewInMemory()
	return ratelimitService.New(ms, ms, opts...)
}

func (a *app) uploader() blob.Uploader {
	var u blob.Uploader
	if a.cfg.Blob.SupabaseURL != "" {
		u = blob.NewSupabase(a.cfg.Blob.SupabaseURL, a.cfg.Blob.SupabaseKey, &http.Client{Timeout: 30 * time.Second})
	} else {
		u = blob.NewLocal(a.cfg.Blob.LocalDir, a.cfg.Blob.PublicBaseURL)
	}
	return blob.WithRetry(u, 3, 30*time.Second)
}

// outboxWorker returns nil when there is nothing to publish to.
func (a *app) outboxWorker() *outbox.Worker {
	if a.producer == nil || a.outbox == nil {
		return nil
	}
	return outbox.NewWorker(a.outbox, a.runner, a.producer,
		outbox.WithInterval(a.cfg.Kafka.PollInterval),
		outbox.WithBatchSize(a.cfg.Kafka.BatchSize),
		outbox.WithLogger(a.logger),
		outbox.WithMetrics(outbox.NewMetrics()),
		outbox.WithCircuitBreaker(outbox.NewCircuitBreaker(5, 30*time.Second)),
	)
}

// ready reports the health of every configured backing service.
func (a *app) ready(ctx context.Context) map[string]string {
	checks := map[string]string{}
	record := func(name string, err error) {
		if err != nil {
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if a.db != nil {
		record("postgres", a.db.PingContext(ctx))
	}
	if a.redis != nil {
		record("redis", a.redis.Health(ctx))
	}
	if a.producer != nil {
		record("kafka", a.producer.Ping(ctx))
	}
	return checks
}

func (a *app) Close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
