package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idbcrm/internal/leads/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/requestcontext"
)

// Reader is the part of the lead store the guard needs.
type Reader interface {
	Get(ctx context.Context, sc scope.Scope, id domain.LeadID) (*models.Lead, error)
	Exists(ctx context.Context, id domain.LeadID) (bool, error)
}

// Guard is the scoped existence check every lead child service runs before
// touching notes, follow-ups, payments, applications or the timeline.
type Guard struct {
	store   Reader
	logger  *slog.Logger
	metrics *scope.Metrics
	tracer  trace.Tracer
}

type GuardOption func(*Guard)

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

func WithScopeMetrics(m *scope.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard constructs a guard over the lead store.
func NewGuard(store Reader, opts ...GuardOption) *Guard {
	g := &Guard{store: store, logger: slog.Default(), tracer: otel.Tracer("idbcrm/leads")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check returns NotFound unless the lead exists within sc.
func (g *Guard) Check(ctx context.Context, actor scope.Actor, sc scope.Scope, id domain.LeadID) error {
	_, err := g.Load(ctx, actor, sc, id)
	return err
}

// Load returns the lead when it is visible within sc. A lead that exists but
// falls outside sc is reported as NotFound and logged as scope_denied against
// actor.
func (g *Guard) Load(ctx context.Context, actor scope.Actor, sc scope.Scope, id domain.LeadID) (*models.Lead, error) {
	ctx, span := g.tracer.Start(ctx, "leads.Guard", trace.WithAttributes(
		attribute.String("lead_id", id.String()),
		attribute.String("scope", sc.Key()),
	))
	defer span.End()

	lead, err := g.store.Get(ctx, sc, id)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
		return nil, dErrors.Classify(err, dErrors.CodeInternal, "failed to load lead")
	}
	if sc.Kind() != scope.KindUnrestricted {
		g.logDenied(ctx, actor, sc, id)
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
}

func (g *Guard) logDenied(ctx context.Context, actor scope.Actor, sc scope.Scope, id domain.LeadID) {
	exists, err := g.store.Exists(ctx, id)
	if err != nil {
		g.logger.ErrorContext(ctx, "lead existence check failed", "lead_id", id, "error", err)
		return
	}
	if !exists {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("scope_denied", true))
	g.metrics.IncrementDenied("lead")
	g.logger.WarnContext(ctx, "scope_denied",
		"entity", "lead",
		"actor_id", actor.ID,
		"lead_id", id,
		"scope", sc.Key(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
