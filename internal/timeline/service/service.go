// Package service records and serves lead timeline events.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idbcrm/internal/scope"
	"idbcrm/internal/timeline/metrics"
	"idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

// Store is the append-only event log.
type Store interface {
	Append(ctx context.Context, e *models.Event) error
	ListForLead(ctx context.Context, leadID domain.LeadID, after *models.Cursor, limit int) ([]*models.Event, error)
}

// LeadGuard checks that a lead exists within a scope, returning NotFound otherwise.
type LeadGuard interface {
	Check(ctx context.Context, actor scope.Actor, sc scope.Scope, leadID domain.LeadID) error
}

// Service is the timeline recorder and reader.
type Service struct {
	store   Store
	guard   LeadGuard
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the timeline service.
func New(store Store, guard LeadGuard, opts ...Option) *Service {
	s := &Service{
		store:  store,
		guard:  guard,
		logger: slog.Default(),
		tracer: otel.Tracer("idbcrm/timeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one event. Call it with the context of the transaction that
// performs the triggering write: a failure here must abort that write.
func (s *Service) Record(ctx context.Context, in models.RecordInput) (*models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "timeline.Record", trace.WithAttributes(
		attribute.String("lead_id", in.LeadID.String()),
		attribute.String("event_type", string(in.Type)),
	))
	defer span.End()

	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e := &models.Event{
		ID:        domain.New[domain.EventID](),
		LeadID:    in.LeadID,
		Type:      in.Type,
		NewState:  in.NewState,
		ActorID:   in.ActorID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.logger.ErrorContext(ctx, "failed to record timeline event",
			"lead_id", in.LeadID,
			"event_type", in.Type,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record timeline event")
	}
	s.metrics.IncrementRecorded(string(in.Type))
	return e, nil
}

// ListForLead pages a lead's events newest first. A lead outside the actor's
// scope is reported as not found.
func (s *Service) ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID, req models.PageRequest) (*models.Page, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}

	var after *models.Cursor
	if req.Cursor != "" {
		c, err := models.DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		after = &c
	}

	limit := req.EffectiveLimit()
	events, err := s.store.ListForLead(ctx, leadID, after, limit+1)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list timeline")
	}

	page := &models.Page{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.NextCursor = models.CursorAfter(page.Events[limit-1]).Encode()
	}
	if page.Events == nil {
		page.Events = []*models.Event{}
	}
	return page, nil
}
