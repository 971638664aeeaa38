// Package service computes dashboard statistics over the leads visible to the
// caller. Results are cached per scope, so every partner sharing a scope sees
// the same snapshot until it expires.
package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"idbcrm/internal/dashboard/metrics"
	"idbcrm/internal/dashboard/models"
	leadModels "idbcrm/internal/leads/models"
	"idbcrm/internal/scope"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

const DefaultTTL = 60 * time.Second

// LeadCounter runs scoped aggregate queries over leads.
type LeadCounter interface {
	Count(ctx context.Context, sc scope.Scope, f leadModels.CountFilter) (int, error)
	CountByStatus(ctx context.Context, sc scope.Scope, f leadModels.CountFilter) ([]leadModels.GroupCount, error)
	CountBySource(ctx context.Context, sc scope.Scope, f leadModels.CountFilter) ([]leadModels.GroupCount, error)
	CountByDay(ctx context.Context, sc scope.Scope, f leadModels.CountFilter, since time.Time, days int, loc *time.Location) ([]int, error)
}

// Cache holds computed stats. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Stats, error)
	Set(ctx context.Context, key string, st *models.Stats, ttl time.Duration) error
}

type Service struct {
	leads   LeadCounter
	cache   Cache
	ttl     time.Duration
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLocation sets the time zone that defines "today" and day buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(leads LeadCounter, opts ...Option) *Service {
	s := &Service{leads: leads, ttl: DefaultTTL, loc: time.UTC, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns lead statistics for the actor's scope. Cache failures are
// logged and fall through to a fresh computation.
func (s *Service) Stats(ctx context.Context, actor scope.Actor) (*models.Stats, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	key := sc.Key()
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.metrics.IncrementLookup("error")
			s.logger.WarnContext(ctx, "dashboard cache read failed",
				"scope", key,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		case cached != nil:
			s.metrics.IncrementLookup("hit")
			return cached, nil
		default:
			s.metrics.IncrementLookup("miss")
		}
	}

	start := time.Now()
	st, err := s.compute(ctx, sc)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCompute(time.Since(start).Seconds())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, st, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "dashboard cache write failed",
				"scope", key,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	return st, nil
}

func (s *Service) compute(ctx context.Context, sc scope.Scope) (*models.Stats, error) {
	now := requestcontext.Now(ctx).In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	seriesStart := today.AddDate(0, 0, -(models.SeriesDays - 1))
	base := leadModels.CountFilter{Type: leadModels.TypeLead}

	st := &models.Stats{CachedAt: now}
	var (
		byStatus, bySource []leadModels.GroupCount
		series             []int
	)
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, f leadModels.CountFilter) {
		g.Go(func() error {
			n, err := s.leads.Count(gctx, sc, f)
			*dst = n
			return err
		})
	}
	count(&st.Metrics.Total, base)
	count(&st.Metrics.TodaysLeads, withSince(base, today))
	count(&st.Metrics.Converted, withStatus(base, leadModels.StatusConverted))
	count(&st.Metrics.Rejected, withStatus(base, leadModels.StatusRejected))
	g.Go(func() (err error) {
		byStatus, err = s.leads.CountByStatus(gctx, sc, base)
		return err
	})
	g.Go(func() (err error) {
		bySource, err = s.leads.CountBySource(gctx, sc, base)
		return err
	})
	g.Go(func() (err error) {
		series, err = s.leads.CountByDay(gctx, sc, base, seriesStart, models.SeriesDays, s.loc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Classify(err, dErrors.CodeInternal, "failed to compute dashboard stats")
	}

	st.ByStatus = buckets(byStatus, "")
	st.BySource = buckets(bySource, models.DirectSource)
	st.Last7Days = make([]models.Day, models.SeriesDays)
	for i := range st.Last7Days {
		st.Last7Days[i] = models.Day{Label: models.DayLabel(seriesStart.AddDate(0, 0, i))}
		if i < len(series) {
			st.Last7Days[i].Count = series[i]
		}
	}
	return st, nil
}

func withSince(f leadModels.CountFilter, t time.Time) leadModels.CountFilter {
	f.Since = &t
	return f
}

func withStatus(f leadModels.CountFilter, status leadModels.Status) leadModels.CountFilter {
	f.Status = status
	return f
}

// buckets relabels empty keys and merges groups that collapse onto the same
// label, largest first.
func buckets(groups []leadModels.GroupCount, emptyLabel string) []models.Bucket {
	out := []models.Bucket{}
	for _, gc := range groups {
		name := gc.Key
		if name == "" {
			name = emptyLabel
		}
		if i := slices.IndexFunc(out, func(b models.Bucket) bool { return b.Name == name }); i >= 0 {
			out[i].Count += gc.Count
			continue
		}
		out = append(out, models.Bucket{Name: name, Count: gc.Count})
	}
	slices.SortStableFunc(out, func(a, b models.Bucket) int { return b.Count - a.Count })
	return out
}
