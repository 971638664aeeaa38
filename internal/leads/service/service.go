// Package service implements lead intake, listing and pipeline updates.
// Every read and write is intersected with the caller's scope; a lead outside
// it is indistinguishable from a missing one.
package service

import (
	"context"
	"errors"
	"log/slog"

	"idbcrm/internal/leads/metrics"
	"idbcrm/internal/leads/models"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

// Store persists leads.
type Store interface {
	Reader
	Create(ctx context.Context, l *models.Lead) error
	GetMany(ctx context.Context, sc scope.Scope, ids []domain.LeadID) ([]*models.Lead, error)
	List(ctx context.Context, sc scope.Scope, f models.ListFilter) ([]*models.Lead, int, error)
	Update(ctx context.Context, l *models.Lead) error
}

// Recorder appends timeline events in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, in timelineModels.RecordInput) (*timelineModels.Event, error)
}

// PartnerChecker reports whether a partner exists and may be assigned work.
type PartnerChecker interface {
	IsActive(ctx context.Context, id domain.PartnerID) (bool, error)
}

// BranchChecker reports whether a branch exists.
type BranchChecker interface {
	Exists(ctx context.Context, id domain.BranchID) (bool, error)
}

// Service manages leads.
type Service struct {
	store    Store
	guard    *Guard
	timeline Recorder
	partners PartnerChecker
	branches BranchChecker
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPartnerChecker validates assignees. Without it any id is accepted and
// the store's foreign key is the only check.
func WithPartnerChecker(p PartnerChecker) Option {
	return func(s *Service) { s.partners = p }
}

// WithBranchChecker validates admin-chosen branches.
func WithBranchChecker(b BranchChecker) Option {
	return func(s *Service) { s.branches = b }
}

// New constructs the lead service.
func New(store Store, guard *Guard, timeline Recorder, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, timeline: timeline, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create records a new lead. Non-admins always create in their own branch;
// admins may pick any branch.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreateLeadInput) (*models.Lead, error) {
	if _, err := scope.Resolve(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	branch := actor.BranchID
	if actor.IsAdmin() && in.BranchID != nil {
		branch = in.BranchID
	}
	now := requestcontext.Now(ctx)
	lead := &models.Lead{
		ID:               domain.New[domain.LeadID](),
		Name:             in.Name,
		Email:            in.Email,
		Mobile:           in.Mobile,
		City:             in.City,
		Address:          in.Address,
		Qualifications:   in.Qualifications,
		PreferredCountry: in.PreferredCountry,
		Type:             in.Type,
		Purpose:          in.Purpose,
		UTMSource:        in.UTMSource,
		UTMMedium:        in.UTMMedium,
		UTMCampaign:      in.UTMCampaign,
		Status:           in.Status,
		BranchID:         branch,
		AssignedTo:       in.AssignedTo,
		CreatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if actor.IsAdmin() && in.BranchID != nil {
			if err := s.checkBranch(txCtx, *in.BranchID); err != nil {
				return err
			}
		}
		if lead.AssignedTo != nil {
			if err := s.checkAssignee(txCtx, *lead.AssignedTo); err != nil {
				return err
			}
		}
		if err := s.store.Create(txCtx, lead); err != nil {
			return wrapLeadErr(err)
		}
		return s.record(txCtx, lead.ID, timelineModels.EventLeadCreated, actor, lead.Name)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCreated(lead.UTMSource)
	s.logAudit(ctx, "lead_created", actor, "lead_id", lead.ID)
	return lead, nil
}

// Get returns a lead visible to the actor.
func (s *Service) Get(ctx context.Context, actor scope.Actor, id domain.LeadID) (*models.Lead, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	return s.guard.Load(ctx, actor, sc, id)
}

// List returns one page of leads visible to the actor, newest first.
func (s *Service) List(ctx context.Context, actor scope.Actor, f models.ListFilter) (*models.ListResult, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	f.Normalize()
	items, total, err := s.store.List(ctx, sc, f)
	if err != nil {
		return nil, dErrors.Classify(err, dErrors.CodeInternal, "failed to list leads")
	}
	if items == nil {
		items = []*models.Lead{}
	}
	return &models.ListResult{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Update applies a partial update. A status change records LEAD_STATUS_CHANGED;
// a new assignee records LEAD_ASSIGNED and promotes a new lead to assigned
// unless the caller set a status explicitly.
func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.LeadID, in models.UpdateLeadInput) (*models.Lead, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.BranchID != nil && !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can move leads between branches")
	}

	var updated *models.Lead
	statusChanged := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		lead, err := s.guard.Load(txCtx, actor, sc, id)
		if err != nil {
			return err
		}
		prevStatus := lead.Status
		applyContact(lead, in)

		assigned := false
		if in.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *in.AssignedTo) {
			if err := s.checkAssignee(txCtx, *in.AssignedTo); err != nil {
				return err
			}
			lead.AssignedTo = in.AssignedTo
			assigned = true
		}
		if in.BranchID != nil {
			if err := s.checkBranch(txCtx, *in.BranchID); err != nil {
				return err
			}
			lead.BranchID = in.BranchID
		}
		switch {
		case in.Status != nil:
			lead.Status = *in.Status
		case assigned && lead.Status == models.StatusNew:
			lead.Status = models.StatusAssigned
		}

		lead.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.Update(txCtx, lead); err != nil {
			return wrapLeadErr(err)
		}
		if assigned {
			if err := s.record(txCtx, id, timelineModels.EventAssigned, actor, lead.AssignedTo.String()); err != nil {
				return err
			}
		}
		if lead.Status != prevStatus {
			statusChanged = true
			if err := s.record(txCtx, id, timelineModels.EventStatusChanged, actor, string(lead.Status)); err != nil {
				return err
			}
		}
		updated = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	if statusChanged {
		s.metrics.IncrementStatusChange(string(updated.Status))
	}
	s.logAudit(ctx, "lead_updated", actor, "lead_id", id, "status", updated.Status)
	return updated, nil
}

// BulkUpdateStatus sets one status on many leads. Every id must be visible to
// the actor; otherwise nothing is changed. Leads already in the target status
// are left untouched and produce no event.
func (s *Service) BulkUpdateStatus(ctx context.Context, actor scope.Actor, in models.BulkStatusInput) (int, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return 0, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}

	changed := 0
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		leads, err := s.store.GetMany(txCtx, sc, in.IDs)
		if err != nil {
			return dErrors.Classify(err, dErrors.CodeInternal, "failed to load leads")
		}
		if len(leads) != len(in.IDs) {
			found := make(map[domain.LeadID]bool, len(leads))
			for _, l := range leads {
				found[l.ID] = true
			}
			for _, id := range in.IDs {
				if !found[id] {
					return s.guard.Check(txCtx, actor, sc, id)
				}
			}
		}
		now := requestcontext.Now(txCtx)
		for _, l := range leads {
			if l.Status == in.Status {
				continue
			}
			l.Status = in.Status
			l.UpdatedAt = now
			if err := s.store.Update(txCtx, l); err != nil {
				return wrapLeadErr(err)
			}
			if err := s.record(txCtx, l.ID, timelineModels.EventStatusChanged, actor, string(in.Status)); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveBulkUpdate(changed)
	s.logAudit(ctx, "lead_bulk_status_updated", actor, "status", in.Status, "requested", len(in.IDs), "changed", changed)
	return changed, nil
}

func applyContact(l *models.Lead, in models.UpdateLeadInput) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&l.Name, in.Name)
	set(&l.Email, in.Email)
	set(&l.Mobile, in.Mobile)
	set(&l.City, in.City)
	set(&l.Address, in.Address)
	set(&l.Qualifications, in.Qualifications)
	set(&l.PreferredCountry, in.PreferredCountry)
	set(&l.Purpose, in.Purpose)
	if in.Type != nil {
		l.Type = *in.Type
	}
}

func (s *Service) record(ctx context.Context, id domain.LeadID, t timelineModels.EventType, actor scope.Actor, state string) error {
	_, err := s.timeline.Record(ctx, timelineModels.RecordInput{
		LeadID:   id,
		Type:     t,
		ActorID:  actor.ID,
		NewState: state,
	})
	return err
}

func (s *Service) checkAssignee(ctx context.Context, id domain.PartnerID) error {
	if s.partners == nil {
		return nil
	}
	ok, err := s.partners.IsActive(ctx, id)
	if err != nil {
		return dErrors.Classify(err, dErrors.CodeInternal, "failed to check assignee")
	}
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "assignee is not an active partner")
	}
	return nil
}

func (s *Service) checkBranch(ctx context.Context, id domain.BranchID) error {
	if s.branches == nil {
		return nil
	}
	ok, err := s.branches.Exists(ctx, id)
	if err != nil {
		return dErrors.Classify(err, dErrors.CodeInternal, "failed to check branch")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "branch not found")
	}
	return nil
}

func wrapLeadErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "lead references a missing partner or branch")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "lead store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, actor scope.Actor, attributes ...any) {
	args := append(attributes,
		"event", event,
		"log_type", "audit",
		"actor_id", actor.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.InfoContext(ctx, event, args...)
}
