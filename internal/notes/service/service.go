// Package service manages lead notes. A note is reachable only through a lead
// visible to the caller; editing is reserved for its author and admins.
package service

import (
	"context"
	"errors"
	"log/slog"

	"idbcrm/internal/notes/models"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, n *models.Note) error
	FindByID(ctx context.Context, id domain.NoteID) (*models.Note, error)
	ListForLead(ctx context.Context, leadID domain.LeadID) ([]*models.Note, error)
	Update(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, id domain.NoteID) error
}

// LeadGuard returns NotFound unless the lead is visible within the scope.
type LeadGuard interface {
	Check(ctx context.Context, actor scope.Actor, sc scope.Scope, leadID domain.LeadID) error
}

// Recorder appends timeline events in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, in timelineModels.RecordInput) (*timelineModels.Event, error)
}

type Service struct {
	store    Store
	guard    LeadGuard
	timeline Recorder
	tx       tx.Runner
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, guard LeadGuard, timeline Recorder, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, timeline: timeline, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create adds a note and records LEAD_NOTE_ADDED with the note text.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreateNoteInput) (*models.Note, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	note := &models.Note{
		ID:        domain.New[domain.NoteID](),
		LeadID:    in.LeadID,
		Text:      in.Text,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.Check(txCtx, actor, sc, in.LeadID); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, note); err != nil {
			return wrapNoteErr(err)
		}
		_, err := s.timeline.Record(txCtx, timelineModels.RecordInput{
			LeadID:   note.LeadID,
			Type:     timelineModels.EventNoteAdded,
			ActorID:  actor.ID,
			NewState: note.Text,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "note_created", actor, "note_id", note.ID, "lead_id", note.LeadID)
	return note, nil
}

// ListForLead returns a visible lead's notes newest first.
func (s *Service) ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.Note, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}
	notes, err := s.store.ListForLead(ctx, leadID)
	if err != nil {
		return nil, wrapNoteErr(err)
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return notes, nil
}

// Update replaces a note's text.
func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.NoteID, in models.UpdateNoteInput) (*models.Note, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *models.Note
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		note, err := s.loadEditable(txCtx, actor, id)
		if err != nil {
			return err
		}
		note.Text = in.Text
		note.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.Update(txCtx, note); err != nil {
			return wrapNoteErr(err)
		}
		updated = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "note_updated", actor, "note_id", id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor scope.Actor, id domain.NoteID) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.loadEditable(txCtx, actor, id); err != nil {
			return err
		}
		return wrapNoteErr(s.store.Delete(txCtx, id))
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "note_deleted", actor, "note_id", id)
	return nil
}

// loadEditable checks the parent lead against the actor's scope before
// checking authorship, so a hidden note is NotFound rather than Forbidden.
func (s *Service) loadEditable(ctx context.Context, actor scope.Actor, id domain.NoteID) (*models.Note, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	note, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNoteErr(err)
	}
	if err := s.guard.Check(ctx, actor, sc, note.LeadID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "note not found")
		}
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(note.CreatedBy) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the author or an admin can change this note")
	}
	return note, nil
}

func wrapNoteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "note not found")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "note store failure")
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
