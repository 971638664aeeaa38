// Package service manages a lead's application. The application is created on
// the first section update; every section update is recorded on the lead's
// timeline in the same transaction.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"idbcrm/internal/applications/models"
	"idbcrm/internal/platform/blob"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

const (
	DefaultDocumentBucket = "idb-student-documents"
	uploadConcurrency     = 4
	studentIDAttempts     = 5
)

type Store interface {
	FindOrCreate(ctx context.Context, app *models.Application) (*models.Application, error)
	FindByLead(ctx context.Context, leadID domain.LeadID) (*models.Application, error)
	UpdatePersonal(ctx context.Context, app *models.Application) error
	UpsertFamily(ctx context.Context, id domain.ApplicationID, f *models.Family) error
	UpsertPreferences(ctx context.Context, id domain.ApplicationID, p *models.Preferences) error
	UpsertVisa(ctx context.Context, id domain.ApplicationID, v *models.Visa) error
	UpsertDocuments(ctx context.Context, id domain.ApplicationID, d *models.Documents) error
	Family(ctx context.Context, id domain.ApplicationID) (*models.Family, error)
	Preferences(ctx context.Context, id domain.ApplicationID) (*models.Preferences, error)
	Visa(ctx context.Context, id domain.ApplicationID) (*models.Visa, error)
	Documents(ctx context.Context, id domain.ApplicationID) (*models.Documents, error)
	Records(ctx context.Context, id domain.ApplicationID, kind models.RecordKind) ([]models.Record, error)
	CreateRecord(ctx context.Context, id domain.ApplicationID, r models.Record) error
	UpdateRecord(ctx context.Context, id domain.ApplicationID, r models.Record) error
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
	uploader blob.Uploader
	bucket   string
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

// WithUploader enables document uploads into bucket.
func WithUploader(u blob.Uploader, bucket string) Option {
	return func(s *Service) {
		s.uploader = u
		if bucket != "" {
			s.bucket = bucket
		}
	}
}

func New(store Store, guard LeadGuard, timeline Recorder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		guard:    guard,
		timeline: timeline,
		bucket:   DefaultDocumentBucket,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Get returns the lead's application with every section loaded.
func (s *Service) Get(ctx context.Context, actor scope.Actor, leadID domain.LeadID) (*models.Detail, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}
	app, err := s.store.FindByLead(ctx, leadID)
	if err != nil {
		return nil, wrapApplicationErr(err)
	}
	return s.detail(ctx, app)
}

// UpdatePersonal writes the personal fields and upserts the family details.
func (s *Service) UpdatePersonal(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.PersonalInput) (*models.Detail, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, actor, leadID, models.SectionPersonal, func(txCtx context.Context, app *models.Application, now time.Time) error {
		app.DateOfBirth = in.DateOfBirth
		app.Gender = in.Gender
		app.Nationality = in.Nationality
		app.PassportNumber = in.PassportNumber
		app.MaritalStatus = in.MaritalStatus
		app.UpdatedAt = now
		if err := s.store.UpdatePersonal(txCtx, app); err != nil {
			return wrapApplicationErr(err)
		}
		return wrapApplicationErr(s.store.UpsertFamily(txCtx, app.ID, &models.Family{
			FatherName:            in.FatherName,
			MotherName:            in.MotherName,
			EmergencyContactName:  in.EmergencyContactName,
			EmergencyContactPhone: in.EmergencyContactPhone,
			UpdatedAt:             now,
		}))
	})
}

func (s *Service) UpdatePreferences(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.PreferencesInput) (*models.Detail, error) {
	in.Normalize()
	return s.update(ctx, actor, leadID, models.SectionPreferences, func(txCtx context.Context, app *models.Application, now time.Time) error {
		return wrapApplicationErr(s.store.UpsertPreferences(txCtx, app.ID, &models.Preferences{
			PreferredCountry: in.PreferredCountry,
			CourseName:       in.CourseName,
			CourseType:       in.CourseType,
			Intake:           in.Intake,
			UpdatedAt:        now,
		}))
	})
}

func (s *Service) UpdateVisa(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.VisaInput) (*models.Detail, error) {
	in.Normalize()
	return s.update(ctx, actor, leadID, models.SectionVisa, func(txCtx context.Context, app *models.Application, now time.Time) error {
		return wrapApplicationErr(s.store.UpsertVisa(txCtx, app.ID, &models.Visa{
			VisaCountry:    in.VisaCountry,
			VisaType:       in.VisaType,
			VisaStatus:     in.VisaStatus,
			RefusalHistory: in.RefusalHistory,
			UpdatedAt:      now,
		}))
	})
}

func (s *Service) UpdateEducation(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.EducationInput) (*models.Detail, error) {
	return updateRecords(ctx, s, actor, leadID, models.SectionEducation, in)
}

func (s *Service) UpdateTests(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.TestsInput) (*models.Detail, error) {
	return updateRecords(ctx, s, actor, leadID, models.SectionTests, in)
}

func (s *Service) UpdateWorkExperience(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.WorkExperienceInput) (*models.Detail, error) {
	return updateRecords(ctx, s, actor, leadID, models.SectionWorkExperience, in)
}

// UpdateDocuments uploads files before opening the transaction, then writes
// the URLs: single slots are replaced and list slots appended.
func (s *Service) UpdateDocuments(ctx context.Context, actor scope.Actor, leadID domain.LeadID, files []models.File) (*models.Detail, error) {
	if err := models.ValidateFiles(files); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "document storage is not configured")
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}
	urls, err := s.upload(ctx, leadID, files)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, actor, leadID, models.SectionDocuments, func(txCtx context.Context, app *models.Application, now time.Time) error {
		docs, err := s.store.Documents(txCtx, app.ID)
		if err != nil {
			return wrapApplicationErr(err)
		}
		if docs == nil {
			docs = &models.Documents{}
		}
		for i, f := range files {
			docs.Apply(f.Slot, urls[i])
		}
		docs.UpdatedAt = now
		return wrapApplicationErr(s.store.UpsertDocuments(txCtx, app.ID, docs))
	})
}

func (s *Service) upload(ctx context.Context, leadID domain.LeadID, files []models.File) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			url, err := s.uploader.Upload(gctx, blob.Object{
				Bucket:      s.bucket,
				Prefix:      "applications/" + leadID.String(),
				Filename:    f.Filename,
				ContentType: f.ContentType,
				Body:        f.Body,
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Slot, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "document upload failed",
			"lead_id", leadID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document upload failed")
	}
	return urls, nil
}

type sectionWriter func(txCtx context.Context, app *models.Application, now time.Time) error

// update runs write against the lead's application, creating it if needed,
// and records LEAD_APPLICATION_UPDATED with the section name.
func (s *Service) update(ctx context.Context, actor scope.Actor, leadID domain.LeadID, section models.Section, write sectionWriter) (*models.Detail, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	var detail *models.Detail
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.Check(txCtx, actor, sc, leadID); err != nil {
			return err
		}
		app, err := s.findOrCreate(txCtx, leadID)
		if err != nil {
			return err
		}
		if err := write(txCtx, app, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if _, err := s.timeline.Record(txCtx, timelineModels.RecordInput{
			LeadID:   leadID,
			Type:     timelineModels.EventApplicationUpdated,
			ActorID:  actor.ID,
			NewState: string(section),
		}); err != nil {
			return err
		}
		detail, err = s.detail(txCtx, app)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "application_updated", actor, "lead_id", leadID, "section", string(section))
	return detail, nil
}

func (s *Service) findOrCreate(ctx context.Context, leadID domain.LeadID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	for range studentIDAttempts {
		app, err := s.store.FindOrCreate(ctx, &models.Application{
			ID:        domain.New[domain.ApplicationID](),
			LeadID:    leadID,
			StudentID: NewStudentID(),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, wrapApplicationErr(err)
		}
		return app, nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a student id")
}

// NewStudentID returns a random id of the form STU-nnnnnn.
func NewStudentID() string {
	return fmt.Sprintf("STU-%06d", rand.IntN(1_000_000))
}

func updateRecords[T models.Entry](ctx context.Context, s *Service, actor scope.Actor, leadID domain.LeadID, section models.Section, in models.RecordsInput[T]) (*models.Detail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, actor, leadID, section, func(txCtx context.Context, app *models.Application, now time.Time) error {
		for _, entry := range in.Records {
			if err := s.saveRecord(txCtx, app.ID, entry, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// saveRecord updates an entry carrying an id and creates one without. An id
// belonging to another application or list is NotFound.
func (s *Service) saveRecord(ctx context.Context, appID domain.ApplicationID, entry models.Entry, now time.Time) error {
	existing := entry.RecordID()
	if existing == nil {
		entry.SetRecordID(domain.New[domain.RecordID]())
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode application record")
	}
	rec := models.Record{
		ID:        *entry.RecordID(),
		Kind:      entry.Kind(),
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing == nil {
		return wrapApplicationErr(s.store.CreateRecord(ctx, appID, rec))
	}
	if err := s.store.UpdateRecord(ctx, appID, rec); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "%s record %s not found", rec.Kind, rec.ID)
		}
		return wrapApplicationErr(err)
	}
	return nil
}

func (s *Service) detail(ctx context.Context, app *models.Application) (*models.Detail, error) {
	d := &models.Detail{Application: app}
	var err error
	if d.Family, err = s.store.Family(ctx, app.ID); err != nil {
		return nil, wrapApplicationErr(err)
	}
	if d.Preferences, err = s.store.Preferences(ctx, app.ID); err != nil {
		return nil, wrapApplicationErr(err)
	}
	if d.Visa, err = s.store.Visa(ctx, app.ID); err != nil {
		return nil, wrapApplicationErr(err)
	}
	if d.Documents, err = s.store.Documents(ctx, app.ID); err != nil {
		return nil, wrapApplicationErr(err)
	}
	if d.Education, err = loadRecords[models.Education](ctx, s.store, app.ID, models.KindEducation); err != nil {
		return nil, err
	}
	if d.Tests, err = loadRecords[models.TestScore](ctx, s.store, app.ID, models.KindTest); err != nil {
		return nil, err
	}
	if d.WorkExperience, err = loadRecords[models.WorkExperience](ctx, s.store, app.ID, models.KindWorkExperience); err != nil {
		return nil, err
	}
	return d, nil
}

func loadRecords[T any, P interface {
	*T
	models.Entry
}](ctx context.Context, store Store, id domain.ApplicationID, kind models.RecordKind) ([]P, error) {
	records, err := store.Records(ctx, id, kind)
	if err != nil {
		return nil, wrapApplicationErr(err)
	}
	out, err := models.DecodeRecords[T, P](records)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode application records")
	}
	return out, nil
}

func wrapApplicationErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "application store failure")
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
