// Package service records offline payments against leads. Visibility follows
// the payment's lead; only the creator or an admin may change a payment.
package service

import (
	"context"
	"errors"
	"log/slog"
	"path"

	"idbcrm/internal/payments/models"
	"idbcrm/internal/platform/blob"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

// DefaultReceiptBucket holds uploaded payment receipts.
const DefaultReceiptBucket = "idb-payment-receipts"

type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error)
	List(ctx context.Context, sc scope.Scope, f models.Filter) ([]*models.Payment, error)
	Summary(ctx context.Context, sc scope.Scope) (*models.Totals, error)
	Update(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id domain.PaymentID) error
}

// LeadGuard returns NotFound unless the lead is visible within the scope.
type LeadGuard interface {
	Check(ctx context.Context, actor scope.Actor, sc scope.Scope, leadID domain.LeadID) error
}

// Recorder appends timeline events in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, in timelineModels.RecordInput) (*timelineModels.Event, error)
}

// PartnerChecker reports whether a partner exists and is active.
type PartnerChecker interface {
	IsActive(ctx context.Context, id domain.PartnerID) (bool, error)
}

type Service struct {
	store    Store
	guard    LeadGuard
	timeline Recorder
	partners PartnerChecker
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

// WithPartnerChecker validates receivers. Without it any id is accepted.
func WithPartnerChecker(p PartnerChecker) Option {
	return func(s *Service) { s.partners = p }
}

// WithUploader enables receipt uploads into bucket.
func WithUploader(u blob.Uploader, bucket string) Option {
	return func(s *Service) {
		s.uploader = u
		s.bucket = bucket
	}
}

func New(store Store, guard LeadGuard, timeline Recorder, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, timeline: timeline, bucket: DefaultReceiptBucket, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create records a payment on a visible lead, uploading receipt first when
// given, and records LEAD_PAYMENT_RECORDED as "amount currency status".
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreatePaymentInput, receipt *models.Receipt) (*models.Payment, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	now := requestcontext.Now(ctx)
	p := &models.Payment{
		ID:         domain.New[domain.PaymentID](),
		LeadID:     in.LeadID,
		ReceiverID: in.ReceiverID,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Method:     in.Method,
		Reference:  in.Reference,
		Status:     in.Status,
		Notes:      in.Notes,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if receipt != nil {
		if err := receipt.Validate(); err != nil {
			return nil, err
		}
		if s.uploader == nil {
			return nil, dErrors.New(dErrors.CodeInternal, "receipt storage is not configured")
		}
	}
	if err := s.checkReceiver(ctx, p.ReceiverID); err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, p.LeadID); err != nil {
		return nil, err
	}
	if receipt != nil {
		if p.ReceiptURL, err = s.upload(ctx, p, receipt); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.Check(txCtx, actor, sc, p.LeadID); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, p); err != nil {
			return wrapPaymentErr(err)
		}
		_, err := s.timeline.Record(txCtx, timelineModels.RecordInput{
			LeadID:   p.LeadID,
			Type:     timelineModels.EventPaymentRecorded,
			ActorID:  actor.ID,
			NewState: p.Summary(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "payment_recorded", actor,
		"payment_id", p.ID,
		"lead_id", p.LeadID,
		"amount", p.Amount,
		"currency", p.Currency,
	)
	return p, nil
}

// Get returns a payment whose lead is visible to the actor.
func (s *Service) Get(ctx context.Context, actor scope.Actor, id domain.PaymentID) (*models.Payment, error) {
	return s.loadVisible(ctx, actor, id)
}

// ListByLead returns a visible lead's payments, newest first.
func (s *Service) ListByLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.Payment, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}
	return s.list(ctx, scope.Unrestricted(), models.Filter{LeadID: &leadID})
}

// ListByReceiver returns the payments a partner received. Only admins and
// the receiver themselves may list them.
func (s *Service) ListByReceiver(ctx context.Context, actor scope.Actor, receiverID domain.PartnerID) ([]*models.Payment, error) {
	if !actor.IsAdmin() && !actor.Is(receiverID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can list another partner's payments")
	}
	return s.list(ctx, scope.Unrestricted(), models.Filter{ReceiverID: &receiverID})
}

// ListAll returns payments on every lead visible to the actor.
func (s *Service) ListAll(ctx context.Context, actor scope.Actor, status models.Status) ([]*models.Payment, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown payment status %q", status)
	}
	return s.list(ctx, sc, models.Filter{Status: status})
}

// Summary totals the actor's visible payments by status and currency.
func (s *Service) Summary(ctx context.Context, actor scope.Actor) (*models.Totals, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Summary(ctx, sc)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.PaymentID, in models.UpdatePaymentInput) (*models.Payment, error) {
	in.Normalize()
	if in.ReceiverID != nil {
		if err := s.checkReceiver(ctx, *in.ReceiverID); err != nil {
			return nil, err
		}
	}
	var updated *models.Payment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.loadOwned(txCtx, actor, id, "update")
		if err != nil {
			return err
		}
		in.Apply(p)
		if err := p.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.Update(txCtx, p); err != nil {
			return wrapPaymentErr(err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "payment_updated", actor, "payment_id", id, "status", updated.Status)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor scope.Actor, id domain.PaymentID) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.loadOwned(txCtx, actor, id, "delete"); err != nil {
			return err
		}
		return wrapPaymentErr(s.store.Delete(txCtx, id))
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "payment_deleted", actor, "payment_id", id)
	return nil
}

func (s *Service) list(ctx context.Context, sc scope.Scope, f models.Filter) ([]*models.Payment, error) {
	out, err := s.store.List(ctx, sc, f)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	if out == nil {
		out = []*models.Payment{}
	}
	return out, nil
}

func (s *Service) loadVisible(ctx context.Context, actor scope.Actor, id domain.PaymentID) (*models.Payment, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	if err := s.guard.Check(ctx, actor, sc, p.LeadID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) loadOwned(ctx context.Context, actor scope.Actor, id domain.PaymentID, verb string) (*models.Payment, error) {
	p, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(p.CreatedBy) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "only the creator or an admin can %s this payment", verb)
	}
	return p, nil
}

func (s *Service) checkReceiver(ctx context.Context, id domain.PartnerID) error {
	if s.partners == nil {
		return nil
	}
	ok, err := s.partners.IsActive(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check receiver")
	}
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "receiver must be an active partner")
	}
	return nil
}

func (s *Service) upload(ctx context.Context, p *models.Payment, r *models.Receipt) (string, error) {
	url, err := s.uploader.Upload(ctx, blob.Object{
		Bucket:      s.bucket,
		Prefix:      path.Join("payments", p.LeadID.String()),
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Body:        r.Body,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "receipt upload failed",
			"lead_id", p.LeadID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "receipt upload failed")
	}
	return url, nil
}

func wrapPaymentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "payment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "payment references a missing lead or partner")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "payment store failure")
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
