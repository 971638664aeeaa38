package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/payments/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

const (
	maxUploadBytes  = models.MaxReceiptBytes + 1<<20
	multipartMemory = 4 << 20
)

// Service defines the payment operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreatePaymentInput, receipt *models.Receipt) (*models.Payment, error)
	Get(ctx context.Context, actor scope.Actor, id domain.PaymentID) (*models.Payment, error)
	ListByLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.Payment, error)
	ListByReceiver(ctx context.Context, actor scope.Actor, receiverID domain.PartnerID) ([]*models.Payment, error)
	ListAll(ctx context.Context, actor scope.Actor, status models.Status) ([]*models.Payment, error)
	Summary(ctx context.Context, actor scope.Actor) (*models.Totals, error)
	Update(ctx context.Context, actor scope.Actor, id domain.PaymentID, in models.UpdatePaymentInput) (*models.Payment, error)
	Delete(ctx context.Context, actor scope.Actor, id domain.PaymentID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/offline-payments", h.HandleList)
	r.Post("/offline-payments", h.HandleCreate)
	r.Get("/offline-payments/summary", h.HandleSummary)
	r.Get("/offline-payments/{id}", h.HandleGet)
	r.Patch("/offline-payments/{id}", h.HandleUpdate)
	r.Delete("/offline-payments/{id}", h.HandleDelete)
	r.Get("/leads/{id}/offline-payments", h.HandleListForLead)
	r.Get("/partners/{id}/offline-payments", h.HandleListForReceiver)
}

// HandleCreate accepts a JSON body, or multipart form fields with an
// optional "receipt" file.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	var (
		in      *models.CreatePaymentInput
		receipt *models.Receipt
	)
	if isMultipart(r) {
		var err error
		if in, receipt, err = readForm(w, r); err != nil {
			h.fail(ctx, w, "read payment form", err)
			return
		}
	} else if in, ok = httputil.DecodeAndPrepare[models.CreatePaymentInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx)); !ok {
		return
	}
	p, err := h.service.Create(ctx, actor, *in, receipt)
	if err != nil {
		h.fail(ctx, w, "record payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	status := models.Status(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	payments, err := h.service.ListAll(ctx, actor, status)
	if err != nil {
		h.fail(ctx, w, "list payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	t, err := h.service.Summary(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "summarize payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "get payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdatePaymentInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListForLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	leadID, err := domain.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payments, err := h.service.ListByLead(ctx, actor, leadID)
	if err != nil {
		h.fail(ctx, w, "list lead payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) HandleListForReceiver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	receiverID, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payments, err := h.service.ListByReceiver(ctx, actor, receiverID)
	if err != nil {
		h.fail(ctx, w, "list received payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readForm maps multipart fields onto the create input.
func readForm(w http.ResponseWriter, r *http.Request) (*models.CreatePaymentInput, *models.Receipt, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, dErrors.New(dErrors.CodeValidation, "upload is too large")
		}
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "malformed multipart form")
	}
	form := r.MultipartForm
	for field := range form.File {
		if field != "receipt" {
			return nil, nil, dErrors.Newf(dErrors.CodeValidation, "unknown file field %q", field)
		}
	}
	in := &models.CreatePaymentInput{
		Currency:  r.FormValue("currency"),
		Method:    models.Method(r.FormValue("method")),
		Reference: r.FormValue("reference"),
		Status:    models.Status(r.FormValue("status")),
		Notes:     r.FormValue("notes"),
	}
	var err error
	if in.LeadID, err = domain.ParseLeadID(r.FormValue("lead_id")); err != nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "lead_id must be a UUID")
	}
	if in.ReceiverID, err = domain.ParsePartnerID(r.FormValue("receiver_id")); err != nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "receiver_id must be a UUID")
	}
	if in.Amount, err = strconv.ParseInt(strings.TrimSpace(r.FormValue("amount")), 10, 64); err != nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "amount must be an integer in minor units")
	}
	in.Normalize()

	headers := form.File["receipt"]
	switch len(headers) {
	case 0:
		return in, nil, nil
	case 1:
	default:
		return nil, nil, dErrors.New(dErrors.CodeValidation, "receipt accepts a single file")
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload")
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, models.MaxReceiptBytes+1))
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(body)
	}
	return in, &models.Receipt{Filename: fh.Filename, ContentType: ct, Body: body}, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "failed to "+op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
