// Package models holds offline payments received against a lead.
package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodUPI          Method = "upi"
	MethodCard         Method = "card"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheque, MethodUPI, MethodCard:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in summary order.
var Statuses = []Status{StatusPending, StatusSuccess, StatusFailed, StatusRejected}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusRejected:
		return true
	}
	return false
}

const (
	DefaultCurrency = "INR"
	MaxNotesLength  = 2000
	// MaxReceiptBytes bounds an uploaded receipt.
	MaxReceiptBytes = 10 << 20
)

// Payment is money collected outside the system. Amount is in minor units.
type Payment struct {
	ID         domain.PaymentID `json:"id"`
	LeadID     domain.LeadID    `json:"lead_id"`
	ReceiverID domain.PartnerID `json:"receiver_id"`
	Amount     int64            `json:"amount"`
	Currency   string           `json:"currency"`
	Method     Method           `json:"method"`
	Reference  string           `json:"reference"`
	Status     Status           `json:"status"`
	ReceiptURL string           `json:"receipt_url"`
	Notes      string           `json:"notes"`
	CreatedBy  domain.PartnerID `json:"created_by"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Validate checks a complete payment, after create or a merged update.
func (p *Payment) Validate() error {
	switch {
	case domain.IsNil(p.LeadID):
		return dErrors.New(dErrors.CodeValidation, "lead_id is required")
	case domain.IsNil(p.ReceiverID):
		return dErrors.New(dErrors.CodeValidation, "receiver_id is required")
	case p.Amount <= 0:
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	case !govalidator.IsISO4217(p.Currency):
		return dErrors.Newf(dErrors.CodeValidation, "unknown currency %q", p.Currency)
	case !p.Method.IsValid():
		return dErrors.Newf(dErrors.CodeValidation, "unknown payment method %q", p.Method)
	case !p.Status.IsValid():
		return dErrors.Newf(dErrors.CodeValidation, "unknown payment status %q", p.Status)
	case !govalidator.IsByteLength(p.Notes, 0, MaxNotesLength):
		return dErrors.Newf(dErrors.CodeValidation, "notes must be at most %d bytes", MaxNotesLength)
	}
	return nil
}

// Summary is the timeline rendering: "1500.00 INR success".
func (p *Payment) Summary() string {
	return fmt.Sprintf("%s %s %s", FormatAmount(p.Amount), p.Currency, p.Status)
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

type CreatePaymentInput struct {
	LeadID     domain.LeadID    `json:"lead_id"`
	ReceiverID domain.PartnerID `json:"receiver_id"`
	Amount     int64            `json:"amount"`
	Currency   string           `json:"currency"`
	Method     Method           `json:"method"`
	Reference  string           `json:"reference"`
	Status     Status           `json:"status"`
	Notes      string           `json:"notes"`
}

func (in *CreatePaymentInput) Normalize() {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	in.Method = Method(strings.ToLower(strings.TrimSpace(string(in.Method))))
	in.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if in.Status == "" {
		in.Status = StatusPending
	}
	in.Reference = strings.TrimSpace(in.Reference)
	in.Notes = strings.TrimSpace(in.Notes)
}

// UpdatePaymentInput is a partial update. The lead and receipt are fixed.
type UpdatePaymentInput struct {
	ReceiverID *domain.PartnerID `json:"receiver_id,omitempty"`
	Amount     *int64            `json:"amount,omitempty"`
	Currency   *string           `json:"currency,omitempty"`
	Method     *Method           `json:"method,omitempty"`
	Reference  *string           `json:"reference,omitempty"`
	Status     *Status           `json:"status,omitempty"`
	Notes      *string           `json:"notes,omitempty"`
}

func (in *UpdatePaymentInput) Normalize() {
	if in.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Currency))
		in.Currency = &c
	}
	if in.Method != nil {
		m := Method(strings.ToLower(strings.TrimSpace(string(*in.Method))))
		in.Method = &m
	}
	if in.Status != nil {
		s := Status(strings.ToLower(strings.TrimSpace(string(*in.Status))))
		in.Status = &s
	}
	for _, p := range []*string{in.Reference, in.Notes} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// Apply merges the update into p.
func (in *UpdatePaymentInput) Apply(p *Payment) {
	if in.ReceiverID != nil {
		p.ReceiverID = *in.ReceiverID
	}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.Currency != nil {
		p.Currency = *in.Currency
	}
	if in.Method != nil {
		p.Method = *in.Method
	}
	if in.Reference != nil {
		p.Reference = *in.Reference
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
}

// Receipt is an uploaded proof of payment.
type Receipt struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (r *Receipt) Validate() error {
	switch {
	case len(r.Body) == 0:
		return dErrors.New(dErrors.CodeValidation, "receipt is empty")
	case len(r.Body) > MaxReceiptBytes:
		return dErrors.Newf(dErrors.CodeValidation, "receipt exceeds %d bytes", MaxReceiptBytes)
	}
	return nil
}

// Filter narrows a payment listing. Zero fields match everything.
type Filter struct {
	LeadID     *domain.LeadID
	ReceiverID *domain.PartnerID
	Status     Status
}

func (f Filter) Matches(p *Payment) bool {
	switch {
	case f.LeadID != nil && p.LeadID != *f.LeadID:
		return false
	case f.ReceiverID != nil && p.ReceiverID != *f.ReceiverID:
		return false
	case f.Status != "" && p.Status != f.Status:
		return false
	}
	return true
}

// StatusTotal sums payments of one status in one currency.
type StatusTotal struct {
	Status   Status `json:"status"`
	Currency string `json:"currency"`
	Count    int    `json:"count"`
	Amount   int64  `json:"amount"`
}

type Totals struct {
	Count    int           `json:"count"`
	ByStatus []StatusTotal `json:"by_status"`
}

// Add folds p into the totals.
func (t *Totals) Add(p *Payment) {
	t.Count++
	for i := range t.ByStatus {
		if t.ByStatus[i].Status == p.Status && t.ByStatus[i].Currency == p.Currency {
			t.ByStatus[i].Count++
			t.ByStatus[i].Amount += p.Amount
			return
		}
	}
	t.ByStatus = append(t.ByStatus, StatusTotal{Status: p.Status, Currency: p.Currency, Count: 1, Amount: p.Amount})
}

// Sort orders ByStatus by status, then currency.
func (t *Totals) Sort() {
	slices.SortFunc(t.ByStatus, func(a, b StatusTotal) int {
		if c := cmp.Compare(slices.Index(Statuses, a.Status), slices.Index(Statuses, b.Status)); c != 0 {
			return c
		}
		return cmp.Compare(a.Currency, b.Currency)
	})
}
