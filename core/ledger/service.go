package ledger

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/roadmasterhq/roadmaster/core"
)

var (
	// errors
	ErrNotFound        = errors.New("payment not found")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNotEligible     = errors.New("payment is not eligible for this operation")

	errRefundExceedsBalance = "refund exceeds the refundable balance"

	nowFunc = time.Now // mockable
)

type (
	// Repository persists payments, their append-only events and expenses.
	// ApplyReceived/ApplyRefund/ApplyCheckout must perform the balance update
	// as a single atomic increment guarded by the eligibility predicate and
	// append the event in the same transaction; they return ErrNotEligible
	// when the guard rejects the update (eg. a concurrent writer got there
	// first).
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Payment, error)
		UpdatePayment(ctx context.Context, pmt Payment) (Payment, error)
		DeletePayment(ctx context.Context, id string) error

		ApplyReceived(ctx context.Context, id string, ev Event) (Payment, error)
		ApplyRefund(ctx context.Context, id string, ev Event) (Payment, error)
		// ApplyCheckout is ApplyReceived plus recording the checkout session id;
		// the guard also rejects a session id that was already applied.
		ApplyCheckout(ctx context.Context, id, sessionID string, ev Event) (Payment, error)
		QueryEvents(ctx context.Context, paymentID string) ([]Event, error)

		CreateExpense(ctx context.Context, exp Expense) (Expense, error)
		GetExpense(ctx context.Context, id string) (Expense, error)
		QueryExpenses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Expense, error)
		UpdateExpense(ctx context.Context, exp Expense) (Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		checkout CheckoutProvider
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, checkout CheckoutProvider, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, checkout: checkout, mailSvc: mailSvc}
}

func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	now := nowFunc().UTC()
	date := np.Date
	if date.IsZero() {
		date = now
	}
	pmt := Payment{
		StudentID:    np.StudentID,
		StudentName:  np.StudentName,
		StudentEmail: np.StudentEmail,
		Amount:       np.Amount,
		Method:       np.Method,
		Notes:        np.Notes,
		Date:         date.UTC(),
		DueDate:      np.DueDate.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	pmt, err := svc.repo.CreatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, err
	}
	pmt.SyncStatus(now)
	return pmt, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	pmt.SyncStatus(nowFunc().UTC())
	return pmt, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Payment, error) {
	payments, err := svc.repo.QueryPayments(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	now := nowFunc().UTC()
	for i := range payments {
		payments[i].SyncStatus(now)
	}
	// the status filter applies to the derived status, so it cannot be
	// pushed down to the store
	if filter != nil && filter.Status != "" {
		filtered := payments[:0]
		for _, pmt := range payments {
			if pmt.Status == filter.Status {
				filtered = append(filtered, pmt)
			}
		}
		payments = filtered
	}
	return payments, nil
}

func (svc *Service) Update(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if up.StudentName != "" {
		pmt.StudentName = up.StudentName
	}
	if up.StudentEmail != "" {
		pmt.StudentEmail = up.StudentEmail
	}
	pmt.Notes = up.Notes
	if !up.DueDate.IsZero() {
		pmt.DueDate = up.DueDate.UTC()
	}
	now := nowFunc().UTC()
	pmt.UpdatedAt = now

	pmt, err = svc.repo.UpdatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, err
	}
	pmt.SyncStatus(now)
	return pmt, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeletePayment(ctx, id)
}

func (svc *Service) Events(ctx context.Context, paymentID string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, paymentID)
}

// Receive records money received against the payment. Overpayment is accepted
// and simply clamps the derived status to paid; Amount never decreases.
func (svc *Service) Receive(ctx context.Context, id string, rp ReceivePayment) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !pmt.ReceiveEligible() {
		return Payment{}, ErrNotEligible
	}

	now := nowFunc().UTC()
	date := rp.Date
	if date.IsZero() {
		date = now
	}
	ev := Event{
		PaymentID: id,
		Type:      EventReceived,
		Amount:    rp.Amount,
		Method:    rp.Method,
		Note:      rp.Note,
		Date:      date.UTC(),
		CreatedAt: now,
	}
	pmt, err = svc.repo.ApplyReceived(ctx, id, ev)
	if err != nil {
		return Payment{}, err
	}
	pmt.SyncStatus(now)

	svc.sendReceipt(pmt, ev)
	return pmt, nil
}

// Refund issues a refund against the payment's paid balance. The refund is
// capped at Refundable(): `0 ≤ refunded ≤ paid` must hold after every
// transition.
func (svc *Service) Refund(ctx context.Context, id string, rp RefundPayment) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !pmt.RefundEligible() {
		return Payment{}, ErrNotEligible
	}
	if rp.Amount > pmt.Refundable() {
		return Payment{}, core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errRefundExceedsBalance})
	}

	now := nowFunc().UTC()
	date := rp.Date
	if date.IsZero() {
		date = now
	}
	ev := Event{
		PaymentID: id,
		Type:      EventRefund,
		Amount:    rp.Amount,
		Note:      rp.Reason,
		Date:      date.UTC(),
		CreatedAt: now,
	}
	pmt, err = svc.repo.ApplyRefund(ctx, id, ev)
	if err != nil {
		return Payment{}, err
	}
	pmt.SyncStatus(now)

	svc.sendRefundNotice(pmt, ev)
	return pmt, nil
}

// Summarize computes the period aggregates over the filtered payments and
// expenses:
//
//	netProfit = grossIncome − totalRefunds − totalExpenses
//	pendingAmount = Σ (amount − paidAmount) over pending/overdue payments
func (svc *Service) Summarize(ctx context.Context, filter *QueryFilter) (Summary, error) {
	// summary status breakdown derives from amounts; never pass the status
	// filter down
	pmtFilter := &QueryFilter{}
	if filter != nil {
		pmtFilter.StudentID = filter.StudentID
		pmtFilter.From = filter.From
		pmtFilter.To = filter.To
	}

	payments, err := svc.repo.QueryPayments(ctx, pmtFilter)
	if err != nil {
		return Summary{}, err
	}
	expenses, err := svc.repo.QueryExpenses(ctx, pmtFilter)
	if err != nil {
		return Summary{}, err
	}

	now := nowFunc().UTC()
	var sum Summary
	for i := range payments {
		pmt := &payments[i]
		pmt.SyncStatus(now)
		sum.GrossIncome += pmt.PaidAmount
		sum.TotalRefunds += pmt.RefundedAmount
		if pmt.Status == StatusPending || pmt.Status == StatusOverdue {
			sum.PendingAmount += pmt.Amount - pmt.PaidAmount
		}
	}
	for _, exp := range expenses {
		sum.TotalExpenses += exp.Amount
	}
	sum.NetProfit = sum.GrossIncome - sum.TotalRefunds - sum.TotalExpenses
	return sum, nil
}

// Expenses

func (svc *Service) CreateExpense(ctx context.Context, ne NewExpense) (Expense, error) {
	now := nowFunc().UTC()
	date := ne.Date
	if date.IsZero() {
		date = now
	}
	exp := Expense{
		Category:    ne.Category,
		Amount:      ne.Amount,
		Description: ne.Description,
		Date:        date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateExpense(ctx, exp)
}

func (svc *Service) GetExpense(ctx context.Context, id string) (Expense, error) {
	return svc.repo.GetExpense(ctx, id)
}

func (svc *Service) QueryExpenses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Expense, error) {
	return svc.repo.QueryExpenses(ctx, filter, ordering...)
}

func (svc *Service) UpdateExpense(ctx context.Context, id string, ne NewExpense) (Expense, error) {
	exp, err := svc.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	exp.Category = ne.Category
	exp.Amount = ne.Amount
	exp.Description = ne.Description
	if !ne.Date.IsZero() {
		exp.Date = ne.Date.UTC()
	}
	exp.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateExpense(ctx, exp)
}

func (svc *Service) DeleteExpense(ctx context.Context, id string) error {
	return svc.repo.DeleteExpense(ctx, id)
}

// emails; failures are logged by the email service, never surfaced

func (svc *Service) sendReceipt(pmt Payment, ev Event) {
	if svc.mailSvc == nil || pmt.StudentEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: pmt.StudentName, Address: pmt.StudentEmail}},
		Subject:      "Payment received",
		TemplateName: "payment-receipt",
		TemplateData: struct {
			StudentName string
			Amount      float64
			Method      Method
			Remaining   float64
		}{pmt.StudentName, ev.Amount, ev.Method, pmt.Remaining()},
	})
}

func (svc *Service) sendRefundNotice(pmt Payment, ev Event) {
	if svc.mailSvc == nil || pmt.StudentEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: pmt.StudentName, Address: pmt.StudentEmail}},
		Subject:      "Refund issued",
		TemplateName: "refund-notice",
		TemplateData: struct {
			StudentName string
			Amount      float64
			Reason      string
		}{pmt.StudentName, ev.Amount, ev.Note},
	})
}
