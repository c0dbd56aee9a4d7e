package ledger

import (
	"time"

	"github.com/roadmasterhq/roadmaster/core"
)

// Status is derived from (Amount, PaidAmount, RefundedAmount, DueDate) at read
// time and is never written to the store; see DeriveStatus.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPartial       Status = "partial"
	StatusPaid          Status = "paid"
	StatusPartialRefund Status = "partial_refund"
	StatusRefunded      Status = "refunded"
	StatusOverdue       Status = "overdue"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodStripe       Method = "stripe"
	MethodOther        Method = "other"
)

var Methods = []Method{MethodCash, MethodCard, MethodBankTransfer, MethodStripe, MethodOther}

type ExpenseCategory string

const (
	ExpenseFuel        ExpenseCategory = "fuel"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseInsurance   ExpenseCategory = "insurance"
	ExpenseVehicle     ExpenseCategory = "vehicle"
	ExpenseOffice      ExpenseCategory = "office"
	ExpenseMarketing   ExpenseCategory = "marketing"
	ExpenseOther       ExpenseCategory = "other"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseFuel, ExpenseMaintenance, ExpenseInsurance, ExpenseVehicle,
	ExpenseOffice, ExpenseMarketing, ExpenseOther,
}

type EventType string

const (
	EventReceived EventType = "received"
	EventRefund   EventType = "refund"
)

// Payment is one billable charge owed by a student. The three amounts are the
// source of truth; PaidAmount and RefundedAmount only ever grow.
type Payment struct {
	ID                string    `json:"id"`
	StudentID         string    `json:"student_id"`
	StudentName       string    `json:"student_name"`
	StudentEmail      string    `json:"student_email,omitempty"`
	Amount            float64   `json:"amount"`
	PaidAmount        float64   `json:"paid_amount"`
	RefundedAmount    float64   `json:"refunded_amount"`
	Status            Status    `json:"status"`
	Method            Method    `json:"method,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Date              time.Time `json:"date"`     // UTC
	DueDate           time.Time `json:"due_date"` // UTC
	PaidAt            time.Time `json:"paid_at"`
	RefundedAt        time.Time `json:"refunded_at"`
	CheckoutSessionID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DeriveStatus computes the payment status as a pure function of the amounts.
// `overdue` is an alias of pending/partial past the due date; it is treated as
// equivalent to pending for eligibility checks.
func DeriveStatus(amount, paid, refunded float64, due, now time.Time) Status {
	switch {
	case paid > 0 && refunded >= paid:
		return StatusRefunded
	case refunded > 0:
		return StatusPartialRefund
	case amount > 0 && paid >= amount:
		return StatusPaid
	case !due.IsZero() && now.After(due):
		return StatusOverdue
	case paid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// SyncStatus refreshes the derived Status field; called on every read and
// after every transition.
func (p *Payment) SyncStatus(now time.Time) {
	p.Status = DeriveStatus(p.Amount, p.PaidAmount, p.RefundedAmount, p.DueDate, now)
}

// Remaining is the outstanding balance; never negative (overpayment clamps).
func (p Payment) Remaining() float64 {
	if r := p.Amount - p.PaidAmount; r > 0 {
		return r
	}
	return 0
}

// Refundable is the amount still eligible for refund.
func (p Payment) Refundable() float64 {
	return p.PaidAmount - p.RefundedAmount
}

// ReceiveEligible reports whether the payment may receive money,
// ie. status ∈ {pending, partial, overdue}.
func (p Payment) ReceiveEligible() bool {
	return p.PaidAmount < p.Amount && p.RefundedAmount == 0
}

// RefundEligible reports whether the payment may be refunded,
// ie. status ∈ {paid, partial, partial_refund} with a refundable balance.
func (p Payment) RefundEligible() bool {
	return p.PaidAmount > 0 && p.Refundable() > 0
}

// Event is an immutable audit-trail entry attached to a Payment; one per
// successful receive or refund. Never mutated or deleted.
type Event struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"payment_id"`
	Type      EventType `json:"type"`
	Amount    float64   `json:"amount"`
	Method    Method    `json:"method,omitempty"`
	Note      string    `json:"note,omitempty"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Expense is a business cost record; plain CRUD, no state machine.
type Expense struct {
	ID          string          `json:"id"`
	Category    ExpenseCategory `json:"category"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Summary holds the derived aggregates over a filtered set of payments and
// expenses; computed, never stored.
type Summary struct {
	GrossIncome   float64 `json:"gross_income"`
	TotalRefunds  float64 `json:"total_refunds"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	PendingAmount float64 `json:"pending_amount"`
}

// NewPayment contains information needed to create a new Payment.
type NewPayment struct {
	StudentID    string    `json:"student_id" validate:"required"`
	StudentName  string    `json:"student_name" validate:"required"`
	StudentEmail string    `json:"student_email" validate:"omitempty,email"`
	Amount       float64   `json:"amount" validate:"required,gt=0"`
	Method       Method    `json:"method" validate:"omitempty,paymentmethod"`
	Notes        string    `json:"notes"`
	Date         time.Time `json:"date"`
	DueDate      time.Time `json:"due_date"`
}

func (np *NewPayment) Validate() error {
	np.StudentName = core.CleanString(np.StudentName)
	np.StudentEmail = core.CleanString(np.StudentEmail, true /* lower */)
	np.Notes = core.CleanString(np.Notes)
	return core.Validate.Struct(np)
}

// UpdatePayment modifies payment metadata only; amounts are untouchable
// outside Receive/Refund.
type UpdatePayment struct {
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email" validate:"omitempty,email"`
	Notes        string    `json:"notes"`
	DueDate      time.Time `json:"due_date"`
}

func (up *UpdatePayment) Validate() error {
	up.StudentName = core.CleanString(up.StudentName)
	up.StudentEmail = core.CleanString(up.StudentEmail, true /* lower */)
	up.Notes = core.CleanString(up.Notes)
	return core.Validate.Struct(up)
}

// ReceivePayment records money received against a payment.
type ReceivePayment struct {
	Amount float64   `json:"amount" validate:"required,gt=0"`
	Method Method    `json:"method" validate:"required,paymentmethod"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
}

func (rp *ReceivePayment) Validate() error {
	rp.Note = core.CleanString(rp.Note)
	return core.Validate.Struct(rp)
}

// RefundPayment issues a refund against a payment's paid balance.
type RefundPayment struct {
	Amount float64   `json:"amount" validate:"required,gt=0"`
	Reason string    `json:"reason"`
	Date   time.Time `json:"date"`
}

func (rp *RefundPayment) Validate() error {
	rp.Reason = core.CleanString(rp.Reason)
	return core.Validate.Struct(rp)
}

// NewExpense contains information needed to record a new Expense.
type NewExpense struct {
	Category    ExpenseCategory `json:"category" validate:"required,expensecategory"`
	Amount      float64         `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

func (ne *NewExpense) Validate() error {
	ne.Description = core.CleanString(ne.Description)
	return core.Validate.Struct(ne)
}

// QueryFilter applies AND on available fields; From/To bound Payment.Date
// (and Expense.Date for summaries).
type QueryFilter struct {
	StudentID string    `query:"student_id"`
	Status    Status    `query:"status"` // matched against the derived status
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.Status == "" && qf.From.IsZero() && qf.To.IsZero()
}
