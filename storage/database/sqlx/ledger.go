package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
)

type paymentRow struct {
	ID                string       `db:"id"`
	StudentID         string       `db:"student_id"`
	StudentName       string       `db:"student_name"`
	StudentEmail      string       `db:"student_email"`
	Amount            float64      `db:"amount"`
	PaidAmount        float64      `db:"paid_amount"`
	RefundedAmount    float64      `db:"refunded_amount"`
	Method            string       `db:"method"`
	Notes             string       `db:"notes"`
	Date              time.Time    `db:"date"`
	DueDate           sql.NullTime `db:"due_date"`
	PaidAt            sql.NullTime `db:"paid_at"`
	RefundedAt        sql.NullTime `db:"refunded_at"`
	CheckoutSessionID string       `db:"checkout_session_id"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

func (row paymentRow) payment() ledger.Payment {
	return ledger.Payment{
		ID:                row.ID,
		StudentID:         row.StudentID,
		StudentName:       row.StudentName,
		StudentEmail:      row.StudentEmail,
		Amount:            row.Amount,
		PaidAmount:        row.PaidAmount,
		RefundedAmount:    row.RefundedAmount,
		Method:            ledger.Method(row.Method),
		Notes:             row.Notes,
		Date:              row.Date,
		DueDate:           row.DueDate.Time,
		PaidAt:            row.PaidAt.Time,
		RefundedAt:        row.RefundedAt.Time,
		CheckoutSessionID: row.CheckoutSessionID,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

type eventRow struct {
	ID        string    `db:"id"`
	PaymentID string    `db:"payment_id"`
	Type      string    `db:"type"`
	Amount    float64   `db:"amount"`
	Method    string    `db:"method"`
	Note      string    `db:"note"`
	Date      time.Time `db:"date"`
	CreatedAt time.Time `db:"created_at"`
}

func (row eventRow) event() ledger.Event {
	return ledger.Event{
		ID:        row.ID,
		PaymentID: row.PaymentID,
		Type:      ledger.EventType(row.Type),
		Amount:    row.Amount,
		Method:    ledger.Method(row.Method),
		Note:      row.Note,
		Date:      row.Date,
		CreatedAt: row.CreatedAt,
	}
}

type expenseRow struct {
	ID          string    `db:"id"`
	Category    string    `db:"category"`
	Amount      float64   `db:"amount"`
	Description string    `db:"description"`
	Date        time.Time `db:"date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row expenseRow) expense() ledger.Expense {
	return ledger.Expense{
		ID:          row.ID,
		Category:    ledger.ExpenseCategory(row.Category),
		Amount:      row.Amount,
		Description: row.Description,
		Date:        row.Date,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

const paymentColumns = `id, student_id, student_name, student_email, amount, paid_amount, refunded_amount,
method, notes, date, due_date, paid_at, refunded_at, checkout_session_id, created_at, updated_at`

type ledgerRepository struct {
	db *sqlx.DB
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *sql.DB) ledger.Repository {
	return &ledgerRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *ledgerRepository) CreatePayment(ctx context.Context, pmt ledger.Payment) (ledger.Payment, error) {
	pmt.ID = uuid.New().String()
	q := `INSERT INTO payment (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := repo.db.ExecContext(ctx, q,
		pmt.ID, pmt.StudentID, pmt.StudentName, pmt.StudentEmail, pmt.Amount, pmt.PaidAmount,
		pmt.RefundedAmount, pmt.Method, pmt.Notes, pmt.Date, nullTime(pmt.DueDate),
		nullTime(pmt.PaidAt), nullTime(pmt.RefundedAt), pmt.CheckoutSessionID, pmt.CreatedAt, pmt.UpdatedAt,
	)
	if err != nil {
		return ledger.Payment{}, errors.Wrap(err, "creating payment")
	}
	return pmt, nil
}

func (repo *ledgerRepository) GetPayment(ctx context.Context, id string) (ledger.Payment, error) {
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Payment{}, ledger.ErrNotFound
		}
		return ledger.Payment{}, errors.Wrap(err, "getting payment")
	}
	return row.payment(), nil
}

func (repo *ledgerRepository) QueryPayments(ctx context.Context, filter *ledger.QueryFilter, ordering ...core.DBOrdering) ([]ledger.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payment`
	var clauses []string
	var args []interface{}
	if filter != nil {
		if filter.StudentID != "" {
			args = append(args, filter.StudentID)
			clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)))
		}
		if !filter.From.IsZero() {
			args = append(args, filter.From.UTC())
			clauses = append(clauses, fmt.Sprintf("date >= $%d", len(args)))
		}
		if !filter.To.IsZero() {
			args = append(args, filter.To.UTC())
			clauses = append(clauses, fmt.Sprintf("date <= $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "date DESC")

	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]ledger.Payment, len(rows))
	for i, row := range rows {
		payments[i] = row.payment()
	}
	return payments, nil
}

func (repo *ledgerRepository) UpdatePayment(ctx context.Context, pmt ledger.Payment) (ledger.Payment, error) {
	// metadata only; amounts move through Apply* exclusively
	q := `UPDATE payment
SET student_name = $1, student_email = $2, notes = $3, due_date = $4, updated_at = $5
WHERE id = $6
RETURNING ` + paymentColumns
	var row paymentRow
	err := repo.db.GetContext(ctx, &row, q,
		pmt.StudentName, pmt.StudentEmail, pmt.Notes, nullTime(pmt.DueDate), pmt.UpdatedAt, pmt.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ledger.Payment{}, ledger.ErrNotFound
		}
		return ledger.Payment{}, errors.Wrap(err, "updating payment")
	}
	return row.payment(), nil
}

func (repo *ledgerRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM payment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (repo *ledgerRepository) ApplyReceived(ctx context.Context, id string, ev ledger.Event) (ledger.Payment, error) {
	q := `UPDATE payment
SET paid_amount = paid_amount + $1, paid_at = $2, updated_at = $3
WHERE id = $4 AND paid_amount < amount AND refunded_amount = 0
RETURNING ` + paymentColumns
	return repo.applyEvent(ctx, id, ev, q, ev.Amount, ev.Date, ev.CreatedAt, id)
}

func (repo *ledgerRepository) ApplyRefund(ctx context.Context, id string, ev ledger.Event) (ledger.Payment, error) {
	q := `UPDATE payment
SET refunded_amount = refunded_amount + $1, refunded_at = $2, updated_at = $3
WHERE id = $4 AND paid_amount > 0 AND refunded_amount + $1 <= paid_amount
RETURNING ` + paymentColumns
	return repo.applyEvent(ctx, id, ev, q, ev.Amount, ev.Date, ev.CreatedAt, id)
}

func (repo *ledgerRepository) ApplyCheckout(ctx context.Context, id, sessionID string, ev ledger.Event) (ledger.Payment, error) {
	q := `UPDATE payment
SET paid_amount = paid_amount + $1, paid_at = $2, updated_at = $3, checkout_session_id = $5
WHERE id = $4 AND paid_amount < amount AND refunded_amount = 0 AND checkout_session_id <> $5
RETURNING ` + paymentColumns
	return repo.applyEvent(ctx, id, ev, q, ev.Amount, ev.Date, ev.CreatedAt, id, sessionID)
}

// applyEvent runs the guarded balance update and appends the audit event in
// one transaction. A guard miss on an existing payment maps to ErrNotEligible.
func (repo *ledgerRepository) applyEvent(ctx context.Context, id string, ev ledger.Event, q string, args ...interface{}) (ledger.Payment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return ledger.Payment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row paymentRow
	if err = tx.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			var exists bool
			if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM payment WHERE id = $1)`, id); err != nil {
				return ledger.Payment{}, errors.Wrap(err, "checking payment")
			}
			if exists {
				return ledger.Payment{}, ledger.ErrNotEligible
			}
			return ledger.Payment{}, ledger.ErrNotFound
		}
		return ledger.Payment{}, errors.Wrap(err, "applying payment event")
	}

	ev.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_event (id, payment_id, type, amount, method, note, date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.PaymentID, ev.Type, ev.Amount, ev.Method, ev.Note, ev.Date, ev.CreatedAt,
	)
	if err != nil {
		return ledger.Payment{}, errors.Wrap(err, "appending payment event")
	}

	if err = tx.Commit(); err != nil {
		return ledger.Payment{}, errors.Wrap(err, "committing transaction")
	}
	return row.payment(), nil
}

func (repo *ledgerRepository) QueryEvents(ctx context.Context, paymentID string) ([]ledger.Event, error) {
	var rows []eventRow
	q := `SELECT id, payment_id, type, amount, method, note, date, created_at
FROM payment_event WHERE payment_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, paymentID); err != nil {
		return nil, errors.Wrap(err, "querying payment events")
	}
	events := make([]ledger.Event, len(rows))
	for i, row := range rows {
		events[i] = row.event()
	}
	return events, nil
}

func (repo *ledgerRepository) CreateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error) {
	exp.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO expense (id, category, amount, description, date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exp.ID, exp.Category, exp.Amount, exp.Description, exp.Date, exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		return ledger.Expense{}, errors.Wrap(err, "creating expense")
	}
	return exp, nil
}

func (repo *ledgerRepository) GetExpense(ctx context.Context, id string) (ledger.Expense, error) {
	var row expenseRow
	q := `SELECT id, category, amount, description, date, created_at, updated_at FROM expense WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Expense{}, ledger.ErrExpenseNotFound
		}
		return ledger.Expense{}, errors.Wrap(err, "getting expense")
	}
	return row.expense(), nil
}

func (repo *ledgerRepository) QueryExpenses(ctx context.Context, filter *ledger.QueryFilter, ordering ...core.DBOrdering) ([]ledger.Expense, error) {
	q := `SELECT id, category, amount, description, date, created_at, updated_at FROM expense`
	var clauses []string
	var args []interface{}
	if filter != nil {
		if !filter.From.IsZero() {
			args = append(args, filter.From.UTC())
			clauses = append(clauses, fmt.Sprintf("date >= $%d", len(args)))
		}
		if !filter.To.IsZero() {
			args = append(args, filter.To.UTC())
			clauses = append(clauses, fmt.Sprintf("date <= $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "date DESC")

	var rows []expenseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	expenses := make([]ledger.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = row.expense()
	}
	return expenses, nil
}

func (repo *ledgerRepository) UpdateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE expense SET category = $1, amount = $2, description = $3, date = $4, updated_at = $5 WHERE id = $6`,
		exp.Category, exp.Amount, exp.Description, exp.Date, exp.UpdatedAt, exp.ID,
	)
	if err != nil {
		return ledger.Expense{}, errors.Wrap(err, "updating expense")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Expense{}, ledger.ErrExpenseNotFound
	}
	return exp, nil
}

func (repo *ledgerRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM expense WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}
