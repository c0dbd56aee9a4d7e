package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
)

type ledgerRepository struct {
	db *ledgerTable
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *DB) ledger.Repository {
	return &ledgerRepository{db: db.ledger}
}

func (repo *ledgerRepository) CreatePayment(ctx context.Context, pmt ledger.Payment) (ledger.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt.ID = uuid.New().String()
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *ledgerRepository) GetPayment(ctx context.Context, id string) (ledger.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.payments[id]; ok {
		return *pmt, nil
	}
	return ledger.Payment{}, ledger.ErrNotFound
}

func (repo *ledgerRepository) QueryPayments(ctx context.Context, filter *ledger.QueryFilter, ordering ...core.DBOrdering) ([]ledger.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]ledger.Payment, 0, len(repo.db.payments))
	for _, pmt := range repo.db.payments {
		payments = append(payments, *pmt)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].Date.After(payments[j].Date) })

	if filter == nil {
		return payments, nil
	}
	if filter.StudentID != "" {
		var filtered []ledger.Payment
		for _, pmt := range payments {
			if pmt.StudentID == filter.StudentID {
				filtered = append(filtered, pmt)
			}
		}
		payments = filtered
	}
	if payments != nil && !filter.From.IsZero() {
		var filtered []ledger.Payment
		fromUTC := filter.From.UTC()
		for _, pmt := range payments {
			if pmt.Date.Equal(fromUTC) || pmt.Date.After(fromUTC) {
				filtered = append(filtered, pmt)
			}
		}
		payments = filtered
	}
	if payments != nil && !filter.To.IsZero() {
		var filtered []ledger.Payment
		toUTC := filter.To.UTC()
		for _, pmt := range payments {
			if pmt.Date.Before(toUTC) || pmt.Date.Equal(toUTC) {
				filtered = append(filtered, pmt)
			}
		}
		payments = filtered
	}
	return payments, nil
}

func (repo *ledgerRepository) UpdatePayment(ctx context.Context, pmt ledger.Payment) (ledger.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.payments[pmt.ID]
	if !ok {
		return ledger.Payment{}, ledger.ErrNotFound
	}
	// metadata only; amounts move through Apply* exclusively
	orig.StudentName = pmt.StudentName
	orig.StudentEmail = pmt.StudentEmail
	orig.Notes = pmt.Notes
	orig.DueDate = pmt.DueDate
	orig.UpdatedAt = pmt.UpdatedAt
	return *orig, nil
}

func (repo *ledgerRepository) DeletePayment(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.payments[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(repo.db.payments, id)
	delete(repo.db.events, id)
	return nil
}

func (repo *ledgerRepository) ApplyReceived(ctx context.Context, id string, ev ledger.Event) (ledger.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.payments[id]
	if !ok {
		return ledger.Payment{}, ledger.ErrNotFound
	}
	if !(pmt.PaidAmount < pmt.Amount && pmt.RefundedAmount == 0) {
		return ledger.Payment{}, ledger.ErrNotEligible
	}
	pmt.PaidAmount += ev.Amount
	pmt.PaidAt = ev.Date
	pmt.UpdatedAt = ev.CreatedAt
	repo.appendEvent(ev)
	return *pmt, nil
}

func (repo *ledgerRepository) ApplyRefund(ctx context.Context, id string, ev ledger.Event) (ledger.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.payments[id]
	if !ok {
		return ledger.Payment{}, ledger.ErrNotFound
	}
	if !(pmt.PaidAmount > 0 && pmt.RefundedAmount+ev.Amount <= pmt.PaidAmount) {
		return ledger.Payment{}, ledger.ErrNotEligible
	}
	pmt.RefundedAmount += ev.Amount
	pmt.RefundedAt = ev.Date
	pmt.UpdatedAt = ev.CreatedAt
	repo.appendEvent(ev)
	return *pmt, nil
}

func (repo *ledgerRepository) ApplyCheckout(ctx context.Context, id, sessionID string, ev ledger.Event) (ledger.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.payments[id]
	if !ok {
		return ledger.Payment{}, ledger.ErrNotFound
	}
	if !(pmt.PaidAmount < pmt.Amount && pmt.RefundedAmount == 0 && pmt.CheckoutSessionID != sessionID) {
		return ledger.Payment{}, ledger.ErrNotEligible
	}
	pmt.PaidAmount += ev.Amount
	pmt.PaidAt = ev.Date
	pmt.CheckoutSessionID = sessionID
	pmt.UpdatedAt = ev.CreatedAt
	repo.appendEvent(ev)
	return *pmt, nil
}

func (repo *ledgerRepository) appendEvent(ev ledger.Event) {
	ev.ID = uuid.New().String()
	repo.db.events[ev.PaymentID] = append(repo.db.events[ev.PaymentID], ev)
}

func (repo *ledgerRepository) QueryEvents(ctx context.Context, paymentID string) ([]ledger.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]ledger.Event, len(repo.db.events[paymentID]))
	copy(events, repo.db.events[paymentID])
	return events, nil
}

func (repo *ledgerRepository) CreateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exp.ID = uuid.New().String()
	repo.db.expenses[exp.ID] = &exp
	return exp, nil
}

func (repo *ledgerRepository) GetExpense(ctx context.Context, id string) (ledger.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if exp, ok := repo.db.expenses[id]; ok {
		return *exp, nil
	}
	return ledger.Expense{}, ledger.ErrExpenseNotFound
}

func (repo *ledgerRepository) QueryExpenses(ctx context.Context, filter *ledger.QueryFilter, ordering ...core.DBOrdering) ([]ledger.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	expenses := make([]ledger.Expense, 0, len(repo.db.expenses))
	for _, exp := range repo.db.expenses {
		expenses = append(expenses, *exp)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Date.After(expenses[j].Date) })

	if filter == nil {
		return expenses, nil
	}
	if !filter.From.IsZero() {
		var filtered []ledger.Expense
		fromUTC := filter.From.UTC()
		for _, exp := range expenses {
			if exp.Date.Equal(fromUTC) || exp.Date.After(fromUTC) {
				filtered = append(filtered, exp)
			}
		}
		expenses = filtered
	}
	if expenses != nil && !filter.To.IsZero() {
		var filtered []ledger.Expense
		toUTC := filter.To.UTC()
		for _, exp := range expenses {
			if exp.Date.Before(toUTC) || exp.Date.Equal(toUTC) {
				filtered = append(filtered, exp)
			}
		}
		expenses = filtered
	}
	return expenses, nil
}

func (repo *ledgerRepository) UpdateExpense(ctx context.Context, exp ledger.Expense) (ledger.Expense, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.expenses[exp.ID]; !ok {
		return ledger.Expense{}, ledger.ErrExpenseNotFound
	}
	repo.db.expenses[exp.ID] = &exp
	return exp, nil
}

func (repo *ledgerRepository) DeleteExpense(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.expenses[id]; !ok {
		return ledger.ErrExpenseNotFound
	}
	delete(repo.db.expenses, id)
	return nil
}
