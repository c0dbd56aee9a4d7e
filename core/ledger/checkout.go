package ledger

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrNothingToCheckout = errors.New("payment has no outstanding balance")
)

type (
	// CheckoutRequest describes the externally-hosted payment collection flow
	// to create for a payment's outstanding balance. Amount is in major
	// currency units; providers convert to minor units themselves.
	CheckoutRequest struct {
		PaymentID    string
		StudentName  string
		StudentEmail string
		Description  string
		Amount       float64
	}

	// CheckoutSession is the provider-neutral view of an external checkout
	// session.
	CheckoutSession struct {
		ID            string
		URL           string
		Paid          bool
		AmountPaid    float64 // major currency units
		Currency      string
		CustomerEmail string
		PaymentID     string // from session metadata
		StudentName   string
	}

	// CheckoutProvider is the external payment provider boundary
	// (Stripe Checkout in production).
	CheckoutProvider interface {
		CreateSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
		// GetSession returns ErrSessionNotFound for an unknown id.
		GetSession(ctx context.Context, id string) (CheckoutSession, error)
	}
)

// CreateCheckout requests an external checkout session for the payment's
// outstanding balance. Provider failure leaves the payment untouched.
func (svc *Service) CreateCheckout(ctx context.Context, id string) (CheckoutSession, error) {
	pmt, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return CheckoutSession{}, err
	}
	return svc.CreateCheckoutFor(ctx, CheckoutRequest{
		PaymentID: pmt.ID,
		Amount:    pmt.Remaining(),
	})
}

// CreateCheckoutFor requests an external checkout session for an explicit
// amount; blank student fields fall back to the payment's own. Provider
// failure leaves the payment untouched.
func (svc *Service) CreateCheckoutFor(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	pmt, err := svc.repo.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !pmt.ReceiveEligible() {
		return CheckoutSession{}, ErrNotEligible
	}
	if req.Amount <= 0 {
		return CheckoutSession{}, ErrNothingToCheckout
	}
	if req.StudentName == "" {
		req.StudentName = pmt.StudentName
	}
	if req.StudentEmail == "" {
		req.StudentEmail = pmt.StudentEmail
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("Driving lessons balance for %s", req.StudentName)
	}

	sess, err := svc.checkout.CreateSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, pkgerrors.Wrap(err, "creating checkout session")
	}
	return sess, nil
}

// VerifyCheckout looks the session up at the provider and, when it is paid,
// applies it exactly as a Receive with method=stripe. The session id is
// recorded on the payment and a replay of the same session is a no-op, so the
// call is safe to repeat on a double redirect.
func (svc *Service) VerifyCheckout(ctx context.Context, sessionID string) (CheckoutSession, Payment, error) {
	sess, err := svc.checkout.GetSession(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, Payment{}, pkgerrors.Wrap(err, "fetching checkout session")
	}
	if sess.PaymentID == "" {
		return sess, Payment{}, ErrNotFound
	}

	pmt, err := svc.repo.GetPayment(ctx, sess.PaymentID)
	if err != nil {
		return sess, Payment{}, err
	}
	now := nowFunc().UTC()

	if !sess.Paid || pmt.CheckoutSessionID == sess.ID {
		pmt.SyncStatus(now)
		return sess, pmt, nil
	}

	note := "paid via checkout"
	if sess.CustomerEmail != "" {
		note = "paid via checkout by " + sess.CustomerEmail
	}
	ev := Event{
		PaymentID: pmt.ID,
		Type:      EventReceived,
		Amount:    sess.AmountPaid,
		Method:    MethodStripe,
		Note:      note,
		Date:      now,
		CreatedAt: now,
	}
	pmt, err = svc.repo.ApplyCheckout(ctx, pmt.ID, sess.ID, ev)
	if err != nil {
		return sess, Payment{}, err
	}
	pmt.SyncStatus(now)

	svc.sendReceipt(pmt, ev)
	return sess, pmt, nil
}
