package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core/ledger"
)

// fakeProvider keeps sessions in memory; tests flip them to paid out-of-band
// the way Stripe does.
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]ledger.CheckoutSession
	lastReq  ledger.CheckoutRequest
}

var _ ledger.CheckoutProvider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]ledger.CheckoutSession)}
}

func (p *fakeProvider) CreateSession(_ context.Context, req ledger.CheckoutRequest) (ledger.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	sess := ledger.CheckoutSession{
		ID:          fmt.Sprintf("cs_test_%03d", p.seq),
		URL:         fmt.Sprintf("https://checkout.test/cs_test_%03d", p.seq),
		PaymentID:   req.PaymentID,
		StudentName: req.StudentName,
	}
	p.sessions[sess.ID] = sess
	p.lastReq = req
	return sess, nil
}

func (p *fakeProvider) GetSession(_ context.Context, id string) (ledger.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	if !ok {
		return ledger.CheckoutSession{}, ledger.ErrSessionNotFound
	}
	return sess, nil
}

func (p *fakeProvider) pay(id string, amount float64, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess := p.sessions[id]
	sess.Paid = true
	sess.AmountPaid = amount
	sess.Currency = "gbp"
	sess.CustomerEmail = email
	p.sessions[id] = sess
}

func Test_Service_CreateCheckout(t *testing.T) {
	svc, provider := newTestService(t)

	pmt := createPayment(t, svc, 100)
	if _, err := svc.Receive(ctx, pmt.ID, ledger.ReceivePayment{Amount: 40, Method: ledger.MethodCash}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}

	sess, err := svc.CreateCheckout(ctx, pmt.ID)
	if err != nil {
		t.Fatalf("CreateCheckout() failed, %v", err)
	}
	if sess.URL == "" {
		t.Error("CreateCheckout() returned no redirect URL")
	}
	// the session charges the outstanding balance
	if provider.lastReq.Amount != 60 {
		t.Errorf("CreateSession() amount = %v, want 60", provider.lastReq.Amount)
	}
	if provider.lastReq.StudentName != pmt.StudentName {
		t.Errorf("CreateSession() student = %q, want %q", provider.lastReq.StudentName, pmt.StudentName)
	}

	if _, err = svc.CreateCheckout(ctx, "nope"); err != ledger.ErrNotFound {
		t.Errorf("CreateCheckout() error = %v, want %v", err, ledger.ErrNotFound)
	}

	// settled payments have nothing to collect
	if _, err = svc.Receive(ctx, pmt.ID, ledger.ReceivePayment{Amount: 60, Method: ledger.MethodCash}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}
	if _, err = svc.CreateCheckout(ctx, pmt.ID); err != ledger.ErrNotEligible {
		t.Errorf("CreateCheckout() error = %v, want %v", err, ledger.ErrNotEligible)
	}
}

func Test_Service_CreateCheckoutFor(t *testing.T) {
	svc, provider := newTestService(t)

	pmt := createPayment(t, svc, 100)

	// an explicit amount wins over the outstanding balance
	_, err := svc.CreateCheckoutFor(ctx, ledger.CheckoutRequest{PaymentID: pmt.ID, Amount: 25})
	if err != nil {
		t.Fatalf("CreateCheckoutFor() failed, %v", err)
	}
	if provider.lastReq.Amount != 25 {
		t.Errorf("CreateSession() amount = %v, want 25", provider.lastReq.Amount)
	}
	// blank student fields fall back to the payment's own
	if provider.lastReq.StudentEmail != pmt.StudentEmail {
		t.Errorf("CreateSession() email = %q, want %q", provider.lastReq.StudentEmail, pmt.StudentEmail)
	}

	if _, err = svc.CreateCheckoutFor(ctx, ledger.CheckoutRequest{PaymentID: pmt.ID}); err != ledger.ErrNothingToCheckout {
		t.Errorf("CreateCheckoutFor() error = %v, want %v", err, ledger.ErrNothingToCheckout)
	}
}

func Test_Service_VerifyCheckout(t *testing.T) {
	svc, provider := newTestService(t)

	pmt := createPayment(t, svc, 100)
	sess, err := svc.CreateCheckout(ctx, pmt.ID)
	if err != nil {
		t.Fatalf("CreateCheckout() failed, %v", err)
	}

	// unknown session
	if _, _, err = svc.VerifyCheckout(ctx, "cs_test_nope"); errors.Cause(err) != ledger.ErrSessionNotFound {
		t.Errorf("VerifyCheckout() error = %v, want %v", err, ledger.ErrSessionNotFound)
	}

	// unpaid session is a no-op
	_, got, err := svc.VerifyCheckout(ctx, sess.ID)
	if err != nil {
		t.Fatalf("VerifyCheckout() failed, %v", err)
	}
	if got.PaidAmount != 0 || got.Status != ledger.StatusPending {
		t.Errorf("VerifyCheckout() = (%v, %v), want (0, pending)", got.PaidAmount, got.Status)
	}

	// paid session applies as a receive with method=stripe
	provider.pay(sess.ID, 100, "jane@test.cd")
	gotSess, got, err := svc.VerifyCheckout(ctx, sess.ID)
	if err != nil {
		t.Fatalf("VerifyCheckout() failed, %v", err)
	}
	if !gotSess.Paid {
		t.Error("VerifyCheckout() session not reported paid")
	}
	if got.PaidAmount != 100 || got.Status != ledger.StatusPaid {
		t.Errorf("VerifyCheckout() = (%v, %v), want (100, paid)", got.PaidAmount, got.Status)
	}

	events, err := svc.Events(ctx, pmt.ID)
	if err != nil {
		t.Fatalf("Events() failed, %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Events() count = %d, want 1", len(events))
	}
	if events[0].Method != ledger.MethodStripe {
		t.Errorf("Events()[0].Method = %v, want %v", events[0].Method, ledger.MethodStripe)
	}

	// a replay of the same session is a no-op
	_, got, err = svc.VerifyCheckout(ctx, sess.ID)
	if err != nil {
		t.Fatalf("VerifyCheckout() replay failed, %v", err)
	}
	if got.PaidAmount != 100 {
		t.Errorf("VerifyCheckout() replay PaidAmount = %v, want 100", got.PaidAmount)
	}
	if events, _ = svc.Events(ctx, pmt.ID); len(events) != 1 {
		t.Errorf("VerifyCheckout() replay appended an event; count = %d, want 1", len(events))
	}
}
