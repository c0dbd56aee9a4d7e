package echoapi

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/roadmasterhq/roadmaster/core/ledger"
)

func Test_checkoutApi_createSession(t *testing.T) {
	server := setup(t)

	pmt := createPayment(t, 100)
	settled := createPayment(t, 50)
	if _, err := ldgSvc.Receive(ctx, settled.ID, ledger.ReceivePayment{Amount: 50, Method: ledger.MethodCash}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}

	tests := []httpTest{
		{
			name:     "paymentId required",
			body:     marchallObj(t, map[string]interface{}{"studentName": "Jane Doe", "amount": 100}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "paymentId is required"}),
		},
		{
			name:     "studentName required",
			body:     marchallObj(t, map[string]interface{}{"paymentId": pmt.ID, "amount": 100}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "studentName is required"}),
		},
		{
			name:     "amount required",
			body:     marchallObj(t, map[string]interface{}{"paymentId": pmt.ID, "studentName": "Jane Doe"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "amount is required"}),
		},
		{
			name:     "unknown payment",
			body:     marchallObj(t, map[string]interface{}{"paymentId": "nope", "studentName": "Jane Doe", "amount": 100}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "payment not found"}),
		},
		{
			name:     "settled payment",
			body:     marchallObj(t, map[string]interface{}{"paymentId": settled.ID, "studentName": "Jane Doe", "amount": 10}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "payment is not awaiting funds"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/create-checkout-session", tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("session created", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"paymentId":         pmt.ID,
			"studentName":       "Jane Doe",
			"studentEmail":      "jane@test.cd",
			"amount":            100,
			"lessonDescription": "Block of 10 lessons",
		})
		req, rec := newRequest(http.MethodPost, "/api/create-checkout-session", body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp checkoutSessionResponse
		decodeBody(t, rec, &resp)
		if resp.SessionID == "" || resp.URL == "" {
			t.Errorf("incomplete session: %s", rec.Body.String())
		}
	})
}

func Test_checkoutApi_methodNotAllowed(t *testing.T) {
	server := setup(t)

	tests := []httpTest{
		{name: "create-checkout-session", method: http.MethodGet, path: "/api/create-checkout-session", extra: http.MethodPost},
		{name: "verify-session", method: http.MethodPost, path: "/api/verify-session", extra: http.MethodGet},
		{name: "webhook", method: http.MethodPut, path: "/api/webhook", extra: http.MethodPost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			server.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("code = %v; want %v", rec.Code, http.StatusMethodNotAllowed)
			}
			if allow := rec.Header().Get("Allow"); allow != tt.extra {
				t.Errorf("Allow = %q; want %q", allow, tt.extra)
			}
		})
	}
}

func Test_checkoutApi_verifySession(t *testing.T) {
	server := setup(t)

	pmt := createPayment(t, 100)
	sess, err := ldgSvc.CreateCheckout(ctx, pmt.ID)
	if err != nil {
		t.Fatalf("CreateCheckout() failed, %v", err)
	}

	t.Run("session_id required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "session_id is required"}),
		}
		req, rec := newRequest(http.MethodGet, "/api/verify-session")
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown session", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "session not found"}),
		}
		req, rec := newRequest(http.MethodGet, "/api/verify-session?session_id=cs_test_nope")
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unpaid session", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/verify-session?session_id="+sess.ID)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp verifySessionResponse
		decodeBody(t, rec, &resp)
		if resp.Status != "unpaid" {
			t.Errorf("Status = %v; want unpaid", resp.Status)
		}
		if resp.PaidAt != nil {
			t.Errorf("PaidAt = %v; want nil", *resp.PaidAt)
		}
	})

	t.Run("paid session credits the payment once", func(t *testing.T) {
		provider.pay(sess.ID, 100, "jane@test.cd")

		var resp verifySessionResponse
		for i := 0; i < 2; i++ { // the second call is a replay
			req, rec := newRequest(http.MethodGet, "/api/verify-session?session_id="+sess.ID)
			server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
			}
			decodeBody(t, rec, &resp)
		}
		if resp.Status != "paid" {
			t.Errorf("Status = %v; want paid", resp.Status)
		}
		if resp.AmountPaid != 100 {
			t.Errorf("AmountPaid = %v; want 100", resp.AmountPaid)
		}
		if resp.PaidAt == nil {
			t.Error("PaidAt = nil; want timestamp")
		}

		pmt, err := ldgSvc.Get(ctx, pmt.ID)
		if err != nil {
			t.Fatalf("Get() failed, %v", err)
		}
		if pmt.Status != ledger.StatusPaid {
			t.Errorf("Status = %v; want %v", pmt.Status, ledger.StatusPaid)
		}
		if pmt.PaidAmount != 100 {
			t.Errorf("PaidAmount = %v; want 100", pmt.PaidAmount)
		}
		events, err := ldgSvc.Events(ctx, pmt.ID)
		if err != nil {
			t.Fatalf("Events() failed, %v", err)
		}
		if len(events) != 1 {
			t.Errorf("len(events) = %v; want 1", len(events))
		}
	})
}

func webhookPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_test_001","type":%q,"data":{"object":{}}}`, eventType))
}

func signedWebhookHeader(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func Test_checkoutApi_webhook(t *testing.T) {
	server := setup(t)

	t.Run("rejects bad signatures", func(t *testing.T) {
		payload := webhookPayload("checkout.session.completed")
		req, rec := newRequest(http.MethodPost, "/api/webhook", payload)
		req.Header.Set("stripe-signature", signedWebhookHeader(payload, "whsec_wrong"))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
		if !strings.HasPrefix(rec.Body.String(), "Webhook Error:") {
			t.Errorf("body = %q; want a webhook error", rec.Body.String())
		}
	})

	t.Run("acknowledges verified events", func(t *testing.T) {
		for _, eventType := range []string{"checkout.session.completed", "checkout.session.expired", "payment_intent.created"} {
			payload := webhookPayload(eventType)
			req, rec := newRequest(http.MethodPost, "/api/webhook", payload)
			req.Header.Set("stripe-signature", signedWebhookHeader(payload, testWebhookSecret))
			server.ServeHTTP(rec, req)

			tt := httpTest{
				wantCode: http.StatusOK,
				wantData: marchallObj(t, map[string]bool{"received": true}),
			}
			checkCodeAndData(t, tt, rec)
		}
	})
}
