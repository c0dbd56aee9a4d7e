package echoapi

import (
	"net/http"
	"testing"

	"github.com/roadmasterhq/roadmaster/core/ledger"
	"github.com/roadmasterhq/roadmaster/core/user"
)

func Test_ledgerApi_staffOnly(t *testing.T) {
	server := setup(t)

	student := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name:     "auth required",
			method:   http.MethodGet,
			path:     "/v1/payments",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "students cannot list payments",
			method:   http.MethodGet,
			path:     "/v1/payments",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "students cannot record payments",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    studentToken,
			body:     marchallObj(t, ledger.NewPayment{StudentID: "st-01", StudentName: "Jane Doe", Amount: 100}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "students cannot list expenses",
			method:   http.MethodGet,
			path:     "/v1/expenses",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_ledgerApi_paymentLifecycle(t *testing.T) {
	server := setup(t)

	instructor := createUser(t, "mike", "mike@test.cd", "LocalHer0!", user.InstructorRoles, true)
	token := getToken(t, instructor)

	// create
	body := marchallObj(t, ledger.NewPayment{
		StudentID:    "st-01",
		StudentName:  "Jane Doe",
		StudentEmail: "jane@test.cd",
		Amount:       200,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/payments", token, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var pmt ledger.Payment
	decodeBody(t, rec, &pmt)
	if pmt.Status != ledger.StatusPending {
		t.Errorf("Status = %v; want %v", pmt.Status, ledger.StatusPending)
	}

	// invalid creation payload
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments", token, marchallObj(t, ledger.NewPayment{StudentID: "st-01"}))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid create: code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	// receive a partial amount
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/receive", token,
		marchallObj(t, ledger.ReceivePayment{Amount: 150, Method: ledger.MethodCash}))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("receive failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &pmt)
	if pmt.Status != ledger.StatusPartial {
		t.Errorf("Status = %v; want %v", pmt.Status, ledger.StatusPartial)
	}
	if pmt.PaidAmount != 150 {
		t.Errorf("PaidAmount = %v; want 150", pmt.PaidAmount)
	}

	// refund more than was paid
	tt := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"amount": "refund exceeds the refundable balance"}),
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/refund", token,
		marchallObj(t, ledger.RefundPayment{Amount: 180}))
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// refund everything that was paid
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/refund", token,
		marchallObj(t, ledger.RefundPayment{Amount: 150, Reason: "moved away"}))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refund failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &pmt)
	if pmt.Status != ledger.StatusRefunded {
		t.Errorf("Status = %v; want %v", pmt.Status, ledger.StatusRefunded)
	}

	// a refunded payment no longer accepts funds
	tt = httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: ledger.ErrNotEligible.Error()}),
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/receive", token,
		marchallObj(t, ledger.ReceivePayment{Amount: 10, Method: ledger.MethodCash}))
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// the full history is recorded
	req, rec = newAuthRequest(http.MethodGet, "/v1/payments/"+pmt.ID+"/events", token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("events failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var events []ledger.Event
	decodeBody(t, rec, &events)
	if len(events) != 2 {
		t.Errorf("len(events) = %v; want 2", len(events))
	}
}

func Test_ledgerApi_unknownPayment(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "admin", "admin@test.cd", "LocalHer0!", user.AllRoles, true)
	token := getToken(t, admin)

	tests := []httpTest{
		{
			name:   "retrieve",
			method: http.MethodGet,
			path:   "/v1/payments/nope",
		},
		{
			name:   "receive",
			method: http.MethodPost,
			path:   "/v1/payments/nope/receive",
			body:   marchallObj(t, ledger.ReceivePayment{Amount: 10, Method: ledger.MethodCash}),
		},
		{
			name:   "refund",
			method: http.MethodPost,
			path:   "/v1/payments/nope/refund",
			body:   marchallObj(t, ledger.RefundPayment{Amount: 10}),
		},
		{
			name:   "checkout",
			method: http.MethodPost,
			path:   "/v1/payments/nope/checkout",
		},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusNotFound
		tt.wantData = marchallObj(t, httpErr{Error: "not found"})
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_ledgerApi_checkout(t *testing.T) {
	server := setup(t)

	instructor := createUser(t, "mike", "mike@test.cd", "LocalHer0!", user.InstructorRoles, true)
	token := getToken(t, instructor)

	pmt := createPayment(t, 100)

	req, rec := newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/checkout", token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp checkoutSessionResponse
	decodeBody(t, rec, &resp)
	if resp.SessionID == "" || resp.URL == "" {
		t.Errorf("incomplete session: %s", rec.Body.String())
	}

	// a settled payment has nothing left to collect
	if _, err := ldgSvc.Receive(ctx, pmt.ID, ledger.ReceivePayment{Amount: 100, Method: ledger.MethodCash}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}
	tt := httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: ledger.ErrNotEligible.Error()}),
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/checkout", token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_ledgerApi_summary(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "admin", "admin@test.cd", "LocalHer0!", user.AllRoles, true)
	token := getToken(t, admin)

	pmt1 := createPayment(t, 100)
	pmt2 := createPayment(t, 50)
	createPayment(t, 50) // stays pending
	if _, err := ldgSvc.Receive(ctx, pmt1.ID, ledger.ReceivePayment{Amount: 100, Method: ledger.MethodCash}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}
	if _, err := ldgSvc.Receive(ctx, pmt2.ID, ledger.ReceivePayment{Amount: 20, Method: ledger.MethodCard}); err != nil {
		t.Fatalf("Receive() failed, %v", err)
	}
	if _, err := ldgSvc.Refund(ctx, pmt2.ID, ledger.RefundPayment{Amount: 20}); err != nil {
		t.Fatalf("Refund() failed, %v", err)
	}
	if _, err := ldgSvc.CreateExpense(ctx, ledger.NewExpense{Category: ledger.ExpenseFuel, Amount: 30}); err != nil {
		t.Fatalf("CreateExpense() failed, %v", err)
	}

	want := ledger.Summary{
		GrossIncome:   120,
		TotalRefunds:  20,
		TotalExpenses: 30,
		NetProfit:     70,
		PendingAmount: 50,
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/payments/summary", token)
	server.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}
	checkCodeAndData(t, tt, rec)
}
