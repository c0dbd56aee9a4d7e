package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
	"github.com/roadmasterhq/roadmaster/core/quiz"
	"github.com/roadmasterhq/roadmaster/core/student"
	"github.com/roadmasterhq/roadmaster/core/user"
	dummymail "github.com/roadmasterhq/roadmaster/services/email/dummy"
	dummydb "github.com/roadmasterhq/roadmaster/storage/database/dummy"
)

var (
	ctx = context.Background()

	usrRepo  user.Repository
	ldgSvc   *ledger.Service
	provider *fakeCheckoutProvider

	testWebhookSecret = "whsec_test"

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	// the error handler exposes raw errors in debug mode; tests assert on
	// the production response bodies
	core.Conf.Debug = false
	core.Conf.TestMode = true
	core.Conf.Quiz = core.QuizConfig{
		MockTestQuestionCount: 4,
		MockTestDuration:      57 * time.Minute,
		MockTestPassMark:      3,
	}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	db.SeedQuiz(seedCategories(), seedQuestions())
	quizRepo := dummydb.NewQuizRepository(db)

	bank, err := quiz.LoadBank(ctx, quizRepo)
	if err != nil {
		t.Fatalf("setup() failed, %v", err)
	}

	// set up services
	mailSvc := dummymail.NewService(core.Conf.AppName, core.Conf.DefaultFromEmailAddr)
	dummymail.ClearSentMessages()
	usrSvc := user.NewService(usrRepo, mailSvc)
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))
	provider = newFakeCheckoutProvider()
	ldgSvc = ledger.NewService(dummydb.NewLedgerRepository(db), provider, mailSvc)
	quizSvc := quiz.NewService(bank, quizRepo)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         testLogger{},
			UserSvc:        usrSvc,
			StudentSvc:     stdSvc,
			LedgerSvc:      ldgSvc,
			QuizSvc:        quizSvc,
			WebhookSecret:  testWebhookSecret,
		},
	)
}

func seedCategories() []quiz.Category {
	return []quiz.Category{
		{ID: "road-signs", Name: "Road Signs", Weight: 2},
		{ID: "rules", Name: "Rules of the Road", Weight: 2},
	}
}

func seedQuestions() []quiz.Question {
	questions := make([]quiz.Question, 0, 6)
	for i := 1; i <= 3; i++ {
		questions = append(questions, quiz.Question{
			ID:         fmt.Sprintf("sign-%02d", i),
			CategoryID: "road-signs",
			Text:       fmt.Sprintf("What does sign %d mean?", i),
			Options:    []string{"stop", "give way", "no entry", "roundabout"},
			Answer:     1,
		})
	}
	for i := 1; i <= 3; i++ {
		questions = append(questions, quiz.Question{
			ID:         fmt.Sprintf("rule-%02d", i),
			CategoryID: "rules",
			Text:       fmt.Sprintf("Rule question %d?", i),
			Options:    []string{"yes", "no", "sometimes", "never"},
			Answer:     1,
		})
	}
	return questions
}

// testLogger drops all logs; handler tests only care about responses.
type testLogger struct{}

var _ core.Logger = (*testLogger)(nil)

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

// fakeCheckoutProvider is an in-memory ledger.CheckoutProvider whose sessions
// can be flipped to paid from within a test.
type fakeCheckoutProvider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]ledger.CheckoutSession
}

var _ ledger.CheckoutProvider = (*fakeCheckoutProvider)(nil)

func newFakeCheckoutProvider() *fakeCheckoutProvider {
	return &fakeCheckoutProvider{sessions: make(map[string]ledger.CheckoutSession)}
}

func (p *fakeCheckoutProvider) CreateSession(ctx context.Context, req ledger.CheckoutRequest) (ledger.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	sess := ledger.CheckoutSession{
		ID:          fmt.Sprintf("cs_test_%03d", p.seq),
		URL:         fmt.Sprintf("https://checkout.test/pay/cs_test_%03d", p.seq),
		PaymentID:   req.PaymentID,
		StudentName: req.StudentName,
	}
	p.sessions[sess.ID] = sess
	return sess, nil
}

func (p *fakeCheckoutProvider) GetSession(ctx context.Context, id string) (ledger.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	if !ok {
		return ledger.CheckoutSession{}, ledger.ErrSessionNotFound
	}
	return sess, nil
}

func (p *fakeCheckoutProvider) pay(id string, amount float64, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess := p.sessions[id]
	sess.Paid = true
	sess.AmountPaid = amount
	sess.Currency = "gbp"
	sess.CustomerEmail = email
	p.sessions[id] = sess
}

func createUser(t *testing.T, uname, email, pwd string, roles []string, isActive bool) user.User {
	usr := user.User{
		Username: uname,
		Email:    email,
		Roles:    roles,
		IsActive: isActive,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("createUser() failed, %v", err)
	}
	return usr
}

func createPayment(t *testing.T, amount float64) ledger.Payment {
	pmt, err := ldgSvc.Create(ctx, ledger.NewPayment{
		StudentID:    "st-01",
		StudentName:  "Jane Doe",
		StudentEmail: "jane@test.cd",
		Amount:       amount,
	})
	if err != nil {
		t.Fatalf("createPayment() failed, %v", err)
	}
	return pmt
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody() failed: %v; body %s", err, rec.Body.String())
	}
}
