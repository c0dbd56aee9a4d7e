package echoapi

import (
	"net/http"
	"testing"

	"github.com/roadmasterhq/roadmaster/core/quiz"
	"github.com/roadmasterhq/roadmaster/core/user"
)

func Test_quizApi_authRequired(t *testing.T) {
	server := setup(t)

	paths := []string{"/v1/quiz/categories", "/v1/quiz/progress", "/v1/quiz/readiness", "/v1/quiz/mock-results"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tt := httpTest{
				wantCode: http.StatusUnauthorized,
				wantData: marchallObj(t, errMissingToken),
			}
			req, rec := newRequest(http.MethodGet, path)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_queryCategories(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, seedCategories()),
	}
	req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/categories", getToken(t, jane))
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_quizApi_practiceSession(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	mike := createUser(t, "mike", "mike@test.cd", "LocalHer0!", user.StudentRoles, true)
	janeToken := getToken(t, jane)

	t.Run("category_id required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"category_id": "this field is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/practice", janeToken, marchallObj(t, startPracticeRequest{}))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown category", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/practice", janeToken,
			marchallObj(t, startPracticeRequest{CategoryID: "nope"}))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	// start a session
	req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/practice", janeToken,
		marchallObj(t, startPracticeRequest{CategoryID: "road-signs"}))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var view quiz.View
	decodeBody(t, rec, &view)
	if view.Mode != quiz.ModePractice {
		t.Errorf("Mode = %v; want %v", view.Mode, quiz.ModePractice)
	}
	if view.Total != 3 {
		t.Errorf("Total = %v; want 3", view.Total)
	}
	if view.Question.CategoryID != "road-signs" {
		t.Errorf("CategoryID = %v; want road-signs", view.Question.CategoryID)
	}
	sessPath := "/v1/quiz/sessions/" + view.ID

	t.Run("hidden from other users", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, sessPath, getToken(t, mike))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("answer returns feedback", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, sessPath+"/answer", janeToken,
			marchallObj(t, answerRequest{Index: 1}))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("answer failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &view)
		if view.Feedback == nil {
			t.Fatal("Feedback = nil; want practice feedback")
		}
		if !view.Feedback.Correct {
			t.Error("Feedback.Correct = false; want true")
		}
		if view.Answered != 1 {
			t.Errorf("Answered = %v; want 1", view.Answered)
		}
	})

	t.Run("invalid answer option", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: quiz.ErrInvalidAnswer.Error()}),
		}
		req, rec := newAuthRequest(http.MethodPost, sessPath+"/answer", janeToken,
			marchallObj(t, answerRequest{Index: 99}))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("navigation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, sessPath+"/next", janeToken)
		server.ServeHTTP(rec, req)
		decodeBody(t, rec, &view)
		if view.Index != 1 {
			t.Errorf("Index = %v; want 1", view.Index)
		}

		req, rec = newAuthRequest(http.MethodPost, sessPath+"/prev", janeToken)
		server.ServeHTTP(rec, req)
		decodeBody(t, rec, &view)
		if view.Index != 0 {
			t.Errorf("Index = %v; want 0", view.Index)
		}

		req, rec = newAuthRequest(http.MethodPost, sessPath+"/goto", janeToken, marchallObj(t, goToRequest{Index: 2}))
		server.ServeHTTP(rec, req)
		decodeBody(t, rec, &view)
		if view.Index != 2 {
			t.Errorf("Index = %v; want 2", view.Index)
		}

		req, rec = newAuthRequest(http.MethodPost, sessPath+"/flag", janeToken)
		server.ServeHTTP(rec, req)
		decodeBody(t, rec, &view)
		if !view.Flagged {
			t.Error("Flagged = false; want true")
		}
	})

	t.Run("exit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, sessPath, janeToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNoContent)
		}

		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec = newAuthRequest(http.MethodGet, sessPath, janeToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_quizApi_mockTest(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	token := getToken(t, jane)

	req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/mock", token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var view quiz.View
	decodeBody(t, rec, &view)
	if view.Mode != quiz.ModeMock {
		t.Errorf("Mode = %v; want %v", view.Mode, quiz.ModeMock)
	}
	if view.Total != 4 {
		t.Errorf("Total = %v; want 4", view.Total)
	}
	if view.TimeRemaining == 0 {
		t.Error("TimeRemaining = 0; want the test countdown")
	}
	sessPath := "/v1/quiz/sessions/" + view.ID

	// mock answers never come with feedback
	req, rec = newAuthRequest(http.MethodPost, sessPath+"/answer", token, marchallObj(t, answerRequest{Index: 1}))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("answer failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &view)
	if view.Feedback != nil {
		t.Errorf("Feedback = %+v; want nil in mock mode", view.Feedback)
	}

	// answer the rest; the bank marks option 1 on every question
	for i := 1; i < view.Total; i++ {
		req, rec = newAuthRequest(http.MethodPost, sessPath+"/next", token)
		server.ServeHTTP(rec, req)
		req, rec = newAuthRequest(http.MethodPost, sessPath+"/answer", token, marchallObj(t, answerRequest{Index: 1}))
		server.ServeHTTP(rec, req)
	}

	req, rec = newAuthRequest(http.MethodPost, sessPath+"/finish", token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var res quiz.MockResult
	decodeBody(t, rec, &res)
	if res.Score != 4 {
		t.Errorf("Score = %v; want 4", res.Score)
	}
	if !res.Passed {
		t.Error("Passed = false; want true")
	}

	// result is recorded and feeds readiness
	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/mock-results", token)
	server.ServeHTTP(rec, req)
	var results []quiz.MockResult
	decodeBody(t, rec, &results)
	if len(results) != 1 {
		t.Fatalf("len(results) = %v; want 1", len(results))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/readiness", token)
	server.ServeHTTP(rec, req)
	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, map[string]int{"readiness": 60}),
	}
	checkCodeAndData(t, tt, rec)
}

func Test_quizApi_finishPracticeRejected(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	token := getToken(t, jane)

	req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/practice", token,
		marchallObj(t, startPracticeRequest{CategoryID: "rules"}))
	server.ServeHTTP(rec, req)
	var view quiz.View
	decodeBody(t, rec, &view)

	tt := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: quiz.ErrNotMockSession.Error()}),
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/sessions/"+view.ID+"/finish", token)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_quizApi_progress(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	token := getToken(t, jane)

	// a fresh student has everything not started
	req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/progress", token)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var summaries []quiz.ProgressSummary
	decodeBody(t, rec, &summaries)
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %v; want 2", len(summaries))
	}
	for _, sum := range summaries {
		if sum.Status != quiz.ProgressNotStarted {
			t.Errorf("%s: Status = %v; want %v", sum.CategoryID, sum.Status, quiz.ProgressNotStarted)
		}
	}

	// answer one practice question and the category moves to in_progress
	req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/practice", token,
		marchallObj(t, startPracticeRequest{CategoryID: "road-signs"}))
	server.ServeHTTP(rec, req)
	var view quiz.View
	decodeBody(t, rec, &view)
	req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/sessions/"+view.ID+"/answer", token,
		marchallObj(t, answerRequest{Index: 1}))
	server.ServeHTTP(rec, req)

	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/progress/road-signs", token)
	server.ServeHTTP(rec, req)
	var sum quiz.ProgressSummary
	decodeBody(t, rec, &sum)
	if sum.Status != quiz.ProgressInProgress {
		t.Errorf("Status = %v; want %v", sum.Status, quiz.ProgressInProgress)
	}
	if sum.Answered != 1 || sum.Correct != 1 {
		t.Errorf("Answered = %v, Correct = %v; want 1, 1", sum.Answered, sum.Correct)
	}

	t.Run("unknown category", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/progress/nope", token)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
