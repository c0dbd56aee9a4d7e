package echoapi

import (
	"net/http"
	"testing"

	"github.com/roadmasterhq/roadmaster/core/user"
)

func Test_userApi_login(t *testing.T) {
	server := setup(t)

	createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	createUser(t, "gone", "gone@test.cd", "LocalHer0!", user.StudentRoles, false)

	tests := []httpTest{
		{
			name:     "empty credentials",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "nobody", Password: "LocalHer0!"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: "jane", Password: "wr0ng"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: "gone", Password: "LocalHer0!"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login by username",
			body:     marchallObj(t, LoginRequest{Username: "jane", Password: "LocalHer0!"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login by email",
			body:     marchallObj(t, LoginRequest{Username: "JANE@test.cd", Password: "LocalHer0!"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Errorf("failed! empty token in %s", rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "admin", "admin@test.cd", "LocalHer0!", user.AllRoles, true)
	student := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	instructor := createUser(t, "mike", "mike@test.cd", "LocalHer0!", user.InstructorRoles, true)

	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name:     "auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "admin only",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin lists all users",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{admin, student, instructor}),
		},
		{
			name:     "search filters",
			path:     "?search=mike",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{instructor}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users"+tt.path, tt.token)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRetrieve(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "admin", "admin@test.cd", "LocalHer0!", user.AllRoles, true)
	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	mike := createUser(t, "mike", "mike@test.cd", "LocalHer0!", user.StudentRoles, true)

	tests := []httpTest{
		{
			name:     "auth required",
			path:     "/v1/users/" + jane.ID,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "own account",
			path:     "/v1/users/" + jane.ID,
			token:    getToken(t, jane),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, jane),
		},
		{
			name:     "someone else's account is hidden",
			path:     "/v1/users/" + mike.ID,
			token:    getToken(t, jane),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin sees all",
			path:     "/v1/users/" + mike.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, mike),
		},
		{
			name:     "unknown ID",
			path:     "/v1/users/nope",
			token:    getToken(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userUpdate(t *testing.T) {
	server := setup(t)

	jane := createUser(t, "jane", "jane@test.cd", "LocalHer0!", user.StudentRoles, true)
	janeToken := getToken(t, jane)

	isActive := false
	tests := []httpTest{
		{
			name:     "non-admin cannot change roles",
			body:     marchallObj(t, user.UpdateUser{Roles: user.AllRoles}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "non-admin cannot change activation",
			body:     marchallObj(t, user.UpdateUser{IsActive: &isActive}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "non-admin cannot change username",
			body:     marchallObj(t, user.UpdateUser{Username: "june"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+jane.ID, janeToken, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
