package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/jckckids/backend/apps/api/echo"
	"github.com/jckckids/backend/core/user"
)

func Test_authApi_register(t *testing.T) {
	reqMsg := "this field is required"

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"firstName":       reqMsg,
				"lastName":        reqMsg,
				"email":           reqMsg,
				"phoneNumber":     reqMsg,
				"password":        "password must contain at least 6 characters",
				"passwordConfirm": reqMsg,
			}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FirstName: "Ada", LastName: "Obi", Email: "lol", PhoneNumber: "+2348000000001",
				Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FirstName: "Ada", LastName: "Obi", Email: "ada.obi@test.cd", PhoneNumber: "+2348000000001",
				Password: testPassword, PasswordConfirm: "lolcat",
			}),
			wantData: marchallObj(t, map[string]string{"passwordConfirm": "passwordConfirm must be equal to Password"}),
		},
		{
			name: "registration succeeds as parent", wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				FirstName: "Ada", LastName: "Obi", Email: "ada.obi@test.cd", PhoneNumber: "+2348000000001",
				Password: testPassword, PasswordConfirm: testPassword,
				Role: user.RoleAdmin, // ignored; self-registration is always parent
			}),
		},
		{
			name: "duplicate email rejected", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				FirstName: "Ada", LastName: "Obi", Email: "ada.obi@test.cd", PhoneNumber: "+2348000000002",
				Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp echoapi.AuthResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				if resp.User.Role != user.RoleParent {
					t.Errorf("failed! role = %v; want %v", resp.User.Role, user.RoleParent)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_login(t *testing.T) {
	parent := createUser(t, "Chi", "Eze", user.RoleParent, true)
	naughty := createUser(t, "Naughty", "Dog", user.RoleParent, false)

	login := func(email, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "unknown email", body: login("ghost@test.cd", testPassword),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: login(parent.Email, "nope-nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: login(naughty.Email, testPassword),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login succeeds", body: login(parent.Email, testPassword), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp echoapi.AuthResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				if resp.User.ID != parent.ID {
					t.Errorf("failed! user ID = %v; want %v", resp.User.ID, parent.ID)
				}
				if resp.User.LastLogin.IsZero() {
					t.Error("failed! lastLogin not set")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_me(t *testing.T) {
	teacher := createUser(t, "Tee", "Cha", user.RoleTeacher, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own profile", token: getToken(t, teacher), wantCode: http.StatusOK, wantData: marchallObj(t, teacher)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/auth/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_changePassword(t *testing.T) {
	parent := createUser(t, "Pass", "Changer", user.RoleParent, true)
	token := getToken(t, parent)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "wrong current password", token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.ChangePassword{
				CurrentPassword: "nope-nope", NewPassword: "NewC@t456", PasswordConfirm: "NewC@t456",
			}),
			wantData: marchallObj(t, map[string]string{"currentPassword": "current password is incorrect"}),
		},
		{
			name: "password changed", token: token, wantCode: http.StatusOK,
			body: marchallObj(t, user.ChangePassword{
				CurrentPassword: testPassword, NewPassword: "NewC@t456", PasswordConfirm: "NewC@t456",
			}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been changed."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/api/auth/password"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the new password is live
	refreshed, err := usrSvc.GetByID(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if err := refreshed.CheckPassword("NewC@t456"); err != nil {
		t.Error("failed! new password does not verify")
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	parent := createUser(t, "Reset", "Often", user.RoleParent, true)
	validUID := user.EncodeUID(parent)
	validToken, err := usrSvc.MakeToken(parent)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	tests := []httpTest{
		{
			name: "invalid uid", path: "/api/auth/reset-password/" + validToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{UID: "bG9s", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", path: "/api/auth/reset-password/HE4TS-sigsig-sig", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "valid token", path: "/api/auth/reset-password/" + validToken, wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{UID: validUID, Password: "Fresh@Cat9", PasswordConfirm: "Fresh@Cat9"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	parent := createUser(t, "Refresh", "Me", user.RoleParent, true)
	naughty := createUser(t, "Still", "Naughty", user.RoleParent, false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   parent.ID,
			Audience:  "JCKKids",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Email:        parent.Email,
		Role:         parent.Role,
		IsParent:     true,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp echoapi.TokenResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Errorf("json.Unmarshal(): %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
