package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/asmaktab/backend/core/user"
)

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	referrer := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")

	t.Run("account created with referral", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name":        "Khadija Omar",
			"email":       "khadija@test.tn",
			"password":    "s3cret",
			"referred_by": referrer.ReferralCode,
		})
		req, rec := newRequest(http.MethodPost, "/api/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp struct {
			User  user.User `json:"user"`
			Token string    `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("no token issued")
		}
		if resp.User.ReferredBy != referrer.ID {
			t.Errorf("ReferredBy = %q; want %q", resp.User.ReferredBy, referrer.ID)
		}

		// the referrer's counter is already bumped
		ref, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: referrer.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if ref.ReferralCount != 1 {
			t.Errorf("ReferralCount = %d; want 1", ref.ReferralCount)
		}
	})

	t.Run("duplicate email refused", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name":     "Khadija Clone",
			"email":    "khadija@test.tn",
			"password": "s3cret",
		})
		req, rec := newRequest(http.MethodPost, "/api/users/register", body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	createUser(t, "Hassan Ka", "hassan@test.tn", "s3cret", "")

	t.Run("valid credentials", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "hassan@test.tn", "password": "s3cret"})
		req, rec := newRequest(http.MethodPost, "/api/users/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("no token issued")
		}
	})

	tests := []httpTest{
		{
			name: "wrong password", body: marchallObj(t, map[string]string{"email": "hassan@test.tn", "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown email", body: marchallObj(t, map[string]string{"email": "ghost@test.tn", "password": "s3cret"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_validateReferral(t *testing.T) {
	app := setup(t)

	referrer := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")
	current := createUser(t, "Khadija Omar", "khadija@test.tn", "pwd", "")
	token := getToken(t, current)

	path := func(code string) string {
		return "/api/users/validate-referral?code=" + url.QueryEscape(code)
	}

	tests := []httpTest{
		{name: "Auth required", path: path(referrer.ReferralCode), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "valid code", path: path(referrer.ReferralCode), token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"referrerId": referrer.ID}),
		},
		{
			name: "own code", path: path(current.ReferralCode), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrSelfReferral.Error()}),
		},
		{
			name: "unknown code", path: path("NOONE0000"), token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCode.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_setRole(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "Admin", "admin@test.tn", "pwd", user.RoleAdmin)
	usr := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")

	path := "/api/users/" + usr.ID + "/role"
	body := marchallObj(t, map[string]string{"role": user.RoleTutor})

	tests := []httpTest{
		{name: "Auth required", path: path, body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: path, body: body, token: getToken(t, usr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid role", path: path, body: marchallObj(t, map[string]string{"role": "superhero"}),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPatch, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("role updated", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		stored, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: usr.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if stored.Role != user.RoleTutor {
			t.Errorf("Role = %q; want %q", stored.Role, user.RoleTutor)
		}
	})
}
