package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/asmaktab/backend/core/family"
	"github.com/asmaktab/backend/core/user"
)

var groupCodeRegex = regexp.MustCompile(`^FAM-[0-9A-Z]{6}$`)

func createApprovedGroup(t *testing.T, ownerID string, discount float64) string {
	ctx := context.Background()
	groupID, err := famSvc.CreateGroup(ctx, ownerID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	if err := famSvc.ApproveGroup(ctx, groupID, discount); err != nil {
		t.Fatalf("ApproveGroup(): %v", err)
	}
	return groupID
}

func Test_familyApi_createGroup(t *testing.T) {
	app := setup(t)

	owner := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")
	token := getToken(t, owner)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/family/groups")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("group created pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/family/groups", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp struct {
			GroupID string `json:"groupId"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !groupCodeRegex.MatchString(resp.GroupID) {
			t.Errorf("groupId = %q; does not match %v", resp.GroupID, groupCodeRegex)
		}

		stored, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: owner.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if stored.FamilyGroup == nil || stored.FamilyGroup.Status != user.GroupStatusPending {
			t.Errorf("FamilyGroup = %+v; want pending group", stored.FamilyGroup)
		}
	})

	t.Run("second group refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/family/groups", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: family.ErrAlreadyInGroup.Error()}),
		}, rec)
	})
}

func Test_familyApi_joinGroup(t *testing.T) {
	app := setup(t)

	owner := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")
	joiner := createUser(t, "Khadija Omar", "khadija@test.tn", "pwd", "")
	token := getToken(t, joiner)

	groupID, err := famSvc.CreateGroup(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	joinPath := "/api/family/groups/" + groupID + "/join"

	t.Run("pending group refuses joiners", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, joinPath, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: family.ErrGroupNotApproved.Error()}),
		}, rec)
	})

	if err := famSvc.ApproveGroup(context.Background(), groupID, 10); err != nil {
		t.Fatalf("ApproveGroup(): %v", err)
	}

	t.Run("request queued", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, joinPath, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("duplicate request refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, joinPath, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: family.ErrDuplicateRequest.Error()}),
		}, rec)
	})

	t.Run("unknown group", func(t *testing.T) {
		other := createUser(t, "Sara Noor", "sara@test.tn", "pwd", "")
		req, rec := newAuthRequest(http.MethodPost, "/api/family/groups/FAM-ZZZZZZ/join", getToken(t, other))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: family.ErrGroupNotFound.Error()}),
		}, rec)
	})
}

func Test_familyApi_approveRequest(t *testing.T) {
	app := setup(t)

	owner := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")
	joiner := createUser(t, "Khadija Omar", "khadija@test.tn", "pwd", "")
	outsider := createUser(t, "Sara Noor", "sara@test.tn", "pwd", "")
	admin := createUser(t, "Admin", "admin@test.tn", "pwd", user.RoleAdmin)

	groupID := createApprovedGroup(t, owner.ID, 10)
	if err := famSvc.JoinGroup(context.Background(), groupID, joiner.ID); err != nil {
		t.Fatalf("JoinGroup(): %v", err)
	}

	approvePath := "/api/family/groups/" + groupID + "/approve"
	body := marchallObj(t, map[string]string{"userId": joiner.ID})

	t.Run("outsider forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, approvePath, getToken(t, outsider), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("owner approves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, approvePath, getToken(t, owner), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var member user.GroupMember
		if err := json.Unmarshal(rec.Body.Bytes(), &member); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if member.UserID != joiner.ID {
			t.Errorf("member.UserID = %q; want %q", member.UserID, joiner.ID)
		}
	})

	t.Run("admin approves a consumed request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, approvePath, getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: family.ErrRequestNotFound.Error()}),
		}, rec)
	})
}

func Test_familyApi_approveGroup(t *testing.T) {
	app := setup(t)

	owner := createUser(t, "Hassan Ka", "hassan@test.tn", "pwd", "")
	admin := createUser(t, "Admin", "admin@test.tn", "pwd", user.RoleAdmin)

	groupID, err := famSvc.CreateGroup(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	path := "/api/family/groups/" + groupID + "/approve-group"
	body := marchallObj(t, map[string]float64{"discount": 20})

	tests := []httpTest{
		{name: "Auth required", path: path, body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: path, body: body, token: getToken(t, owner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "discount out of range", path: path, body: marchallObj(t, map[string]float64{"discount": 101}),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"discount": "discount must be between 0 and 100"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("approved with discount", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		stored, err := usrRepo.GetGroupOwner(req.Context(), groupID)
		if err != nil {
			t.Fatalf("GetGroupOwner(): %v", err)
		}
		if stored.FamilyGroup.Status != user.GroupStatusApproved || stored.FamilyGroup.Discount != 20 {
			t.Errorf("FamilyGroup = %+v; want approved with discount 20", stored.FamilyGroup)
		}
	})
}
