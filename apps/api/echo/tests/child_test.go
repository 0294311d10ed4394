package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

func Test_childApi_create(t *testing.T) {
	admin := createUser(t, "Admin", "Registrar", user.RoleAdmin, true)
	parent := createUser(t, "Parent", "Okafor", user.RoleParent, true)
	cls := createEntity(t, roster.KindClass, "Nasareth Gem")

	newChild := func(fname, parentID string) []byte {
		return marchallObj(t, child.NewChild{
			FirstName:   fname,
			LastName:    "Okafor",
			DateOfBirth: "2019-05-10",
			Gender:      "female",
			ClassID:     cls.ID,
			ParentID:    parentID,
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: newChild("Amara", parent.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "staff must name a parent", token: getToken(t, admin), body: newChild("Amara", ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parentId": "parentId is required"}),
		},
		{
			name: "unknown parent", token: getToken(t, admin), body: newChild("Amara", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parentId": "please select a parent for the child"}),
		},
		{name: "staff registers", token: getToken(t, admin), body: newChild("Amara", parent.ID), wantCode: http.StatusCreated},
		{name: "parent registers own", token: getToken(t, parent), body: newChild("Ngozi", ""), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/children"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				var chd child.Detail
				if err := json.Unmarshal(rec.Body.Bytes(), &chd); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if chd.Code == "" {
					t.Error("failed! no unique code assigned")
				}
				if chd.ParentID != parent.ID {
					t.Errorf("failed! parentId = %v; want %v", chd.ParentID, parent.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// both children are linked to the parent
	refreshed, err := usrRepo.GetUserByID(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	if len(refreshed.ChildIDs) != 2 {
		t.Errorf("failed! parent has %d linked children; want 2", len(refreshed.ChildIDs))
	}
}

func Test_childApi_search(t *testing.T) {
	admin := createUser(t, "Admin", "Finder", user.RoleAdmin, true)
	parent := createUser(t, "Parent", "Adeyemi", user.RoleParent, true)
	cls := createEntity(t, roster.KindClass, "Daniel Stars")
	chd := createChild(t, "Tunde", parent, cls)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "no query params", path: "/api/children/search", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "provide a code or phone query parameter"}),
		},
		{
			name: "unknown code", path: "/api/children/search?code=JCKC-0000-000",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "by code", path: "/api/children/search?code=" + chd.Code,
			wantCode: http.StatusOK, wantData: marchallList(t, chd),
		},
		{
			name: "by parent phone", path: "/api/children/search?phone=" + url.QueryEscape(parent.PhoneNumber),
			wantCode: http.StatusOK, wantData: marchallList(t, chd),
		},
		{
			name: "unknown phone", path: "/api/children/search?phone=%2B23499999999999",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.token = adminToken

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_childApi_parentAccess(t *testing.T) {
	admin := createUser(t, "Admin", "Gate", user.RoleAdmin, true)
	parent := createUser(t, "Parent", "Bello", user.RoleParent, true)
	otherParent := createUser(t, "Other", "Parent", user.RoleParent, true)
	cls := createEntity(t, roster.KindClass, "Galilee Men")
	chd := createChild(t, "Sade", parent, cls)

	tests := []httpTest{
		{name: "staff sees any child", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, chd)},
		{name: "parent sees own child", token: getToken(t, parent), wantCode: http.StatusOK, wantData: marchallObj(t, chd)},
		{
			name: "other parent sees nothing", token: getToken(t, otherParent),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/children/" + chd.ID

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// a parent cannot move their child between classes
	req, rec := newAuthRequest(http.MethodPut, "/api/children/"+chd.ID, getToken(t, parent),
		marchallObj(t, map[string]string{"classId": "some-other-class"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	// but may update medical details
	allergies := "peanuts"
	req, rec = newAuthRequest(http.MethodPut, "/api/children/"+chd.ID, getToken(t, parent),
		marchallObj(t, child.UpdateChild{Allergies: &allergies}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated child.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if updated.Allergies != allergies {
		t.Errorf("failed! allergies = %v; want %v", updated.Allergies, allergies)
	}
}

func Test_childApi_rosterMoves(t *testing.T) {
	admin := createUser(t, "Admin", "Mover", user.RoleAdmin, true)
	parent := createUser(t, "Parent", "Musa", user.RoleParent, true)
	clsA := createEntity(t, roster.KindClass, "Nasareth Gem")
	clsB := createEntity(t, roster.KindClass, "Faith Builders")
	grp := createEntity(t, roster.KindGroup, "Dance Crew")
	chd := createChild(t, "Ibrahim", parent, clsA)
	adminToken := getToken(t, admin)

	// transfer class
	req, rec := newAuthRequest(http.MethodPut, "/api/children/"+chd.ID+"/transfer-class", adminToken,
		marchallObj(t, map[string]string{"classId": clsB.ID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var moved child.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if moved.ClassID != clsB.ID {
		t.Errorf("failed! classId = %v; want %v", moved.ClassID, clsB.ID)
	}

	// join group
	req, rec = newAuthRequest(http.MethodPut, "/api/children/"+chd.ID+"/join-group", adminToken,
		marchallObj(t, map[string]string{"groupId": grp.ID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// joining twice is rejected
	req, rec = newAuthRequest(http.MethodPut, "/api/children/"+chd.ID+"/join-group", adminToken,
		marchallObj(t, map[string]string{"groupId": grp.ID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// group roster now has the child
	req, rec = newAuthRequest(http.MethodGet, "/api/children/group/"+grp.ID, adminToken)
	app.ServeHTTP(rec, req)
	var members []child.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &members); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(members) != 1 || members[0].ID != chd.ID {
		t.Errorf("failed! group roster = %v", members)
	}

	// leave group
	req, rec = newAuthRequest(http.MethodPut, "/api/children/"+chd.ID+"/leave-group", adminToken,
		marchallObj(t, map[string]string{"groupId": grp.ID}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("leave failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// class roster follows the transfer
	req, rec = newAuthRequest(http.MethodGet, "/api/children/class/"+clsA.ID, adminToken)
	app.ServeHTTP(rec, req)
	var old []child.Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &old); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(old) != 0 {
		t.Errorf("failed! old class roster = %v; want empty", old)
	}
}
