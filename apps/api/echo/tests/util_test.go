package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/jckckids/backend/apps/api/echo"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

const testPassword = "LolC@t123"

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

// seq keeps fixture emails, phone numbers and entity names unique since the
// in-memory DB is shared by the whole package.
var seq int

func nextSeq() int {
	seq++
	return seq
}

func createUser(t *testing.T, fname, lname, role string, isActive bool) user.User {
	t.Helper()
	n := nextSeq()
	now := time.Now().UTC()
	usr := user.User{
		FirstName:   fname,
		LastName:    lname,
		Email:       fmt.Sprintf("%s%d@test.cd", strings.ToLower(fname), n),
		PhoneNumber: fmt.Sprintf("+23480%08d", n),
		Role:        role,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(testPassword); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func createEntity(t *testing.T, kind roster.Kind, name string) roster.Entity {
	t.Helper()
	ent, err := rosterSvc.Create(context.Background(), kind, roster.NewEntity{
		Name: fmt.Sprintf("%s %d", name, nextSeq()),
	})
	if err != nil {
		t.Fatalf("rosterSvc.Create(): %v", err)
	}
	return ent
}

func createChild(t *testing.T, fname string, parent user.User, class roster.Entity, groupIDs ...string) child.Detail {
	t.Helper()
	chd, err := chdSvc.Register(context.Background(), child.NewChild{
		FirstName:   fname,
		LastName:    parent.LastName,
		DateOfBirth: "2019-05-10",
		Gender:      "male",
		ClassID:     class.ID,
		GroupIDs:    groupIDs,
	}, parent.ID)
	if err != nil {
		t.Fatalf("chdSvc.Register(): %v", err)
	}
	return chd
}

// assignTeacher mirrors the assignment into the teacher's own record and
// returns the refreshed teacher.
func assignTeacher(t *testing.T, kind roster.Kind, entityID string, teacher user.User) user.User {
	t.Helper()
	if _, err := rosterSvc.AssignTeacher(context.Background(), kind, entityID, teacher.ID); err != nil {
		t.Fatalf("rosterSvc.AssignTeacher(): %v", err)
	}
	usr, err := usrRepo.GetUserByID(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	return usr
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
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
