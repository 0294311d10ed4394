package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/jckckids/backend/apps/api/echo"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/user"
)

func Test_notificationApi_inbox(t *testing.T) {
	admin := createUser(t, "Admin", "Announcer", user.RoleAdmin, true)
	parent := createUser(t, "Parent", "Inbox", user.RoleParent, true)
	other := createUser(t, "Other", "Inbox", user.RoleParent, true)
	adminToken := getToken(t, admin)
	parentToken := getToken(t, parent)

	// parents cannot send
	req, rec := newAuthRequest(http.MethodPost, "/api/notifications", parentToken,
		marchallObj(t, notification.NewNotification{RecipientID: other.ID, Title: "Nope", Body: "nope"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	// staff sends two to the parent, one to the other parent
	send := func(recipientID, title string) notification.Notification {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/api/notifications", adminToken,
			marchallObj(t, notification.NewNotification{RecipientID: recipientID, Title: title, Body: "See you Sunday!"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("send failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var notif notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notif); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		return notif
	}
	first := send(parent.ID, "Harvest Sunday")
	second := send(parent.ID, "Choir practice")
	send(other.ID, "Pickup reminder")

	// the inbox only holds the caller's notifications, newest first
	req, rec = newAuthRequest(http.MethodGet, "/api/notifications", parentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var inbox notification.Inbox
	if err := json.Unmarshal(rec.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(inbox.Notifications) != 2 || inbox.UnreadCount != 2 {
		t.Fatalf("failed! inbox = %d notifications, %d unread; want 2, 2", len(inbox.Notifications), inbox.UnreadCount)
	}
	if inbox.Notifications[0].ID != second.ID {
		t.Errorf("failed! first inbox item = %v; want %v", inbox.Notifications[0].ID, second.ID)
	}
	if inbox.Notifications[0].Type != notification.TypeAnnouncement {
		t.Errorf("failed! type = %v; want %v", inbox.Notifications[0].Type, notification.TypeAnnouncement)
	}

	// mark one read
	req, rec = newAuthRequest(http.MethodPut, "/api/notifications/"+first.ID+"/read", parentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("markRead failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var read notification.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &read); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if !read.IsRead || read.ReadAt == nil {
		t.Errorf("failed! notification not marked read: %+v", read)
	}

	// unreadOnly filter
	req, rec = newAuthRequest(http.MethodGet, "/api/notifications?unreadOnly=true", parentToken)
	app.ServeHTTP(rec, req)
	inbox = notification.Inbox{}
	if err := json.Unmarshal(rec.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(inbox.Notifications) != 1 || inbox.Notifications[0].ID != second.ID {
		t.Errorf("failed! unread inbox = %+v", inbox.Notifications)
	}

	// another user's notification is out of reach
	req, rec = newAuthRequest(http.MethodPut, "/api/notifications/"+first.ID+"/read", getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

	// read-all then delete
	req, rec = newAuthRequest(http.MethodPut, "/api/notifications/read-all", parentToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, echoapi.SuccessResponse{Success: "All notifications marked as read."}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/api/notifications/"+first.ID, parentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete failed! code = %v", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/notifications", parentToken)
	app.ServeHTTP(rec, req)
	inbox = notification.Inbox{}
	if err := json.Unmarshal(rec.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(inbox.Notifications) != 1 || inbox.UnreadCount != 0 {
		t.Errorf("failed! inbox = %d notifications, %d unread; want 1, 0", len(inbox.Notifications), inbox.UnreadCount)
	}
}

func Test_notificationApi_sendBulk(t *testing.T) {
	admin := createUser(t, "Admin", "Broadcaster", user.RoleAdmin, true)
	p1 := createUser(t, "Bulk", "One", user.RoleParent, true)
	p2 := createUser(t, "Bulk", "Two", user.RoleParent, true)

	req, rec := newAuthRequest(http.MethodPost, "/api/notifications/bulk", getToken(t, admin),
		marchallObj(t, notification.BulkNotification{
			RecipientIDs: []string{p1.ID, p2.ID},
			Title:        "Service moved",
			Body:         "We start at 9am this week.",
		}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.BulkSendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if resp.Sent != 2 {
		t.Errorf("failed! sent = %d; want 2", resp.Sent)
	}
}
