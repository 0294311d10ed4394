package dummydb

import (
	"sync"

	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

type (
	DB struct {
		user         *userTable
		roster       *rosterTable
		child        *childTable
		attendance   *attendanceTable
		notification *notificationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	rosterTable struct {
		sync.RWMutex
		table map[string]*roster.Entity
	}

	childTable struct {
		sync.RWMutex
		table   map[string]*child.Child
		codeSeq int64
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Event
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		roster:       &rosterTable{table: make(map[string]*roster.Entity)},
		child:        &childTable{table: make(map[string]*child.Child)},
		attendance:   &attendanceTable{table: make(map[string]*attendance.Event)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
	return db, nil
}
