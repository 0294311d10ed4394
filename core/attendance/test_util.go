package attendance

import (
	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

// NewServiceMock returns a Service that runs the notification fan-out inline
// so tests can assert on it deterministically.
func NewServiceMock(repo Repository, chdRepo child.Repository, rosterRepo roster.Repository, usrRepo user.Repository, notifier Notifier, conf *core.Config) *Service {
	svc := NewService(repo, chdRepo, rosterRepo, usrRepo, notifier, conf)
	svc.syncNotify = true
	return svc
}
