package user

import (
	"github.com/jckckids/backend/core"
)

// NewServiceMock returns a Service that sends mails synchronously
// so tests can assert on the outbox right after the call returns.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf, syncMail: true}
}
