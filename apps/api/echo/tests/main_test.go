package tests

import (
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/jckckids/backend/apps/api/echo"
	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
	emailsvc "github.com/jckckids/backend/services/email"
	logsvc "github.com/jckckids/backend/services/logger"
	dummydb "github.com/jckckids/backend/storage/database/dummy"
)

var (
	app  *echoapi.Server
	conf *core.Config

	usrRepo    user.Repository
	rosterRepo roster.Repository
	chdRepo    child.Repository
	attRepo    attendance.Repository
	notifRepo  notification.Repository

	usrSvc    *user.Service
	rosterSvc *roster.Service
	chdSvc    *child.Service
	attSvc    *attendance.Service
	notifSvc  *notification.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		panic(err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	rosterRepo = dummydb.NewRosterRepository(db)
	chdRepo = dummydb.NewChildRepository(db)
	attRepo = dummydb.NewAttendanceRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)

	// set up services
	logger := logsvc.NewNopLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewServiceMock(usrRepo, mailSvc, conf)
	rosterSvc = roster.NewService(rosterRepo, usrRepo)
	chdSvc = child.NewService(chdRepo, rosterRepo, usrRepo)
	notifSvc = notification.NewService(notifRepo, chdRepo, logger)
	attSvc = attendance.NewServiceMock(attRepo, chdRepo, rosterRepo, usrRepo, notifSvc, conf)

	// set up validation
	validate := validator.New()
	eng := en.New()
	uni := ut.New(eng, eng)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		UserSvc:         usrSvc,
		ChildSvc:        chdSvc,
		RosterSvc:       rosterSvc,
		AttendanceSvc:   attSvc,
		NotificationSvc: notifSvc,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
	})

	os.Exit(m.Run())
}
