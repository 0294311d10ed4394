package database

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jckckids/backend/core"
	gormdb "github.com/jckckids/backend/storage/database/gorm"
)

// Open connects to the configured postgres database.
func Open(conf *core.Config) (*gorm.DB, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		conf.Database.Host, conf.Database.Port, conf.Database.User, conf.Database.Password, conf.Database.Name, sslMode,
	)

	logLevel := logger.Silent
	if conf.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	return db, nil
}

// Migrate brings the schema up to date and installs the bits AutoMigrate
// cannot express: the child code sequence and the one-roll-call-per-day
// backstop index. loc is the reference timezone for day boundaries.
func Migrate(db *gorm.DB, loc *time.Location) error {
	if err := gormdb.AutoMigrate(db); err != nil {
		return errors.Wrap(err, "migrating schema")
	}
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS child_code_seq").Error; err != nil {
		return errors.Wrap(err, "creating child code sequence")
	}
	// the duplicate-day check in the service is not race-free; this makes the
	// guarantee hard at the store level
	if err := db.Exec(attendanceDayIndexSQL(loc)).Error; err != nil {
		return errors.Wrap(err, "creating attendance day index")
	}
	return nil
}

// attendanceDayIndexSQL builds the unique index on (kind, target, day).
// A bare date::date cast is rejected in an index expression because it reads
// the session TimeZone; the two-argument timezone() is immutable and pins the
// day boundary to the reference timezone the service uses.
func attendanceDayIndexSQL(loc *time.Location) string {
	return fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_events_target_day "+
			"ON attendance_events (kind, target_id, ((timezone('%s', date))::date))",
		loc.String(),
	)
}
