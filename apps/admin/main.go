package main

import (
	"log"
	"os"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/storage/database"
	gormdb "github.com/jckckids/backend/storage/database/gorm"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	usrRepo := gormdb.NewUserRepository(db)
	rosterRepo := gormdb.NewRosterRepository(db)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db,
		usrRepo:   usrRepo,
		rosterSvc: roster.NewService(rosterRepo, usrRepo),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
