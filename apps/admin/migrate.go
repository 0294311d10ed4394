package main

import "github.com/jckckids/backend/storage/database"

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db, cli.conf.Timezone)
}
