package main

import (
	"context"
	"fmt"

	"github.com/jckckids/backend/core/roster"
)

// seed creates the standard roster entities, skipping the ones already there.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	for _, kind := range []roster.Kind{roster.KindClass, roster.KindGroup, roster.KindSession} {
		created, err := cli.rosterSvc.Init(ctx, kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d created\n", kind, len(created))
	}
	return nil
}
