package main

import (
	"fmt"
	"log"
	"os"

	dig_container "github.com/YKZSolutions/MMDC-Student-Portal-sub002/apps/api/di/dig"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

func main() {
	var runErr error

	c := dig_container.New()
	err := c.Invoke(func(
		closeDB dig_container.DBCloser,
		migrate dig_container.Migrator,
		usrRepo user.Repository,
		billingSvc billing.Service,
		lmsSvc lms.Service,
	) {
		defer closeDB()

		cli := commandLine{
			usrRepo:    usrRepo,
			billingSvc: billingSvc,
			lmsSvc:     lmsSvc,
			migrate:    migrateFunc(migrate),
			out:        os.Stdout,
		}
		runErr = cli.run(os.Args[1:])
	})
	if err != nil {
		log.Fatal(err)
	}
	if runErr != nil {
		if runErr != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", runErr)
		}
		os.Exit(1)
	}
}
