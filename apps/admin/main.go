package main

import (
	"log"
	"os"

	"github.com/trezcool/bulletin/apps/shared"
	"github.com/trezcool/bulletin/core"
	logsvc "github.com/trezcool/bulletin/services/logger"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up storage; migrations are left to the migrate command
	storage, err := shared.OpenStorage(conf, false /* migrate */)
	errAndDie(err)

	mailSvc := shared.NewMailer(conf, logger, os.Stderr)
	gradingSvc, _ := shared.NewGradingService(conf, storage, mailSvc, logger)

	// start CLI
	cli := commandLine{
		db:  storage.DB,
		svc: gradingSvc,
		out: os.Stdout,
		fd:  int(os.Stdout.Fd()),
	}
	err = cli.run(os.Args)
	_ = storage.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
