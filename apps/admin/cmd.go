package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/bulletin/core/grading"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate requires the postgres storage")
)

type commandLine struct {
	db  *sqlx.DB // nil with the inmem storage
	svc *grading.Service
	out io.Writer
	fd  int // out's file descriptor, for terminal detection
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                      - run a goose command (up, down, status, ...)")
	fmt.Println("  ingest -file GRADES.csv                     - validate and record a batch of grades")
	fmt.Println("  bulletin -class CLASS -term TERM [-student] - print a bulletin, or the ranked class bulletins")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ingestCmd := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFile := ingestCmd.String("file", "", "CSV file: student_id,subject_id,term_id,kind,value[,recorded_at]")

	bulletinCmd := flag.NewFlagSet("bulletin", flag.ContinueOnError)
	bulletinClass := bulletinCmd.String("class", "", "The class id.")
	bulletinTerm := bulletinCmd.String("term", "", "The term id.")
	bulletinStudent := bulletinCmd.String("student", "", "The student id. All the class when empty.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "ingest":
		if err := ingestCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *ingestFile == "" {
			ingestCmd.Usage()
			return errHelp
		}
		return cli.ingest(*ingestFile)
	case "bulletin":
		if err := bulletinCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bulletinClass == "" || *bulletinTerm == "" {
			bulletinCmd.Usage()
			return errHelp
		}
		return cli.bulletin(*bulletinClass, *bulletinTerm, *bulletinStudent)
	default:
		cli.printUsage()
		return errHelp
	}
}
