package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *testutil.Env) {
	env := testutil.NewEnv(t)
	testutil.SeedClass(t, env.DB)

	var out bytes.Buffer
	origIsTerminal := isTerminalFunc
	isTerminalFunc = func(fd int) bool { return false }
	t.Cleanup(func() { isTerminalFunc = origIsTerminal })

	return &commandLine{svc: env.Svc, out: &out, fd: -1}, &out, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "ingest: no file", args: []string{"ingest"}, wantErr: errHelp},
		{name: "bulletin: no class", args: []string{"bulletin", "-term", "t1"}, wantErr: errHelp},
		{name: "bulletin: no term", args: []string{"bulletin", "-class", "6A"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no database", args: []string{"migrate", "up"}, wantErr: errNoDatabase},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	cli.db = &sqlx.DB{}
	origRun := gooseRunFunc
	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { gooseRunFunc = origRun }()

	tests = []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "report_cards", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func writeCSV(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_commandLine_ingest(t *testing.T) {
	cli, out, env := setup(t)

	path := writeCSV(t, strings.Join([]string{
		"student_id, subject_id, term_id, kind, value, recorded_at",
		"s3, maths, t1, Devoir, 25, 2024-01-10",
		"s3, maths, t1, Examen, \"13,5\", 2024-01-12T09:00:00Z",
		"s3, french, t1, Interrogation, abc,",
		"s3, french, t1, Contrôle, 11,",
	}, "\n"))

	require.NoError(t, cli.run([]string{"admin", "ingest", "-file", path}))

	var res grading.IngestionResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 2, res.Rejected)
	require.Len(t, res.Rejections, 2)
	assert.Equal(t, 0, res.Rejections[0].Index)
	assert.Equal(t, 2, res.Rejections[1].Index)
	assert.Equal(t, map[string]string{"value": "this field is required"}, res.Rejections[1].Fields)

	blt, err := env.Svc.Bulletin(context.Background(), testutil.ClassID, "t1", "s3")
	require.NoError(t, err)
	assert.Equal(t, 13.5, blt.Rows[0].Average.Float64)
	assert.Equal(t, 11.0, blt.Rows[1].Average.Float64)
}

func Test_commandLine_ingest_errors(t *testing.T) {
	cli, out, _ := setup(t)

	tests := []cliTest{
		{name: "missing file", args: []string{"ingest", "-file", filepath.Join(t.TempDir(), "nope.csv")}},
		{name: "missing column", args: []string{"ingest", "-file", writeCSV(t, "student_id,subject_id,term_id,kind\ns1,maths,t1,devoir\n")}, wantErrStr: "CSV header: missing column \"value\""},
		{name: "nothing to save", args: []string{"ingest", "-file", writeCSV(t, "student_id,subject_id,term_id,kind,value\ns1,maths,t1,devoir,21\n")}, wantErrStr: "nothing to save: 1 record(s) rejected"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr == "" {
				assert.Error(t, err)
				return
			}
			checkErr(t, tt, err)
		})
	}
	assert.Contains(t, out.String(), "grade must be between 0 and 20", "rejections are printed")
}

func Test_commandLine_bulletin(t *testing.T) {
	cli, out, env := setup(t)

	require.NoError(t, cli.run([]string{"admin", "bulletin", "-class", "6A", "-term", "t1", "-student", "s1"}))
	var blt grading.Bulletin
	require.NoError(t, json.Unmarshal(out.Bytes(), &blt))
	want, err := env.Svc.Bulletin(context.Background(), "6A", "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, want, blt)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"), "compact output when not a terminal")

	out.Reset()
	isTerminalFunc = func(fd int) bool { return true }
	require.NoError(t, cli.run([]string{"admin", "bulletin", "-class", "6A", "-term", "t1"}))
	var bulletins []grading.Bulletin
	require.NoError(t, json.Unmarshal(out.Bytes(), &bulletins))
	require.Len(t, bulletins, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{bulletins[0].Rank, bulletins[1].Rank, bulletins[2].Rank})
	assert.True(t, strings.HasPrefix(out.String(), "[\n  {"), "indented output on a terminal")
}
