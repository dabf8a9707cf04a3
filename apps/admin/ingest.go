package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
)

var csvColumns = []string{"student_id", "subject_id", "term_id", "kind", "value", "recorded_at"}

// ingest records the grades of a CSV file and prints the ingestion result.
func (cli *commandLine) ingest(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening grades file")
	}
	defer func() { _ = f.Close() }()

	batch, err := readGrades(f)
	if err != nil {
		return err
	}
	res, err := cli.svc.Ingest(context.Background(), batch)
	if err != nil {
		if ebErr, ok := errors.Cause(err).(*grading.EmptyBatchError); ok {
			_ = cli.print(ebErr.Rejections)
		}
		return err
	}
	return cli.print(res)
}

// readGrades parses a CSV batch. The first row is a header naming the columns, in any order;
// recorded_at is optional (RFC 3339 or YYYY-MM-DD).
// A value that cannot be parsed is left empty, so that validation rejects its record;
// an unparsable recorded_at is treated as missing.
func readGrades(r io.Reader) ([]grading.NewGradeEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name, true /* lower */)] = i
	}
	for _, name := range csvColumns[:5] {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("CSV header: missing column %q", name)
		}
	}

	batch := make([]grading.NewGradeEntry, 0)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading CSV record")
		}
		cell := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		ne := grading.NewGradeEntry{
			StudentID: cell("student_id"),
			SubjectID: cell("subject_id"),
			TermID:    cell("term_id"),
			Kind:      grading.AssessmentKind(cell("kind")),
		}
		if recordedAt, err := grading.ParseDate(cell("recorded_at")); err == nil {
			ne.RecordedAt = recordedAt
		}
		if v, err := strconv.ParseFloat(strings.Replace(cell("value"), ",", ".", 1), 64); err == nil {
			ne.Value = &v
		}
		batch = append(batch, ne)
	}
	return batch, nil
}

func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	if isTerminalFunc(cli.fd) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
