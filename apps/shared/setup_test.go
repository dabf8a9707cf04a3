package shared

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/tests"
)

func TestOpenStorage_inmem(t *testing.T) {
	fixtures := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(fixtures, []byte(`{
		"subjects": [{"id": "maths", "class_id": "6A", "name": "Maths", "coefficient": 3}],
		"enrollments": {"6A": ["s1"]},
		"grades": [{"student_id": "s1", "subject_id": "maths", "term_id": "t1", "kind": "formative", "value": 13, "recorded_at": "2024-01-08T08:00:00Z"}]
	}`), 0o600))

	conf := testutil.NewConfig()
	conf.FixturesFile = fixtures

	storage, err := OpenStorage(conf, true)
	require.NoError(t, err)
	defer func() { assert.NoError(t, storage.Close()) }()
	assert.Nil(t, storage.DB)

	svc, _ := NewGradingService(conf, storage, nil, nil)
	blt, err := svc.Bulletin(context.Background(), "6A", "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 13.0, blt.Overall.Float64)
	assert.Equal(t, grading.DecisionAdmitted, blt.Decision)
}

func TestOpenStorage_errors(t *testing.T) {
	tests := []struct {
		name     string
		storage  string
		fixtures string
	}{
		{name: "unknown storage", storage: "mongo"},
		{name: "missing fixtures", storage: core.StorageInMem, fixtures: filepath.Join(t.TempDir(), "missing.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig()
			conf.Storage = tt.storage
			conf.FixturesFile = tt.fixtures

			if _, err := OpenStorage(conf, false); err == nil {
				t.Errorf("OpenStorage() error = nil; want error")
			}
		})
	}
}
