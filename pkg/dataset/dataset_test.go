package dataset

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const jsonDataset = `{
  "groups": [
    {"group": "NL", "correlation": "corr", "subjects": [
      {"id": "nl-1", "matrix": [[0, 0.5, 0.1], [0.2, 0, 0.3], [0.4, 0.6, 0]]},
      {"matrix": [[0, 1, 0], [0, 0, 1], [1, 0, 0]]}
    ]},
    {"group": "AD", "correlation": "corr", "subjects": []}
  ]
}`

const yamlDataset = `
groups:
  - group: MCI
    correlation: lcorr
    subjects:
      - id: mci-1
        matrix:
          - [0, 0.5]
          - [0.25, 0]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	ds, err := Load(writeFile(t, "data.json", jsonDataset))
	require.NoError(t, err)

	assert.Equal(t, []GroupKey{{"NL", "corr"}, {"AD", "corr"}}, ds.Keys())

	subjects, ok := ds.Lookup(GroupKey{"NL", "corr"})
	require.True(t, ok)
	require.Len(t, subjects, 2)
	assert.Equal(t, "nl-1", subjects[0].ID)
	assert.Equal(t, "NL-001", subjects[1].ID)
	assert.Equal(t, 0.6, subjects[0].Matrix.At(2, 1))

	_, ok = ds.Lookup(GroupKey{"CONVERT", "corr"})
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	ds, err := Load(writeFile(t, "data.yaml", yamlDataset))
	require.NoError(t, err)

	subjects, ok := ds.Lookup(GroupKey{"MCI", "lcorr"})
	require.True(t, ok)
	require.Len(t, subjects, 1)
	assert.Equal(t, 0.25, subjects[0].Matrix.At(1, 0))
}

func TestLoadRejectsInvalidMatrices(t *testing.T) {
	cases := map[string]string{
		"ragged":   `{"groups":[{"group":"NL","correlation":"corr","subjects":[{"matrix":[[0,1],[1]]}]}]}`,
		"diagonal": `{"groups":[{"group":"NL","correlation":"corr","subjects":[{"matrix":[[1,1],[1,0]]}]}]}`,
		"negative": `{"groups":[{"group":"NL","correlation":"corr","subjects":[{"matrix":[[0,-1],[1,0]]}]}]}`,
		"empty":    `{"groups":[{"group":"NL","correlation":"corr","subjects":[{"matrix":[]}]}]}`,
		"no label": `{"groups":[{"group":"","correlation":"corr","subjects":[]}]}`,
		"dup":      `{"groups":[{"group":"NL","correlation":"c"},{"group":"NL","correlation":"c"}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.json", content))
			assert.Error(t, err)
		})
	}
}

func TestAddReplacesGroup(t *testing.T) {
	ds := &Dataset{}
	key := GroupKey{"NL", "corr"}
	ds.Add(key, []Subject{{ID: "a"}})
	ds.Add(key, []Subject{{ID: "b"}, {ID: "c"}})

	subjects, ok := ds.Lookup(key)
	require.True(t, ok)
	assert.Len(t, subjects, 2)
	assert.Len(t, ds.Groups, 1)
}

func TestRandomMatrices(t *testing.T) {
	subjects := RandomMatrices(3, 10, rand.New(rand.NewSource(1)))
	require.Len(t, subjects, 3)

	for _, s := range subjects {
		r, c := s.Matrix.Dims()
		assert.Equal(t, 10, r)
		assert.Equal(t, 10, c)
		assert.NoError(t, ValidateMatrix(s.Matrix))
		assert.Zero(t, mat.Trace(s.Matrix))
	}
	assert.Equal(t, "rand-000", subjects[0].ID)
}
