package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// GraphSize is the node count of the subject correlation graphs
const GraphSize = 88

// RandomGroup labels the uniform random baseline group
const RandomGroup = "rand"

// GroupKey identifies one clinical group under one correlation kind
type GroupKey struct {
	Group       string `json:"group" yaml:"group"`
	Correlation string `json:"correlation" yaml:"correlation"`
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s", k.Group, k.Correlation)
}

// Subject is one subject's weighted correlation matrix
type Subject struct {
	ID     string
	Matrix *mat.Dense
}

// Group holds the subjects of one GroupKey in iteration order
type Group struct {
	Key      GroupKey
	Subjects []Subject
}

// Dataset is the fixed in-memory set of subject matrices for one run
type Dataset struct {
	Groups []Group
}

// Lookup returns the subjects of a group
func (d *Dataset) Lookup(key GroupKey) ([]Subject, bool) {
	for _, g := range d.Groups {
		if g.Key == key {
			return g.Subjects, true
		}
	}
	return nil, false
}

// Keys returns group keys in file order
func (d *Dataset) Keys() []GroupKey {
	keys := make([]GroupKey, len(d.Groups))
	for i, g := range d.Groups {
		keys[i] = g.Key
	}
	return keys
}

// Add appends a group, replacing an existing one with the same key
func (d *Dataset) Add(key GroupKey, subjects []Subject) {
	for i, g := range d.Groups {
		if g.Key == key {
			d.Groups[i].Subjects = subjects
			return
		}
	}
	d.Groups = append(d.Groups, Group{Key: key, Subjects: subjects})
}

type fileSubject struct {
	ID     string      `json:"id" yaml:"id"`
	Matrix [][]float64 `json:"matrix" yaml:"matrix"`
}

type fileGroup struct {
	Group       string        `json:"group" yaml:"group"`
	Correlation string        `json:"correlation" yaml:"correlation"`
	Subjects    []fileSubject `json:"subjects" yaml:"subjects"`
}

type fileDataset struct {
	Groups []fileGroup `json:"groups" yaml:"groups"`
}

// Load reads a dataset from a JSON or YAML file, chosen by extension
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dataset file")
	}

	var raw fileDataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse dataset YAML")
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse dataset JSON")
		}
	}

	ds := &Dataset{}
	for _, fg := range raw.Groups {
		key := GroupKey{Group: fg.Group, Correlation: fg.Correlation}
		if key.Group == "" {
			return nil, errors.New("group label cannot be empty")
		}
		if _, exists := ds.Lookup(key); exists {
			return nil, errors.Newf("duplicate group %s", key)
		}

		subjects := make([]Subject, 0, len(fg.Subjects))
		for i, fs := range fg.Subjects {
			m, err := toDense(fs.Matrix)
			if err != nil {
				return nil, errors.Wrapf(err, "group %s subject %d", key, i)
			}
			if err := ValidateMatrix(m); err != nil {
				return nil, errors.Wrapf(err, "group %s subject %d", key, i)
			}
			id := fs.ID
			if id == "" {
				id = fmt.Sprintf("%s-%03d", key.Group, i)
			}
			subjects = append(subjects, Subject{ID: id, Matrix: m})
		}
		ds.Groups = append(ds.Groups, Group{Key: key, Subjects: subjects})
	}

	return ds, nil
}

func toDense(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.New("matrix is empty")
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, errors.Newf("row %d has %d entries, expected %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}

// ValidateMatrix checks that m is square, non-negative and has a zero diagonal
func ValidateMatrix(m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return errors.Newf("matrix is not square: %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		if m.At(i, i) != 0 {
			return errors.Newf("nonzero diagonal at %d", i)
		}
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v < 0 {
				return errors.Newf("negative weight %g at (%d,%d)", v, i, j)
			}
		}
	}
	return nil
}

// RandomMatrices generates n uniform random weight matrices with zeroed diagonals,
// the baseline group used for comparison against random graphs
func RandomMatrices(n, size int, rng *rand.Rand) []Subject {
	subjects := make([]Subject, n)
	for k := 0; k < n; k++ {
		m := mat.NewDense(size, size, nil)
		for i := 0; i < size; i++ {
			for j := 0; j < size; j++ {
				if i != j {
					m.Set(i, j, rng.Float64())
				}
			}
		}
		subjects[k] = Subject{ID: fmt.Sprintf("%s-%03d", RandomGroup, k), Matrix: m}
	}
	return subjects
}
