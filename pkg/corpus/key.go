package corpus

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gilchrisn/graph-motif-service/pkg/dataset"
)

// Key identifies one corpus: a group under one correlation kind, motif size, threshold
// degree and whether the graphs were replaced by null models
type Key struct {
	Null        bool   `json:"null"`
	Group       string `json:"group"`
	Correlation string `json:"correlation"`
	MotifSize   int    `json:"motif_size"`
	Degree      int    `json:"degree"`
}

// NewKey builds a key for a dataset group
func NewKey(group dataset.GroupKey, motifSize, degree int, null bool) Key {
	return Key{
		Null:        null,
		Group:       group.Group,
		Correlation: group.Correlation,
		MotifSize:   motifSize,
		Degree:      degree,
	}
}

// GroupKey returns the dataset group the key refers to
func (k Key) GroupKey() dataset.GroupKey {
	return dataset.GroupKey{Group: k.Group, Correlation: k.Correlation}
}

// WithNull returns a copy of the key with the null-model flag set to null
func (k Key) WithNull(null bool) Key {
	k.Null = null
	return k
}

// String is deterministic and injective: labels are escaped so "_" only ever separates
// fields, and the result is safe as a file name.
func (k Key) String() string {
	prefix := "real"
	if k.Null {
		prefix = "null"
	}
	return fmt.Sprintf("%s_%s_%s_s%d_d%d",
		prefix, escapeLabel(k.Group), escapeLabel(k.Correlation), k.MotifSize, k.Degree)
}

// ParseKey is the inverse of Key.String
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 5 {
		return Key{}, errors.Newf("invalid corpus key %q", s)
	}

	var k Key
	switch parts[0] {
	case "real":
	case "null":
		k.Null = true
	default:
		return Key{}, errors.Newf("invalid corpus key prefix %q", parts[0])
	}

	var err error
	if k.Group, err = url.QueryUnescape(parts[1]); err != nil {
		return Key{}, errors.Wrapf(err, "invalid group in key %q", s)
	}
	if k.Correlation, err = url.QueryUnescape(parts[2]); err != nil {
		return Key{}, errors.Wrapf(err, "invalid correlation in key %q", s)
	}
	if _, err := fmt.Sscanf(parts[3], "s%d", &k.MotifSize); err != nil {
		return Key{}, errors.Wrapf(err, "invalid motif size in key %q", s)
	}
	if _, err := fmt.Sscanf(parts[4], "d%d", &k.Degree); err != nil {
		return Key{}, errors.Wrapf(err, "invalid degree in key %q", s)
	}
	if k.String() != s {
		return Key{}, errors.Newf("non-canonical corpus key %q", s)
	}
	return k, nil
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "_", "%5F")
}
