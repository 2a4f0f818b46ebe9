package corpus

import (
	"math/rand"
	"sort"

	"github.com/cockroachdb/errors"
)

// MixGroups builds pseudo-groups with the same sizes as groups, each drawing subjects
// from every real group in proportion to that group's share of all subjects. Records are
// drawn without replacement; proportional rounding leftovers fill the pseudo-groups up to
// their original sizes. Each pseudo-group keeps the key of the group it replaces.
func MixGroups(groups map[string]*Corpus, rng *rand.Rand) (map[string]*Corpus, error) {
	if len(groups) == 0 {
		return nil, errors.New("no groups to mix")
	}

	names := make([]string, 0, len(groups))
	total := 0
	for name, c := range groups {
		if c == nil {
			return nil, errors.Newf("group %s has no corpus", name)
		}
		names = append(names, name)
		total += c.Len()
	}
	sort.Strings(names)
	if total == 0 {
		return nil, errors.New("no subjects to mix")
	}

	pools := make(map[string][]Record, len(groups))
	for _, name := range names {
		pools[name] = groups[name].Records()
	}
	draw := func(pool []Record) (Record, []Record) {
		i := rng.Intn(len(pool))
		r := pool[i]
		pool[i] = pool[len(pool)-1]
		return r, pool[:len(pool)-1]
	}

	mixed := make(map[string][]Record, len(groups))
	for _, target := range names {
		size := groups[target].Len()
		for _, source := range names {
			n := int(float64(groups[source].Len()) / float64(total) * float64(size))
			for j := 0; j < n && len(pools[source]) > 0; j++ {
				var r Record
				r, pools[source] = draw(pools[source])
				mixed[target] = append(mixed[target], r)
			}
		}
	}

	var leftovers []Record
	for _, name := range names {
		leftovers = append(leftovers, pools[name]...)
	}
	for _, target := range names {
		for len(mixed[target]) < groups[target].Len() {
			var r Record
			r, leftovers = draw(leftovers)
			mixed[target] = append(mixed[target], r)
		}
	}

	out := make(map[string]*Corpus, len(groups))
	for _, name := range names {
		out[name] = FromRecords(groups[name].Key, mixed[name])
	}
	return out, nil
}
