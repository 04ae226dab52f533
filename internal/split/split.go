// Package split builds stratified train/test partitions and persists them
// as separate feature and label files.
package split

import (
	"fmt"
	"math"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// DefaultTestFraction is the share of each class assigned to the test set.
const DefaultTestFraction = 0.2

// Options controls Split.
type Options struct {
	TestFraction float64
	Seed         int64

	// DisjointTitles keeps rows sharing a title in the same partition, even
	// across labels. Per-class counts are then taken over distinct titles.
	DisjointTitles bool
}

// group is a set of rows that must land in the same partition.
type group []types.Record

// Split partitions records into train and test sets so that every label is
// represented in both. For each class it shuffles with a seeded source and
// moves round(TestFraction*n) units to test, clamped to [1, n-1]. Both
// outputs are shuffled.
func Split(records []types.Record, opts Options) (train, test []types.Record, err error) {
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 || math.IsNaN(opts.TestFraction) {
		return nil, nil, fmt.Errorf("%w: got %g", types.ErrInvalidFraction, opts.TestFraction)
	}
	if len(records) == 0 {
		return nil, nil, types.ErrEmptyDataset
	}

	rng := types.NewRand(opts.Seed)

	labels, byLabel := groupByLabel(records, opts.DisjointTitles)

	// placed records which partition a title went to, so a headline filed
	// under several labels never straddles train and test.
	placed := make(map[string]bool)

	for _, label := range labels {
		groups := byLabel[label]
		n := len(groups)
		if n < 2 {
			return nil, nil, &types.StratifyError{Label: label, Count: n, Err: types.ErrClassTooSmall}
		}

		var free []group
		var forcedTest, forcedTrain int
		for _, g := range groups {
			inTest, ok := placed[g[0].Title]
			switch {
			case !opts.DisjointTitles || !ok:
				free = append(free, g)
			case inTest:
				test = append(test, g...)
				forcedTest++
			default:
				train = append(train, g...)
				forcedTrain++
			}
		}

		k, ok := freeTestCount(n, len(free), forcedTest, forcedTrain, opts.TestFraction)
		if !ok {
			return nil, nil, &types.StratifyError{Label: label, Count: n, Err: types.ErrClassTooSmall}
		}

		rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
		for i, g := range free {
			if i < k {
				test = append(test, g...)
			} else {
				train = append(train, g...)
			}
			if opts.DisjointTitles {
				placed[g[0].Title] = i < k
			}
		}
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// TestCount returns round(frac*n) clamped to [1, n-1]. n must be at least 2.
func TestCount(n int, frac float64) int {
	k := int(math.Round(frac * float64(n)))
	return min(max(k, 1), n-1)
}

// freeTestCount decides how many of the free units of an n-unit class go to
// test when some units were already pinned by an earlier class. It aims at
// TestCount(n, frac) overall while keeping the class in both partitions.
func freeTestCount(n, free, forcedTest, forcedTrain int, frac float64) (int, bool) {
	lo, hi := 0, free
	if forcedTest == 0 {
		lo = 1
	}
	if forcedTrain == 0 {
		hi = free - 1
	}
	if lo > hi {
		return 0, false
	}
	return min(max(TestCount(n, frac)-forcedTest, lo), hi), true
}

// groupByLabel returns labels in first-seen order and their groups. Without
// byTitle every row is its own group.
func groupByLabel(records []types.Record, byTitle bool) ([]string, map[string][]group) {
	var labels []string
	byLabel := make(map[string][]group)
	titleIndex := make(map[string]map[string]int)

	for _, r := range records {
		if _, ok := byLabel[r.Label]; !ok {
			labels = append(labels, r.Label)
			byLabel[r.Label] = nil
			titleIndex[r.Label] = make(map[string]int)
		}

		if byTitle {
			if i, ok := titleIndex[r.Label][r.Title]; ok {
				byLabel[r.Label][i] = append(byLabel[r.Label][i], r)
				continue
			}
			titleIndex[r.Label][r.Title] = len(byLabel[r.Label])
		}
		byLabel[r.Label] = append(byLabel[r.Label], group{r})
	}
	return labels, byLabel
}
