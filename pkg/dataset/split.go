package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/menta2k/pagexml-dataset/pkg/types"
)

// Split names
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// SplitRecords partitions records into train and test. A train fraction
// outside (0, 1) keeps everything in a single train split. With shuffle the
// order is a permutation seeded by seed, so runs are reproducible.
func SplitRecords(mode types.Mode, records []types.Record, train float64, seed int64, shuffle bool) Dataset {
	ds := Dataset{Mode: mode}
	if train <= 0 || train >= 1 || len(records) < 2 {
		ds.Splits = []Split{{Name: SplitTrain, Records: records}}
		return ds
	}

	ordered := append([]types.Record(nil), records...)
	if shuffle {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
		rng.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}

	n := int(math.Round(float64(len(ordered)) * train))
	n = min(max(n, 1), len(ordered)-1)

	ds.Splits = []Split{
		{Name: SplitTrain, Records: ordered[:n]},
		{Name: SplitTest, Records: ordered[n:]},
	}
	return ds
}
