package evaluation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mikey/spam-classifier/internal/core"
)

// Split partitions the indices 0..n-1 into train and test sets. The test set
// holds ceil(testSize*n) indices drawn by a permutation seeded with seed, so
// equal arguments always give equal sets. Both sets are returned sorted.
func Split(n int, testSize float64, seed int64) (train, test []int, err error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: cannot split %d samples", core.ErrEmptyCorpus, n)
	}
	if math.IsNaN(testSize) || testSize < 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: test size must be in [0, 1), got %v", core.ErrInput, testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, nil, fmt.Errorf("%w: test size %v leaves no training samples out of %d", core.ErrInput, testSize, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}
