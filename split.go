package gtvoc

// Category balanced train/validation splits.

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Suffixes of the per category image list files.
const (
	TrainListSuffix      = "_train.txt"
	ValidationListSuffix = "_val.txt"
)

// ByCategory is the split key that stratifies by Row.Category.
func ByCategory(r Row) string {
	return r.Category
}

// StratifiedSplit randomly splits rows into a train and a test set while keeping the proportion of
// each key value, usually the category.
//
// For a key value held by n rows, round(trainFrac*n) of them are drawn uniformly and without
// replacement into train (ties round to even). The remaining rows go to test. Within each set, rows
// keep their input order and are grouped by key in order of first appearance.
//
// If rng is nil, a generator seeded with the current time is used.
func StratifiedSplit(rows Rows, key func(Row) string, trainFrac float64, rng *rand.Rand) (
		train, test Rows, err error) {

	if trainFrac < 0 || trainFrac > 1 || math.IsNaN(trainFrac) {
		return nil, nil, fmt.Errorf("the train fraction %v is not in [0, 1]", trainFrac)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Group row indices by key.
	var keys []string
	groups := make(map[string][]int)
	for i, r := range rows {
		k := key(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	trainParts := make([]Rows, 0, len(keys))
	testParts := make([]Rows, 0, len(keys))
	for _, k := range keys {
		indices := groups[k]
		n := len(indices)
		numTrain := int(math.RoundToEven(trainFrac * float64(n)))

		inTrain := make([]bool, n)
		for _, p := range rng.Perm(n)[:numTrain] {
			inTrain[p] = true
		}

		keyTrain := make(Rows, 0, numTrain)
		keyTest := make(Rows, 0, n-numTrain)
		for p, i := range indices {
			if inTrain[p] {
				keyTrain = append(keyTrain, rows[i])
			} else {
				keyTest = append(keyTest, rows[i])
			}
		}

		log.Printf("Split %q: total %d, train %d, test %d", k, n, len(keyTrain), len(keyTest))
		trainParts = append(trainParts, keyTrain)
		testParts = append(testParts, keyTest)
	}

	return concatRows(trainParts), concatRows(testParts), nil
}

// concatRows joins parts into a single Rows value.
func concatRows(parts []Rows) Rows {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make(Rows, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// WriteSplitLists writes the image file names of the train and test rows to dirPath, as one
// <category>_train.txt and one <category>_val.txt file per category, in the order of categories.
// Each file lists one image file name per line. Categories without rows get empty files, and rows
// of categories that are not listed are not written.
func WriteSplitLists(dirPath string, categories []string, train, test Rows) error {
	if err := ensureDir(dirPath); err != nil {
		return err
	}

	sets := []struct {
		rows   Rows
		suffix string
	}{
		{train, TrainListSuffix},
		{test, ValidationListSuffix},
	}

	for _, c := range categories {
		if !isPlainFileName(c) {
			return errors.Wrapf(ErrMalformedCategoryFile, "category %q cannot be used in a file name", c)
		}
	}

	for _, c := range categories {
		for _, s := range sets {
			var buf bytes.Buffer
			for _, r := range s.rows {
				if r.Category == c {
					buf.WriteString(r.ImageFile)
					buf.WriteByte('\n')
				}
			}
			if err := writeFile(filepath.Join(dirPath, c+s.suffix), buf.Bytes()); err != nil {
				return err
			}
		}
	}

	log.Printf("Wrote train and validation lists for %d categories to %s", len(categories), dirPath)
	return nil
}
