// Package forest implements a class-balanced random forest of CART trees.
//
// Trees use Gini impurity, bootstrap sampling and a random feature subset
// per split. Each tree draws from its own source seeded from the forest
// seed, so a fit is reproducible even though trees are grown in parallel.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrFeatureCount = errors.New("feature count mismatch")
	ErrEmpty        = errors.New("empty training set")
)

type Config struct {
	Trees int
	Seed  int64
	// MaxFeatures is the number of features tried per split. Zero means
	// floor(sqrt(n_features)).
	MaxFeatures     int
	MinSamplesSplit int
	// MaxDepth zero means unlimited.
	MaxDepth int
	Workers  int
}

func DefaultConfig() Config {
	return Config{Trees: 100, Seed: 42, MinSamplesSplit: 2}
}

// Node is a split node when Left >= 0, otherwise a leaf whose Dist holds
// the normalised class distribution.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Dist      []float64
}

type Tree struct {
	Nodes []Node
}

type Forest struct {
	Classes  []int
	Features []string
	Trees    []Tree
}

// Fit grows cfg.Trees trees on X and y. Class weights are balanced:
// n / (k * count(class)).
func Fit(ctx context.Context, X [][]float64, y []int, features []string, cfg Config) (*Forest, error) {
	if len(X) == 0 {
		return nil, ErrEmpty
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", len(X), len(y))
	}
	for i, row := range X {
		if len(row) != len(features) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureCount, i, len(row), len(features))
		}
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = int(math.Sqrt(float64(len(features))))
	}
	if cfg.MaxFeatures < 1 {
		cfg.MaxFeatures = 1
	}
	if cfg.MaxFeatures > len(features) {
		cfg.MaxFeatures = len(features)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	classes, target := indexClasses(y)
	weights := balancedWeights(target, len(classes), len(y))

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]Tree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &builder{
				x:           X,
				y:           target,
				nClasses:    len(classes),
				maxFeatures: cfg.MaxFeatures,
				minSplit:    cfg.MinSamplesSplit,
				maxDepth:    cfg.MaxDepth,
				rng:         rand.New(rand.NewSource(seeds[i])),
			}
			trees[i] = b.grow(weights)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{
		Classes:  classes,
		Features: append([]string(nil), features...),
		Trees:    trees,
	}, nil
}

// PredictProba averages the leaf distributions of every tree. The result is
// indexed like f.Classes.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(f.Features) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(f.Features))
	}
	if len(f.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	proba := make([]float64, len(f.Classes))
	for i := range f.Trees {
		floats.Add(proba, f.Trees[i].leaf(x).Dist)
	}
	floats.Scale(1/float64(len(f.Trees)), proba)
	return proba, nil
}

// Classify returns the most probable class together with the full
// distribution. The lower class wins ties.
func (f *Forest) Classify(x []float64) (int, []float64, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, nil, err
	}
	return f.Classes[floats.MaxIdx(proba)], proba, nil
}

// Validate checks the structure of a decoded forest.
func (f *Forest) Validate() error {
	if len(f.Classes) == 0 || len(f.Features) == 0 {
		return errors.New("forest has no classes or features")
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", t)
		}
		for n, node := range tree.Nodes {
			if node.Left < 0 {
				if len(node.Dist) != len(f.Classes) {
					return fmt.Errorf("tree %d leaf %d: distribution has %d classes, want %d", t, n, len(node.Dist), len(f.Classes))
				}
				continue
			}
			if node.Left >= len(tree.Nodes) || node.Right < 0 || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", t, n)
			}
			if node.Feature < 0 || node.Feature >= len(f.Features) {
				return fmt.Errorf("tree %d node %d: feature %d out of range", t, n, node.Feature)
			}
		}
	}
	return nil
}

func (t *Tree) leaf(x []float64) *Node {
	n := &t.Nodes[0]
	for n.Left >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

func indexClasses(y []int) ([]int, []int) {
	seen := make(map[int]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	pos := make(map[int]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	target := make([]int, len(y))
	for i, v := range y {
		target[i] = pos[v]
	}
	return classes, target
}

func balancedWeights(target []int, k, n int) []float64 {
	counts := make([]float64, k)
	for _, c := range target {
		counts[c]++
	}
	weights := make([]float64, k)
	for c := range weights {
		weights[c] = float64(n) / (float64(k) * counts[c])
	}
	return weights
}
