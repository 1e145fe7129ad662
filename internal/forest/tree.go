package forest

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

type builder struct {
	x           [][]float64
	y           []int
	w           []float64
	nClasses    int
	maxFeatures int
	minSplit    int
	maxDepth    int
	rng         *rand.Rand
	nodes       []Node
}

// grow draws a bootstrap sample and builds one tree from it. A sample drawn
// m times carries m times its class weight.
func (b *builder) grow(classWeights []float64) Tree {
	n := len(b.x)
	b.w = make([]float64, n)
	for i := 0; i < n; i++ {
		b.w[b.rng.Intn(n)]++
	}
	idx := make([]int, 0, n)
	for i, count := range b.w {
		if count == 0 {
			continue
		}
		b.w[i] = count * classWeights[b.y[i]]
		idx = append(idx, i)
	}
	b.build(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *builder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	dist := b.distribution(idx)
	if len(idx) < b.minSplit || isPure(dist) || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[id].Dist = normalise(dist)
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, dist)
	if !ok {
		b.nodes[id].Dist = normalise(dist)
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

// bestSplit tries features in random order until maxFeatures non-constant
// features have been evaluated, and returns the split with the lowest
// weighted child impurity.
func (b *builder) bestSplit(idx []int, total []float64) (int, float64, bool) {
	order := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0
	evaluated := 0

	for _, f := range b.rng.Perm(len(b.x[0])) {
		if evaluated >= b.maxFeatures {
			break
		}
		copy(order, idx)
		sort.SliceStable(order, func(i, j int) bool {
			return b.x[order[i]][f] < b.x[order[j]][f]
		})
		if b.x[order[0]][f] >= b.x[order[len(order)-1]][f] {
			continue
		}
		evaluated++

		for c := range left {
			left[c] = 0
		}
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			left[b.y[i]] += b.w[i]

			cur, next := b.x[i][f], b.x[order[k+1]][f]
			if cur >= next {
				continue
			}
			floats.SubTo(right, total, left)
			score := weightedGini(left) + weightedGini(right)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *builder) distribution(idx []int) []float64 {
	dist := make([]float64, b.nClasses)
	for _, i := range idx {
		dist[b.y[i]] += b.w[i]
	}
	return dist
}

// weightedGini returns the node weight times its Gini impurity.
func weightedGini(dist []float64) float64 {
	total := floats.Sum(dist)
	if total <= 0 {
		return 0
	}
	// The explicit conversion keeps each square unfused, so fits match
	// across architectures that would otherwise emit FMA.
	var sq float64
	for _, v := range dist {
		sq += float64(v * v)
	}
	return total - sq/total
}

func isPure(dist []float64) bool {
	nonZero := 0
	for _, v := range dist {
		if v > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalise(dist []float64) []float64 {
	out := append([]float64(nil), dist...)
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}
