package regression

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
)

const (
	DefaultMaxDepth = 10
	DefaultSeed     = 42
)

// TreeNode is a node of a fitted regression tree. Leaves have Feature -1.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value"`
	Samples   int       `json:"samples"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

func (n *TreeNode) leaf() bool { return n.Feature < 0 }

// Tree is a CART regression tree that splits on squared-error reduction.
// Candidate features are visited in a seeded random order and ties keep the
// first candidate found, so a fixed seed gives a reproducible tree.
type Tree struct {
	MaxDepth       int       `json:"max_depth"`
	MinSamplesLeaf int       `json:"min_samples_leaf"`
	Seed           uint64    `json:"seed"`
	Features       int       `json:"features"`
	Root           *TreeNode `json:"root"`

	rng *rand.Rand
}

func NewTree(maxDepth int, seed uint64) *Tree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{MaxDepth: maxDepth, MinSamplesLeaf: 1, Seed: seed}
}

func (t *Tree) Name() string { return ModelCART }

func (t *Tree) Fit(X [][]float64, y []float64) error {
	n, p, err := shape(X, y)
	if err != nil {
		return err
	}
	t.rng = rand.New(rand.NewPCG(t.Seed, t.Seed))
	t.Features = p

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.grow(X, y, idx, 0)
	return nil
}

func (t *Tree) grow(X [][]float64, y []float64, idx []int, depth int) *TreeNode {
	node := &TreeNode{Feature: -1, Value: mean(y, idx), Samples: len(idx)}
	if depth >= t.MaxDepth || len(idx) < 2*t.MinSamplesLeaf {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.grow(X, y, left, depth+1)
	node.Right = t.grow(X, y, right, depth+1)
	return node
}

// bestSplit scans every feature and every midpoint between distinct sorted
// values, returning the split with the lowest summed squared error.
func (t *Tree) bestSplit(X [][]float64, y []float64, idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += y[i]
		totalSq += y[i] * y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestSSE := parentSSE
	bestFeature, bestThreshold, found := -1, 0.0, false

	order := make([]int, n)
	for _, f := range t.rng.Perm(len(X[idx[0]])) {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}
			cur, next := X[order[k]][f], X[order[k+1]][f]
			if cur == next {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (t *Tree) Predict(X [][]float64) ([]float64, error) {
	if t.Root == nil {
		return nil, fmt.Errorf("cart: model is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != t.Features {
			return nil, fmt.Errorf("cart: row %d has %d features, want %d", i, len(row), t.Features)
		}
		node := t.Root
		for !node.leaf() {
			if row[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		out[i] = node.Value
	}
	return out, nil
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *Tree) Depth() int {
	var walk func(n *TreeNode) int
	walk = func(n *TreeNode) int {
		if n == nil || n.leaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(t.Root)
}

func (t *Tree) Params() (json.RawMessage, error) {
	return json.Marshal(t)
}

func mean(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}
