package fasttree

import "math"

// Node represents a single node in a regression tree.
// Leaves have LeftChild == RightChild == -1.
type Node struct {
	LeftChild  int
	RightChild int

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Values <= Threshold go left
	DefaultLeft  bool    // Direction for missing values
	Gain         float64 // Split gain

	// Leaf information (for leaf nodes)
	LeafValue float64 // Newton step before shrinkage
	Count     int     // Number of training rows reaching the node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	Nodes         []Node
	NumLeaves     int
	ShrinkageRate float64 // Learning rate applied to this tree
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	id := 0
	for {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		v := features[node.SplitFeature]
		switch {
		case math.IsNaN(v):
			if node.DefaultLeft {
				id = node.LeftChild
			} else {
				id = node.RightChild
			}
		case v <= node.Threshold:
			id = node.LeftChild
		default:
			id = node.RightChild
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}
