package fasttree

// histBin accumulates gradient statistics of the rows falling into one bin.
type histBin struct {
	Grad  float64
	Hess  float64
	Count int
}

// leafHistogram holds one histogram per feature for the rows of a leaf.
// Features excluded from the current tree have a nil histogram.
type leafHistogram [][]histBin

// buildHistogram accumulates grad/hess over rows for every used feature.
func buildHistogram(bins [][]uint16, numBins []int, used []bool, rows []int, grad, hess []float64) leafHistogram {
	h := make(leafHistogram, len(bins))
	for f := range bins {
		if !used[f] {
			continue
		}
		hist := make([]histBin, numBins[f])
		col := bins[f]
		for _, r := range rows {
			b := &hist[col[r]]
			b.Grad += grad[r]
			b.Hess += hess[r]
			b.Count++
		}
		h[f] = hist
	}
	return h
}

// subtract returns parent minus child, the histogram of the sibling leaf.
func (h leafHistogram) subtract(child leafHistogram) leafHistogram {
	out := make(leafHistogram, len(h))
	for f, parent := range h {
		if parent == nil {
			continue
		}
		hist := make([]histBin, len(parent))
		for b := range parent {
			hist[b] = histBin{
				Grad:  parent[b].Grad - child[f][b].Grad,
				Hess:  parent[b].Hess - child[f][b].Hess,
				Count: parent[b].Count - child[f][b].Count,
			}
		}
		out[f] = hist
	}
	return out
}
