package fasttree

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// Trainer implements histogram-based gradient boosting with leaf-wise tree
// growth.
type Trainer struct {
	opts      Options
	callbacks []CallbackFactory
}

// NewTrainer creates a trainer. Options are validated by Fit.
func NewTrainer(opts Options) *Trainer {
	return &Trainer{opts: opts}
}

// WithCallbacks adds callbacks invoked after every boosting iteration.
// Each factory is called once per Fit.
func (t *Trainer) WithCallbacks(factories ...CallbackFactory) *Trainer {
	t.callbacks = append(t.callbacks, factories...)
	return t
}

// newCallbacks instantiates the callbacks of one Fit: progress logging and
// early stopping from the options, then the ones added with WithCallbacks.
func (t *Trainer) newCallbacks(logger log.Logger) []Callback {
	factories := make([]CallbackFactory, 0, len(t.callbacks)+2)
	if t.opts.Verbosity > 0 {
		factories = append(factories, LogEvaluation(logger, t.opts.Verbosity))
	}
	if t.opts.EarlyStoppingRounds > 0 {
		factories = append(factories, EarlyStopping(t.opts.EarlyStoppingRounds, t.opts.EarlyStoppingTolerance))
	}
	factories = append(factories, t.callbacks...)

	callbacks := make([]Callback, len(factories))
	for i, f := range factories {
		callbacks[i] = f()
	}
	return callbacks
}

// Options returns the trainer's hyperparameters.
func (t *Trainer) Options() Options { return t.opts }

// String returns the trainer name, e.g. "FastTreeTweedie".
func (t *Trainer) String() string {
	switch t.opts.Objective {
	case ObjectivePoisson:
		return "FastTreePoisson"
	case ObjectiveRegression:
		return "FastTreeRegression"
	default:
		return "FastTreeTweedie"
	}
}

// splitInfo describes the best split found for a leaf.
// feature is -1 when the leaf cannot be split.
type splitInfo struct {
	feature   int
	bin       int
	gain      float64
	leftGrad  float64
	leftHess  float64
	leftCount int
}

type leafState struct {
	node       int
	rows       []int
	sumG, sumH float64
	hist       leafHistogram
	best       splitInfo
}

// booster holds the per-Fit training state.
type booster struct {
	opts    Options
	obj     ObjectiveFunction
	mappers []*BinMapper
	bins    [][]uint16
	numBins []int
	usable  []int
	grad    []float64
	hess    []float64
}

// Fit trains a tree ensemble on X (rows × features) and labels y.
// ctx is checked before every boosting iteration.
func (t *Trainer) Fit(ctx context.Context, X *mat.Dense, y []float64) (model *Model, err error) {
	defer errors.Recover(&err, "FastTree.Fit")

	if err := t.opts.Validate(); err != nil {
		return nil, err
	}
	if X == nil || X.IsEmpty() {
		return nil, errors.NewModelError("FastTree.Fit", "empty data", errors.ErrEmptyData)
	}
	rows, cols := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("FastTree.Fit", rows, len(y), 0)
	}
	obj, err := NewObjective(t.opts)
	if err != nil {
		return nil, err
	}
	if err := obj.CheckLabels(y); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := log.GetLoggerWithName("fasttree.trainer").With(log.ModelNameKey, t.String())
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.LearningRateKey, t.opts.LearningRate,
		log.RandomSeedKey, t.opts.Seed,
	)

	b := &booster{
		opts:    t.opts,
		obj:     obj,
		mappers: make([]*BinMapper, cols),
		bins:    make([][]uint16, cols),
		numBins: make([]int, cols),
		grad:    make([]float64, rows),
		hess:    make([]float64, rows),
	}
	for f := 0; f < cols; f++ {
		col := mat.Col(nil, f, X)
		m := NewBinMapper(col, t.opts.MaxBin)
		binned := make([]uint16, rows)
		for i, v := range col {
			binned[i] = uint16(m.ValueToBin(v))
		}
		b.mappers[f] = m
		b.bins[f] = binned
		b.numBins[f] = m.NumBins()
		if m.NumBins() > 1 {
			b.usable = append(b.usable, f)
		}
	}

	initScore := obj.InitScore(y)
	scores := make([]float64, rows)
	for i := range scores {
		scores[i] = initScore
	}
	model = &Model{
		InitScore:     initScore,
		Objective:     obj.Name(),
		VariancePower: t.opts.VariancePower,
		NumFeatures:   cols,
	}

	seed := uint64(t.opts.Seed)
	rng := rand.New(rand.NewPCG(seed, seed))
	callbacks := t.newCallbacks(logger)
	env := &CallbackEnv{EvalResults: make(map[string]float64, 1)}
	loss := 0.0

	for iter := 0; iter < t.opts.NumTrees; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "training interrupted at iteration %d", iter)
		}

		sumG := 0.0
		for i := 0; i < rows; i++ {
			b.grad[i], b.hess[i] = obj.Gradient(scores[i], y[i])
			sumG += b.grad[i]
		}
		if err := errors.CheckScalar("gradient", sumG, iter); err != nil {
			return nil, err
		}

		tree := b.growTree(b.sampleRows(rng, rows), b.sampleFeatures(rng))
		for i := 0; i < rows; i++ {
			scores[i] += tree.Predict(X.RawRowView(i))
		}
		if err := errors.CheckNumericalStability("scores", scores, iter); err != nil {
			return nil, err
		}
		model.Trees = append(model.Trees, tree)

		loss = 0
		for i := 0; i < rows; i++ {
			loss += obj.Loss(scores[i], y[i])
		}
		loss /= float64(rows)
		if err := errors.CheckScalar("training_loss", loss, iter); err != nil {
			return nil, err
		}

		if len(callbacks) > 0 {
			env.Iteration = iter
			env.NumTrees = len(model.Trees)
			env.Elapsed = time.Since(start)
			env.EvalResults[EvalTrainingLoss] = loss
			for _, cb := range callbacks {
				if err := cb(env); err != nil {
					return nil, errors.Wrapf(err, "callback error at iteration %d", iter)
				}
			}
			if env.StopTraining {
				logger.Info("Training stopped by callback", log.IterationKey, iter)
				break
			}
		}
	}

	logger.Info("Training completed",
		"trees", len(model.Trees),
		log.LossKey, loss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return model, nil
}

// sampleRows returns the sorted in-bag rows for one tree.
func (b *booster) sampleRows(rng *rand.Rand, n int) []int {
	k := n
	if b.opts.BaggingFraction < 1 {
		k = max(1, int(math.Round(b.opts.BaggingFraction*float64(n))))
	}
	var rows []int
	if k == n {
		rows = make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	rows = rng.Perm(n)[:k]
	sort.Ints(rows)
	return rows
}

// sampleFeatures marks the features a tree may split on.
func (b *booster) sampleFeatures(rng *rand.Rand) []bool {
	used := make([]bool, len(b.bins))
	candidates := b.usable
	if b.opts.FeatureFraction < 1 && len(candidates) > 1 {
		k := max(1, int(math.Round(b.opts.FeatureFraction*float64(len(candidates)))))
		perm := rng.Perm(len(candidates))[:k]
		for _, p := range perm {
			used[candidates[p]] = true
		}
		return used
	}
	for _, f := range candidates {
		used[f] = true
	}
	return used
}

func (b *booster) newLeaf(node int, rows []int, hist leafHistogram, sumG, sumH float64) *leafState {
	l := &leafState{node: node, rows: rows, sumG: sumG, sumH: sumH, hist: hist}
	l.best = b.bestSplit(l)
	return l
}

// growTree grows one tree leaf-wise, always splitting the leaf with the
// largest gain, until NumLeaves is reached or no leaf can be split.
func (b *booster) growTree(rows []int, used []bool) Tree {
	nodes := []Node{{LeftChild: -1, RightChild: -1}}

	sumG, sumH := 0.0, 0.0
	for _, r := range rows {
		sumG += b.grad[r]
		sumH += b.hess[r]
	}
	leaves := []*leafState{
		b.newLeaf(0, rows, buildHistogram(b.bins, b.numBins, used, rows, b.grad, b.hess), sumG, sumH),
	}

	for len(leaves) < b.opts.NumLeaves {
		pick := -1
		for i, l := range leaves {
			if l.best.feature < 0 {
				continue
			}
			if pick < 0 || l.best.gain > leaves[pick].best.gain {
				pick = i
			}
		}
		if pick < 0 {
			break
		}
		parent := leaves[pick]
		s := parent.best

		col := b.bins[s.feature]
		leftRows := make([]int, 0, s.leftCount)
		rightRows := make([]int, 0, len(parent.rows)-s.leftCount)
		for _, r := range parent.rows {
			if int(col[r]) <= s.bin {
				leftRows = append(leftRows, r)
			} else {
				rightRows = append(rightRows, r)
			}
		}

		li := len(nodes)
		nodes = append(nodes, Node{LeftChild: -1, RightChild: -1}, Node{LeftChild: -1, RightChild: -1})
		nodes[parent.node] = Node{
			LeftChild:    li,
			RightChild:   li + 1,
			SplitFeature: s.feature,
			Threshold:    b.mappers[s.feature].Threshold(s.bin),
			DefaultLeft:  true,
			Gain:         s.gain,
			Count:        len(parent.rows),
		}

		// histogram the smaller child, derive the larger one from the parent
		var leftHist, rightHist leafHistogram
		if len(leftRows) <= len(rightRows) {
			leftHist = buildHistogram(b.bins, b.numBins, used, leftRows, b.grad, b.hess)
			rightHist = parent.hist.subtract(leftHist)
		} else {
			rightHist = buildHistogram(b.bins, b.numBins, used, rightRows, b.grad, b.hess)
			leftHist = parent.hist.subtract(rightHist)
		}

		leaves[pick] = b.newLeaf(li, leftRows, leftHist, s.leftGrad, s.leftHess)
		leaves = append(leaves, b.newLeaf(li+1, rightRows, rightHist, parent.sumG-s.leftGrad, parent.sumH-s.leftHess))
	}

	for _, l := range leaves {
		n := &nodes[l.node]
		n.Count = len(l.rows)
		n.LeafValue = b.leafOutput(l.sumG, l.sumH)
	}
	return Tree{Nodes: nodes, NumLeaves: len(leaves), ShrinkageRate: b.opts.LearningRate}
}

func (b *booster) leafOutput(sumG, sumH float64) float64 {
	denom := sumH + b.opts.Lambda
	if denom <= 0 {
		return 0
	}
	return -sumG / denom
}

// bestSplit scans every used feature histogram for the split maximizing
//
//	½(G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ))
//
// subject to MinDataInLeaf and MinSumHessian on both sides.
func (b *booster) bestSplit(l *leafState) splitInfo {
	best := splitInfo{feature: -1, gain: b.opts.MinGainToSplit}
	count := len(l.rows)
	minData := b.opts.MinDataInLeaf
	if count < 2*minData {
		return best
	}
	lambda := b.opts.Lambda
	if l.sumH+lambda <= 0 {
		return best
	}
	parentScore := l.sumG * l.sumG / (l.sumH + lambda)

	for f, hist := range l.hist {
		if hist == nil {
			continue
		}
		gl, hl, cl := 0.0, 0.0, 0
		for bin := 0; bin < len(hist)-1; bin++ {
			gl += hist[bin].Grad
			hl += hist[bin].Hess
			cl += hist[bin].Count
			if cl < minData {
				continue
			}
			if count-cl < minData {
				break
			}
			gr, hr := l.sumG-gl, l.sumH-hl
			if hl < b.opts.MinSumHessian || hr < b.opts.MinSumHessian {
				continue
			}
			if hl+lambda <= 0 || hr+lambda <= 0 {
				continue
			}
			gain := 0.5 * (gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parentScore)
			if gain > best.gain {
				best = splitInfo{
					feature:   f,
					bin:       bin,
					gain:      gain,
					leftGrad:  gl,
					leftHess:  hl,
					leftCount: cl,
				}
			}
		}
	}
	return best
}
