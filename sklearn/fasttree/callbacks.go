package fasttree

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// EvalTrainingLoss is the EvalResults key of the mean training loss.
const EvalTrainingLoss = "training_loss"

// CallbackEnv contains the environment for callbacks
type CallbackEnv struct {
	Iteration    int
	NumTrees     int
	Elapsed      time.Duration
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is called after every boosting iteration. Setting
// env.StopTraining ends training after the current tree.
type Callback func(env *CallbackEnv) error

// CallbackFactory builds the callbacks of a single Fit call. Trainer.Fit
// calls every factory once, so state kept by a callback never leaks between
// cross-validation folds or into the final fit.
type CallbackFactory func() Callback

// EvalHistory collects the per-iteration evaluation results of every Fit
// it was attached to. It is safe for folds fitted in parallel.
type EvalHistory struct {
	mu   sync.Mutex
	runs []map[string][]float64
}

// Runs returns one history per Fit, in the order the fits started.
func (h *EvalHistory) Runs() []map[string][]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string][]float64(nil), h.runs...)
}

// Last returns the history of the most recently started Fit.
func (h *EvalHistory) Last() map[string][]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.runs) == 0 {
		return nil
	}
	return h.runs[len(h.runs)-1]
}

// RecordEvaluation records evaluation history
func RecordEvaluation(h *EvalHistory) CallbackFactory {
	return func() Callback {
		run := make(map[string][]float64)
		h.mu.Lock()
		h.runs = append(h.runs, run)
		h.mu.Unlock()
		return func(env *CallbackEnv) error {
			for name, value := range env.EvalResults {
				run[name] = append(run[name], value)
			}
			return nil
		}
	}
}

// LogEvaluation logs evaluation results every period iterations.
func LogEvaluation(logger log.Logger, period int) CallbackFactory {
	if period < 1 {
		period = 1
	}
	return func() Callback {
		return func(env *CallbackEnv) error {
			if env.Iteration%period != 0 {
				return nil
			}
			logger.Debug("Training progress",
				log.IterationKey, env.Iteration,
				log.LossKey, env.EvalResults[EvalTrainingLoss],
				log.DurationMsKey, env.Elapsed.Milliseconds(),
			)
			return nil
		}
	}
}

// EarlyStopping stops training once the training loss has not improved by
// more than tolerance for rounds consecutive iterations.
func EarlyStopping(rounds int, tolerance float64) CallbackFactory {
	return func() Callback {
		best := 0.0
		seen := false
		stale := 0
		return func(env *CallbackEnv) error {
			loss, ok := env.EvalResults[EvalTrainingLoss]
			if !ok {
				return nil
			}
			if !seen || loss < best-tolerance {
				best, seen, stale = loss, true, 0
				return nil
			}
			stale++
			if stale >= rounds {
				env.StopTraining = true
			}
			return nil
		}
	}
}
