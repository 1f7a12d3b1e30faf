package motionplan

import (
	"time"
)

// Status is the outcome vocabulary of a Plan call.
type Status int

const (
	// ExactSolution means a path connecting the start to a goal was found.
	ExactSolution Status = iota
	// ApproximateSolution means the time budget expired but the search got
	// measurably closer to a goal; the path ends at the closest state reached.
	ApproximateSolution
	// NoSolution means the search concluded no path exists within its reach.
	NoSolution
	// InvalidStart means the start state was already colliding; no search was run.
	InvalidStart
	// InvalidGoal means no goal state was usable; no search was run.
	InvalidGoal
	// Timeout means the budget expired without progress towards any goal.
	Timeout
)

func (s Status) String() string {
	switch s {
	case ExactSolution:
		return "Exact solution"
	case ApproximateSolution:
		return "Approximate solution"
	case NoSolution:
		return "No solution"
	case InvalidStart:
		return "Invalid start"
	case InvalidGoal:
		return "Invalid goal"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Solved returns whether the status comes with a non-empty path.
func (s Status) Solved() bool {
	return s == ExactSolution || s == ApproximateSolution
}

// Algorithm names accepted by PlanOptions.
const (
	AlgorithmRRT        = "RRT"
	AlgorithmRRTConnect = "RRTConnect"
)

// PlanOptions configures a Plan call. The zero value of any field selects the
// default, see DefaultPlanOptions.
type PlanOptions struct {
	// Algorithm selects the tree searcher, RRTConnect by default.
	Algorithm string

	// TimeBudget is the wall-clock budget for the search, excluding smoothing.
	TimeBudget time.Duration

	// Range is the largest joint-space step the searcher extends per
	// iteration, measured by the state space metric.
	Range float64

	// GoalBias is the probability a single-tree searcher samples a goal
	// instead of a uniform state.
	GoalBias float64

	// PathLenObjWeight weighs the path-length objective applied during
	// shortcut smoothing; zero selects the default, a negative weight
	// disables smoothing entirely.
	PathLenObjWeight float64

	// PathLenObjOnly drops any other objective and smooths purely for length.
	PathLenObjOnly bool

	// Resolution is the joint-space spacing of both edge validity checks and
	// the densified output path.
	Resolution float64

	// SmoothIterations bounds the number of shortcut attempts after a search.
	SmoothIterations int

	// Verbose logs per-phase planner progress.
	Verbose bool
}

// DefaultPlanOptions returns the options used for zero-valued fields.
func DefaultPlanOptions() *PlanOptions {
	return &PlanOptions{
		Algorithm:        AlgorithmRRTConnect,
		TimeBudget:       time.Second,
		Range:            0.5,
		GoalBias:         0.05,
		PathLenObjWeight: 1,
		Resolution:       0.1,
		SmoothIterations: 75,
	}
}

// withDefaults fills zero-valued fields from the defaults.
func (opts *PlanOptions) withDefaults() *PlanOptions {
	defaults := DefaultPlanOptions()
	if opts == nil {
		return defaults
	}
	filled := *opts
	if filled.Algorithm == "" {
		filled.Algorithm = defaults.Algorithm
	}
	if filled.TimeBudget == 0 {
		filled.TimeBudget = defaults.TimeBudget
	}
	if filled.Range == 0 {
		filled.Range = defaults.Range
	}
	if filled.GoalBias == 0 {
		filled.GoalBias = defaults.GoalBias
	}
	if filled.PathLenObjWeight == 0 && !filled.PathLenObjOnly {
		filled.PathLenObjWeight = defaults.PathLenObjWeight
	}
	if filled.PathLenObjOnly {
		filled.PathLenObjWeight = 1
	}
	if filled.Resolution == 0 {
		filled.Resolution = defaults.Resolution
	}
	if filled.SmoothIterations == 0 {
		filled.SmoothIterations = defaults.SmoothIterations
	}
	return &filled
}
