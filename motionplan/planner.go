package motionplan

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/planworld/planworld/planningworld"
	"github.com/planworld/planworld/referenceframe"
)

// nearbySampleRadius is the per-dimension perturbation radius of RandomSampleNearby.
const nearbySampleRadius = 0.1

// nearbySampleAttempts bounds the retries of RandomSampleNearby before it
// falls back to the last candidate.
const nearbySampleAttempts = 20

// Planner adapts a planning world into a joint-space sampling planner. Its
// configuration dimension is the sum of the planned articulations' move-group
// dimensions, in world registry order, matching what SetQposAll expects.
//
// Planning mutates the world: every validity check writes a candidate
// configuration before querying. One planner and one world per thread of
// control.
type Planner struct {
	world  *planningworld.PlanningWorld
	space  *stateSpace
	logger golog.Logger
	random *rand.Rand
}

// NewPlanner builds a planner over the world's planned articulations. The
// state space is captured at construction; after changing any move group or
// the planned set, build a new planner. The planner's random source is seeded
// from the world's, so seeding the world makes the planners it spawns
// reproducible; SetRandomSeed overrides that.
func NewPlanner(world *planningworld.PlanningWorld, logger golog.Logger) (*Planner, error) {
	limits := []referenceframe.Limit{}
	for _, am := range world.PlannedArticulations() {
		limits = append(limits, am.MoveGroupLimits()...)
	}
	if len(limits) == 0 {
		return nil, errors.New("world has no planned articulations to plan for")
	}
	return &Planner{
		world:  world,
		space:  newStateSpace(limits),
		logger: logger,
		random: rand.New(rand.NewSource(world.Random().Int63())),
	}, nil
}

// SetRandomSeed reseeds the planner's owned random source, keeping runs reproducible.
func (p *Planner) SetRandomSeed(seed int64) {
	p.random = rand.New(rand.NewSource(seed))
}

// Dim is the planner's configuration dimension.
func (p *Planner) Dim() int {
	return p.space.dim()
}

// IsStateValid writes the state into the world and reports whether the
// full-scope collision check passes.
func (p *Planner) IsStateValid(q []float64) bool {
	if err := p.world.SetQposAll(referenceframe.FloatsToInputs(q)); err != nil {
		return false
	}
	collides, err := p.world.Collide(nil)
	return err == nil && !collides
}

// Clearance writes the state into the world and returns the full-scope signed
// distance, negative when penetrating.
func (p *Planner) Clearance(q []float64) (float64, error) {
	if err := p.world.SetQposAll(referenceframe.FloatsToInputs(q)); err != nil {
		return 0, err
	}
	result, err := p.world.Distance(nil)
	if err != nil {
		return 0, err
	}
	return result.Distance, nil
}

// RandomSampleNearby perturbs the start within a small fixed radius per
// dimension, retrying until a candidate has positive clearance or the retry
// budget runs out, in which case the last candidate is returned. It seeds
// searches that need a nearby but not-in-penetration configuration.
func (p *Planner) RandomSampleNearby(start []float64) []float64 {
	var candidate []float64
	for attempt := 0; attempt < nearbySampleAttempts; attempt++ {
		candidate = p.space.SampleNear(p.random, start, nearbySampleRadius)
		clearance, err := p.Clearance(candidate)
		if err == nil && clearance > 0 {
			return candidate
		}
	}
	return candidate
}

// CheckMotion reports whether the straight joint-space segment between two
// states is valid, checking interpolated states at the given resolution.
func (p *Planner) CheckMotion(from, to []float64, resolution float64) bool {
	dist := p.space.Distance(from, to)
	steps := int(math.Ceil(dist / resolution))
	q := make([]float64, p.Dim())
	for s := 1; s <= steps; s++ {
		p.space.Interpolate(from, to, float64(s)/float64(steps), q)
		if !p.IsStateValid(q) {
			return false
		}
	}
	return true
}

// searchOutcome is what a tree searcher hands back to Plan.
type searchOutcome struct {
	// path is nil when the search made no usable progress.
	path [][]float64
	// exact is true when the path actually reaches a goal.
	exact bool
}

// searcher runs one tree search until it connects, the deadline passes, or the
// context is done.
type searcher func(ctx context.Context, p *Planner, start []float64, goals [][]float64, opts *PlanOptions, deadline time.Time) (*searchOutcome, error)

var searchers = map[string]searcher{
	AlgorithmRRT:        rrtSearch,
	AlgorithmRRTConnect: rrtConnectSearch,
}

// Plan searches for a collision-free joint-space path from start to any of the
// goals. The returned matrix has one row per waypoint and the first row equals
// start; it is nil unless the status is exact or approximate.
//
// Invalid starts and unusable goal sets are reported as statuses before any
// search time is spent. A search that exhausts its budget reports timeout, or
// an approximate solution if it got measurably closer to a goal.
func (p *Planner) Plan(ctx context.Context, start []float64, goals [][]float64, opts *PlanOptions) (Status, *mat.Dense, error) {
	opts = opts.withDefaults()
	worldDim := 0
	for _, am := range p.world.PlannedArticulations() {
		worldDim += am.MoveGroupDim()
	}
	if worldDim != p.Dim() {
		return NoSolution, nil, errors.Errorf(
			"world move-group dimension %d no longer matches the planner's %d, build a new planner", worldDim, p.Dim())
	}
	if len(start) != p.Dim() {
		return NoSolution, nil, errors.Errorf("start dimension %d does not match move-group dimension %d", len(start), p.Dim())
	}
	search, ok := searchers[opts.Algorithm]
	if !ok {
		return NoSolution, nil, errors.Errorf("unknown planning algorithm %q", opts.Algorithm)
	}

	if !p.IsStateValid(start) {
		if opts.Verbose {
			p.logger.Debug("start state is invalid, not searching")
		}
		return InvalidStart, nil, nil
	}
	validGoals := [][]float64{}
	for _, goal := range goals {
		if len(goal) == p.Dim() && p.IsStateValid(goal) {
			validGoals = append(validGoals, goal)
		}
	}
	if len(validGoals) == 0 {
		if opts.Verbose {
			p.logger.Debug("no valid goal states, not searching")
		}
		return InvalidGoal, nil, nil
	}

	deadline := time.Now().Add(opts.TimeBudget)
	searchCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	searchStart := time.Now()
	outcome, err := search(searchCtx, p, start, validGoals, opts, deadline)
	if err != nil {
		return NoSolution, nil, err
	}
	if opts.Verbose {
		p.logger.Debugf("%s search took %s", opts.Algorithm, time.Since(searchStart))
	}
	if outcome.path == nil {
		return Timeout, nil, nil
	}

	path := outcome.path
	status := ApproximateSolution
	if outcome.exact {
		status = ExactSolution
		if opts.PathLenObjWeight > 0 {
			path = p.shortcut(path, opts)
		}
	}
	path = p.densify(path, opts.Resolution)
	return status, pathToMatrix(path, p.Dim()), nil
}

// densify interpolates the path so consecutive rows are no further apart than
// the resolution, using the metric-aware interpolation of the state space.
func (p *Planner) densify(path [][]float64, resolution float64) [][]float64 {
	out := [][]float64{path[0]}
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		steps := int(math.Ceil(p.space.Distance(from, to) / resolution))
		for s := 1; s <= steps; s++ {
			q := make([]float64, p.Dim())
			p.space.Interpolate(from, to, float64(s)/float64(steps), q)
			out = append(out, q)
		}
	}
	return out
}

func pathToMatrix(path [][]float64, dim int) *mat.Dense {
	flat := make([]float64, 0, len(path)*dim)
	for _, q := range path {
		flat = append(flat, q...)
	}
	return mat.NewDense(len(path), dim, flat)
}
