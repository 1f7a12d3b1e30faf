package kinematics

import (
	"context"
	"sort"
	"strings"

	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
)

// NloptIK solves inverse kinematics with nlopt's SLSQP optimizer, minimizing
// the squared pose error subject to joint-limit bounds. Gradients are computed
// by finite differences.
type NloptIK struct {
	model  *referenceframe.Model
	logger golog.Logger

	// MaxEvaluations bounds the number of objective evaluations per solve.
	MaxEvaluations int
	// Epsilon is the error norm below which a solve is converged.
	Epsilon float64

	jump float64 // finite difference perturbation for gradients
}

// NewNloptIK creates an nlopt-backed IK solver for the given model.
func NewNloptIK(model *referenceframe.Model, logger golog.Logger) *NloptIK {
	return &NloptIK{
		model:          model,
		logger:         logger,
		MaxEvaluations: 8001,
		Epsilon:        defaultEpsilon,
		jump:           1e-8,
	}
}

// Solve runs the optimizer from the seed and reports the best configuration
// found together with a convergence status.
func (ik *NloptIK) Solve(
	ctx context.Context,
	goals map[string]spatialmath.Pose,
	seed []referenceframe.Input,
) ([]referenceframe.Input, Status, error) {
	if len(goals) == 0 {
		return nil, IKMaxIterations, errors.New("no goals given to IK solver")
	}
	dof := ik.model.DoF()
	if len(seed) != len(dof) {
		return nil, IKMaxIterations, referenceframe.NewIncorrectInputLengthError(len(seed), len(dof))
	}
	goalOrder := make([]string, 0, len(goals))
	for linkName := range goals {
		goalOrder = append(goalOrder, linkName)
	}
	sort.Strings(goalOrder)

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(len(dof)))
	if err != nil {
		return nil, IKMaxIterations, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	lower, upper := limitsToBounds(dof)

	// the objective is the squared norm of the stacked weighted pose errors
	var objErr error
	objective := func(x, gradient []float64) float64 {
		if ctx.Err() != nil {
			if forceErr := opt.ForceStop(); forceErr != nil {
				ik.logger.Debugw("nlopt force stop", "error", forceErr)
			}
			return 0
		}
		errVec, err := goalErrors(ik.model, goalOrder, goals, referenceframe.FloatsToInputs(x))
		if err != nil {
			objErr = err
			return 0
		}
		cost := sumSquares(errVec)
		if gradient != nil {
			perturbed := make([]float64, len(x))
			for j := range x {
				copy(perturbed, x)
				perturbed[j] += ik.jump
				errPerturbed, err := goalErrors(ik.model, goalOrder, goals, referenceframe.FloatsToInputs(perturbed))
				if err != nil {
					objErr = err
					return 0
				}
				gradient[j] = (sumSquares(errPerturbed) - cost) / ik.jump
			}
		}
		return cost
	}

	tolerance := ik.Epsilon * ik.Epsilon
	err = multierr.Combine(
		opt.SetLowerBounds(lower),
		opt.SetUpperBounds(upper),
		opt.SetMinObjective(objective),
		opt.SetStopVal(tolerance),
		opt.SetFtolAbs(tolerance/10),
		opt.SetXtolAbs1(1e-10),
		opt.SetMaxEval(ik.MaxEvaluations),
	)
	if err != nil {
		return nil, IKMaxIterations, errors.Wrap(err, "nlopt setup error")
	}

	solution, cost, nloptErr := opt.Optimize(referenceframe.InputsToFloats(seed))
	if objErr != nil {
		return nil, IKMaxIterations, objErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, IKMaxIterations, ctxErr
	}
	if nloptErr != nil && !tolerableNloptError(nloptErr) {
		return nil, IKMaxIterations, errors.Wrap(nloptErr, "nlopt optimization error")
	}
	if cost < tolerance {
		return referenceframe.FloatsToInputs(solution), IKSuccess, nil
	}
	return nil, IKMaxIterations, nil
}

// tolerableNloptError reports whether an Optimize error still leaves a usable result.
// Roundoff-limited and budget-exhausted runs return their best point.
func tolerableNloptError(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "ROUNDOFF") || strings.Contains(msg, "MAXEVAL") || strings.Contains(msg, "MAXTIME")
}
