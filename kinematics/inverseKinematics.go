// Package kinematics provides inverse kinematics solvers over kinematic-tree models.
package kinematics

import (
	"context"
	"math"

	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
	"github.com/planworld/planworld/utils"
)

// Status describes how an IK solve ended. Non-convergence is reported as a
// status, not an error; errors are reserved for malformed requests.
type Status int

const (
	// IKSuccess means a solution within tolerance was found.
	IKSuccess Status = iota
	// IKMaxIterations means the iteration or evaluation budget ran out first.
	IKMaxIterations
	// IKSingular means the solver stalled at a singular configuration.
	IKSingular
)

func (s Status) String() string {
	switch s {
	case IKSuccess:
		return "Success"
	case IKMaxIterations:
		return "MaxIterations"
	case IKSingular:
		return "Singular"
	default:
		return "Unknown"
	}
}

// InverseKinematics solves for joint positions that place a set of model links
// at goal poses. A single-goal request on a serial chain is the common case;
// multiple goals constrain a tree. The seed determines both the start point
// and which solution basin is found.
type InverseKinematics interface {
	Solve(ctx context.Context, goals map[string]spatialmath.Pose, seed []referenceframe.Input) ([]referenceframe.Input, Status, error)
}

// defaultEpsilon is the pose error norm below which a solve counts as converged.
const defaultEpsilon = 1e-4

// orientationWeight scales the rotational part of the pose error relative to
// the translational part, which is in mm.
const orientationWeight = 10.

// goalErrors stacks the weighted 6-vector pose deltas from the current
// configuration to every goal, in the iteration order of goalOrder.
func goalErrors(model *referenceframe.Model, goalOrder []string, goals map[string]spatialmath.Pose, inputs []referenceframe.Input) ([]float64, error) {
	errs := make([]float64, 0, 6*len(goalOrder))
	poses, err := model.LinkPoses(inputs)
	if err != nil {
		return nil, err
	}
	for _, linkName := range goalOrder {
		current, ok := poses[linkName]
		if !ok {
			return nil, referenceframe.NewFrameNotInModelError(linkName)
		}
		delta := spatialmath.PoseDelta(current, goals[linkName])
		for i := 3; i < 6; i++ {
			delta[i] *= orientationWeight
		}
		errs = append(errs, delta...)
	}
	return errs, nil
}

// errNorm is the L2 norm of a stacked goal error vector.
func errNorm(errs []float64) float64 {
	return math.Sqrt(sumSquares(errs))
}

// sumSquares is the squared L2 norm, the objective nlopt minimizes.
func sumSquares(errs []float64) float64 {
	acc := 0.
	for _, e := range errs {
		acc += utils.Square(e)
	}
	return acc
}

// limitsToBounds converts joint limits to finite solver bounds. Continuous
// joints get a generous but finite range.
func limitsToBounds(limits []referenceframe.Limit) (lower, upper []float64) {
	lower = make([]float64, len(limits))
	upper = make([]float64, len(limits))
	for i, limit := range limits {
		lower[i] = limit.Min
		upper[i] = limit.Max
		if math.IsInf(lower[i], -1) {
			lower[i] = -999
		}
		if math.IsInf(upper[i], 1) {
			upper[i] = 999
		}
	}
	return lower, upper
}
