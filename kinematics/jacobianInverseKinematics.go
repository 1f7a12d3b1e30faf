package kinematics

import (
	"context"
	"sort"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
	"github.com/planworld/planworld/utils"
)

// JacobianIK solves inverse kinematics by damped least squares iteration. The
// Jacobian is computed by finite differences so it works for any Model without
// analytic derivatives.
type JacobianIK struct {
	model  *referenceframe.Model
	logger golog.Logger

	// MaxIterations bounds the number of Newton steps per solve.
	MaxIterations int
	// Epsilon is the error norm below which a solve is converged.
	Epsilon float64

	lambda  float64 // damping factor added to singular values
	step    float64 // finite difference perturbation, radians or mm
	maxStep float64 // largest joint-space step per iteration
}

// NewJacobianIK creates a damped least squares IK solver for the given model.
func NewJacobianIK(model *referenceframe.Model, logger golog.Logger) *JacobianIK {
	return &JacobianIK{
		model:         model,
		logger:        logger,
		MaxIterations: 500,
		Epsilon:       defaultEpsilon,
		lambda:        0.1,
		step:          1e-6,
		maxStep:       0.5,
	}
}

// Solve runs damped least squares iteration from the seed until the stacked
// goal error converges, the iteration budget runs out, or the Jacobian becomes
// singular.
func (ik *JacobianIK) Solve(
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
	lower, upper := limitsToBounds(dof)

	q := referenceframe.InputsToFloats(seed)
	n := len(q)
	m := 6 * len(goalOrder)

	for iteration := 0; iteration < ik.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, IKMaxIterations, err
		}
		errVec, err := goalErrors(ik.model, goalOrder, goals, referenceframe.FloatsToInputs(q))
		if err != nil {
			return nil, IKMaxIterations, err
		}
		if errNorm(errVec) < ik.Epsilon {
			return referenceframe.FloatsToInputs(q), IKSuccess, nil
		}

		jacobian, err := ik.numericalJacobian(goalOrder, goals, q, errVec, m, n)
		if err != nil {
			return nil, IKMaxIterations, err
		}

		dq, singular := ik.dampedStep(jacobian, errVec, m, n)
		if singular {
			ik.logger.Debugw("jacobian singular", "iteration", iteration)
			return nil, IKSingular, nil
		}

		// limit the joint-space step so linearization stays valid
		stepNorm := 0.
		for _, d := range dq {
			stepNorm += d * d
		}
		scale := 1.
		if stepNorm > ik.maxStep*ik.maxStep {
			scale = ik.maxStep / errNorm(dq)
		}
		for i := range q {
			q[i] = utils.Clamp(q[i]+dq[i]*scale, lower[i], upper[i])
		}
	}
	return nil, IKMaxIterations, nil
}

// numericalJacobian computes d(error)/d(q) one joint at a time by forward differences.
func (ik *JacobianIK) numericalJacobian(
	goalOrder []string,
	goals map[string]spatialmath.Pose,
	q, errVec []float64,
	m, n int,
) (*mat.Dense, error) {
	jacobian := mat.NewDense(m, n, nil)
	perturbed := make([]float64, n)
	for j := 0; j < n; j++ {
		copy(perturbed, q)
		perturbed[j] += ik.step
		errPerturbed, err := goalErrors(ik.model, goalOrder, goals, referenceframe.FloatsToInputs(perturbed))
		if err != nil {
			return nil, err
		}
		for i := 0; i < m; i++ {
			jacobian.Set(i, j, (errPerturbed[i]-errVec[i])/ik.step)
		}
	}
	return jacobian, nil
}

// dampedStep solves for the joint update dq = -V diag(sigma/(sigma^2+lambda^2)) U^T e
// using the SVD of the Jacobian. It reports a singular Jacobian when every
// singular value has collapsed.
func (ik *JacobianIK) dampedStep(jacobian *mat.Dense, errVec []float64, m, n int) ([]float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(jacobian, mat.SVDThin) {
		return nil, true
	}
	values := svd.Values(nil)
	singular := true
	for _, sigma := range values {
		if sigma > 1e-10 {
			singular = false
			break
		}
	}
	if singular {
		return nil, true
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	k := len(values)
	// w = diag(sigma/(sigma^2+lambda^2)) U^T e
	w := make([]float64, k)
	for i := 0; i < k; i++ {
		acc := 0.
		for r := 0; r < m; r++ {
			acc += u.At(r, i) * errVec[r]
		}
		w[i] = acc * values[i] / (values[i]*values[i] + ik.lambda*ik.lambda)
	}
	dq := make([]float64, n)
	for j := 0; j < n; j++ {
		acc := 0.
		for i := 0; i < k; i++ {
			acc += v.At(j, i) * w[i]
		}
		// error decreases along the negative gradient of the linearized system
		dq[j] = -acc
	}
	return dq, false
}
