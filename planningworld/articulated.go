// Package planningworld maintains a mutable scene of articulated bodies and
// collision objects and answers aggregate collision and distance queries over
// it. It is the single source of truth for what exists in the scene and
// whether it is currently colliding.
package planningworld

import (
	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
)

// ArticulatedModel wraps a kinematic-tree model with a current configuration
// and a move group, the joint subset a planner is allowed to vary. Its name is
// assigned by the world at registration.
type ArticulatedModel struct {
	name  string
	model *referenceframe.Model

	qpos      []referenceframe.Input // full configuration, user joint order
	moveGroup []int                  // user-order joint indices, ascending, deduplicated

	// forward kinematics products at the current qpos
	linkPoses  map[string]spatialmath.Pose
	geometries []referenceframe.LinkGeometry
}

// newArticulatedModel wraps a model at the zero configuration with every joint
// in the move group.
func newArticulatedModel(name string, model *referenceframe.Model) (*ArticulatedModel, error) {
	model.ChangeName(name)
	dof := len(model.DoF())
	moveGroup := make([]int, dof)
	for i := range moveGroup {
		moveGroup[i] = i
	}
	am := &ArticulatedModel{
		name:      name,
		model:     model,
		qpos:      make([]referenceframe.Input, dof),
		moveGroup: moveGroup,
	}
	if err := am.refresh(); err != nil {
		return nil, err
	}
	return am, nil
}

// Name returns the world-assigned name of the articulation.
func (am *ArticulatedModel) Name() string {
	return am.name
}

// Model returns the underlying kinematic model.
func (am *ArticulatedModel) Model() *referenceframe.Model {
	return am.model
}

// Qpos returns a copy of the current full configuration, in user joint order.
func (am *ArticulatedModel) Qpos() []referenceframe.Input {
	out := make([]referenceframe.Input, len(am.qpos))
	copy(out, am.qpos)
	return out
}

// MoveGroup returns a copy of the current move-group joint indices.
func (am *ArticulatedModel) MoveGroup() []int {
	out := make([]int, len(am.moveGroup))
	copy(out, am.moveGroup)
	return out
}

// MoveGroupDim is the reduced configuration dimension, the number of values
// SetQpos expects when full is false.
func (am *ArticulatedModel) MoveGroupDim() int {
	return len(am.moveGroup)
}

// MoveGroupJointNames returns the names of the move-group joints, for
// reporting what a planner is actually solving over.
func (am *ArticulatedModel) MoveGroupJointNames() []string {
	all := am.model.JointNames()
	names := make([]string, 0, len(am.moveGroup))
	for _, idx := range am.moveGroup {
		names = append(names, all[idx])
	}
	return names
}

// MoveGroupLimits returns the joint limits of the move-group joints, in
// move-group order.
func (am *ArticulatedModel) MoveGroupLimits() []referenceframe.Limit {
	all := am.model.DoF()
	limits := make([]referenceframe.Limit, 0, len(am.moveGroup))
	for _, idx := range am.moveGroup {
		limits = append(limits, all[idx])
	}
	return limits
}

// SetMoveGroup recomputes the move group as the union of all joints on the
// kinematic paths from the tree root to each named link, ascending and
// deduplicated.
func (am *ArticulatedModel) SetMoveGroup(endEffectorLinks ...string) error {
	indexes, err := am.model.ChainJointIndexes(endEffectorLinks...)
	if err != nil {
		return err
	}
	am.moveGroup = indexes
	return nil
}

// SetQpos updates the configuration and recomputes link poses and geometries.
// With full true the vector replaces the entire configuration; otherwise it
// must have exactly the move group's reduced dimension and is scattered into
// the move-group joint slots, leaving all other joints untouched. A size
// mismatch fails before any mutation.
func (am *ArticulatedModel) SetQpos(q []referenceframe.Input, full bool) error {
	if full {
		if len(q) != len(am.qpos) {
			return NewConfigurationLengthError("full", len(q), len(am.qpos))
		}
		updated := make([]referenceframe.Input, len(q))
		copy(updated, q)
		return am.apply(updated)
	}
	if len(q) != len(am.moveGroup) {
		return NewConfigurationLengthError("move-group", len(q), len(am.moveGroup))
	}
	updated := make([]referenceframe.Input, len(am.qpos))
	copy(updated, am.qpos)
	for i, idx := range am.moveGroup {
		updated[idx] = q[i]
	}
	return am.apply(updated)
}

// apply installs a candidate configuration, keeping the previous one on FK failure.
func (am *ArticulatedModel) apply(updated []referenceframe.Input) error {
	previous := am.qpos
	am.qpos = updated
	if err := am.refresh(); err != nil {
		am.qpos = previous
		if refreshErr := am.refresh(); refreshErr != nil {
			return refreshErr
		}
		return err
	}
	return nil
}

// refresh recomputes the forward kinematics products for the current qpos.
func (am *ArticulatedModel) refresh() error {
	linkPoses, err := am.model.LinkPoses(am.qpos)
	if err != nil {
		return err
	}
	geometries, err := am.model.Geometries(am.qpos)
	if err != nil {
		return err
	}
	am.linkPoses = linkPoses
	am.geometries = geometries
	return nil
}

// LinkPose returns the world pose of the named link at the current configuration.
func (am *ArticulatedModel) LinkPose(linkName string) (spatialmath.Pose, error) {
	pose, ok := am.linkPoses[linkName]
	if !ok {
		return nil, referenceframe.NewFrameNotInModelError(linkName)
	}
	return pose, nil
}

// Geometries returns the articulation's link geometries posed at the current configuration.
func (am *ArticulatedModel) Geometries() []referenceframe.LinkGeometry {
	return am.geometries
}
