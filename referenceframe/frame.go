// Package referenceframe defines frames of reference, joint limits, and
// kinematic-tree models used to compute where articulated bodies are in space.
package referenceframe

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/planworld/planworld/spatialmath"
)

// Frame represents a reference frame, e.g. an arm, a joint, or a gripper.
// It can have a offset in some parent frame and that offset may be a function
// of the frame's inputs.
type Frame interface {
	// Name returns the name of the frame.
	Name() string

	// Transform is the pose (rotation and translation) that goes from the
	// parent frame to this frame, for the given inputs.
	Transform([]Input) (spatialmath.Pose, error)

	// DoF are the degrees of freedom of the frame, 0 for a static frame.
	DoF() []Limit

	fmt.Stringer
}

// a static Frame is a simple corrdinate system that encodes a fixed translation
// and rotation from the current frame to the parent frame.
type staticFrame struct {
	name      string
	transform spatialmath.Pose
}

// NewStaticFrame creates a frame given a pose relative to its parent. The pose
// is fixed for all time. Pose is not allowed to be nil.
func NewStaticFrame(name string, pose spatialmath.Pose) (Frame, error) {
	if pose == nil {
		return nil, fmt.Errorf("pose is not allowed to be nil for frame %q", name)
	}
	return &staticFrame{name, pose}, nil
}

// NewZeroStaticFrame creates a frame with no translation or rotation changes.
func NewZeroStaticFrame(name string) Frame {
	return &staticFrame{name, spatialmath.NewZeroPose()}
}

// Name returns the name of the frame.
func (sf *staticFrame) Name() string {
	return sf.name
}

// Transform returns the constant pose of the static frame. An empty input is expected.
func (sf *staticFrame) Transform(input []Input) (spatialmath.Pose, error) {
	if len(input) != 0 {
		return nil, NewIncorrectInputLengthError(len(input), 0)
	}
	return sf.transform, nil
}

// DoF returns an empty slice, a static frame has no degrees of freedom.
func (sf *staticFrame) DoF() []Limit {
	return []Limit{}
}

func (sf *staticFrame) String() string {
	pt := sf.transform.Point()
	return fmt.Sprintf("staticFrame %q at X:%.1f, Y:%.1f, Z:%.1f", sf.name, pt.X, pt.Y, pt.Z)
}

// a rotationalFrame is a frame that performs a rotation about a fixed axis.
type rotationalFrame struct {
	name    string
	rotAxis r3.Vector
	limit   Limit
}

// NewRotationalFrame creates a frame which rotates about the given axis by its
// single input, in radians. Use FreeLimit for a continuous joint.
func NewRotationalFrame(name string, axis spatialmath.R4AA, limit Limit) (Frame, error) {
	axis.Normalize()
	return &rotationalFrame{
		name:    name,
		rotAxis: r3.Vector{X: axis.RX, Y: axis.RY, Z: axis.RZ},
		limit:   limit,
	}, nil
}

// Name returns the name of the frame.
func (rf *rotationalFrame) Name() string {
	return rf.name
}

// Transform returns the Pose representing the frame's input rotation about its axis.
func (rf *rotationalFrame) Transform(input []Input) (spatialmath.Pose, error) {
	if len(input) != 1 {
		return nil, NewIncorrectInputLengthError(len(input), 1)
	}
	return spatialmath.NewPoseFromAxisAngle(r3.Vector{}, rf.rotAxis, input[0].Value), nil
}

// DoF returns the single limit of the rotational frame.
func (rf *rotationalFrame) DoF() []Limit {
	return []Limit{rf.limit}
}

func (rf *rotationalFrame) String() string {
	return fmt.Sprintf("rotationalFrame %q about X:%.2f, Y:%.2f, Z:%.2f", rf.name, rf.rotAxis.X, rf.rotAxis.Y, rf.rotAxis.Z)
}

// a translationalFrame is a frame that translates along a fixed axis.
type translationalFrame struct {
	name      string
	transAxis r3.Vector
	limit     Limit
}

// NewTranslationalFrame creates a frame which translates along the given axis
// by its single input, in mm.
func NewTranslationalFrame(name string, axis r3.Vector, limit Limit) (Frame, error) {
	if axis.Norm() == 0 {
		return nil, fmt.Errorf("cannot use zero vector as translation axis for frame %q", name)
	}
	return &translationalFrame{name: name, transAxis: axis.Normalize(), limit: limit}, nil
}

// Name returns the name of the frame.
func (tf *translationalFrame) Name() string {
	return tf.name
}

// Transform returns a pose translated along the frame's axis by the input value.
func (tf *translationalFrame) Transform(input []Input) (spatialmath.Pose, error) {
	if len(input) != 1 {
		return nil, NewIncorrectInputLengthError(len(input), 1)
	}
	return spatialmath.NewPoseFromPoint(tf.transAxis.Mul(input[0].Value)), nil
}

// DoF returns the single limit of the translational frame.
func (tf *translationalFrame) DoF() []Limit {
	return []Limit{tf.limit}
}

func (tf *translationalFrame) String() string {
	return fmt.Sprintf("translationalFrame %q along X:%.2f, Y:%.2f, Z:%.2f", tf.name, tf.transAxis.X, tf.transAxis.Y, tf.transAxis.Z)
}

// InputsAtLimits checks whether the given inputs are within the given limits,
// returning the first out of range input index, or -1 if all are in range.
func InputsAtLimits(inputs []Input, limits []Limit) int {
	for i, input := range inputs {
		if i >= len(limits) {
			return i
		}
		if input.Value < limits[i].Min || input.Value > limits[i].Max {
			return i
		}
	}
	return -1
}
