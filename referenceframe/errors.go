package referenceframe

import (
	"github.com/pkg/errors"
)

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// NewIncorrectInputLengthError returns an error describing an incorrect number of inputs.
func NewIncorrectInputLengthError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}

// NewFrameNotInModelError returns an error for frame names absent from a model.
func NewFrameNotInModelError(frameName string) error {
	return errors.Errorf("frame with name %q not in model", frameName)
}

// NewDuplicateFrameError returns an error for a frame name used twice in one model.
func NewDuplicateFrameError(frameName string) error {
	return errors.Errorf("frame with name %q already in model", frameName)
}

// NewUnsupportedJointTypeError returns an error for unrecognized joint types in model files.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type %q", jointType)
}
