package planningworld

import (
	"github.com/pkg/errors"
)

// NewDuplicateNameError is returned when a name is already taken in a registry namespace.
func NewDuplicateNameError(kind, name string) error {
	return errors.Errorf("%s with name %q already in world", kind, name)
}

// NewNotFoundError is returned when operating on a name not in the world.
func NewNotFoundError(kind, name string) error {
	return errors.Errorf("%s with name %q not in world", kind, name)
}

// NewObjectAttachedError is returned when an operation requires a free object.
// Attached objects must be explicitly detached first.
func NewObjectAttachedError(name string) error {
	return errors.Errorf("object %q is attached, detach it first", name)
}

// NewObjectNotAttachedError is returned when detaching an object that is free.
func NewObjectNotAttachedError(name string) error {
	return errors.Errorf("object %q is not attached", name)
}

// NewAttachRequestError is returned when an attach request does not name
// exactly one object variant, existing or inline.
func NewAttachRequestError() error {
	return errors.New("attach request must set exactly one of ObjectName or NewObjectName+Geometry")
}

// NewConfigurationLengthError is returned for wrongly sized configuration vectors.
// The rejected call leaves the world configuration unchanged.
func NewConfigurationLengthError(what string, actual, expected int) error {
	return errors.Errorf("wrong %s configuration length, expected %d but got %d", what, expected, actual)
}
