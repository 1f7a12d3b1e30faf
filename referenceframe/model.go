package referenceframe

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/planworld/planworld/spatialmath"
)

// treeFrame is a node of a kinematic tree, a Frame plus its parent and an
// optional collision geometry expressed in the frame.
type treeFrame struct {
	frame    Frame
	parent   int // index of the parent treeFrame, -1 if attached to the world
	geometry spatialmath.Geometry
}

// Model is a kinematic tree of frames. Frames are stored in topological order,
// a parent always precedes its children, so forward kinematics is a single
// in-order pass. Joints, the frames with nonzero DoF, are exposed to callers
// in a user-specified order. The user order is an explicit permutation over
// the tree order, built when the model is constructed or reordered, never
// inferred at call time.
type Model struct {
	name     string
	frames   []treeFrame
	frameIdx map[string]int

	joints     []int // frame indices with nonzero DoF, in tree order
	jointOf    map[int]int
	userToTree []int // user joint position -> position in joints
	treeToUser []int
}

// NewModel constructs an empty kinematic tree with the given name.
func NewModel(name string) *Model {
	return &Model{
		name:     name,
		frameIdx: map[string]int{},
		jointOf:  map[int]int{},
	}
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// ChangeName changes the name of the model, used when worlds register a model
// under a caller-chosen name.
func (m *Model) ChangeName(name string) {
	m.name = name
}

// AddFrame appends a frame to the tree under the named parent. The parent must
// already be in the tree; an empty parent name attaches the frame to the world.
// The geometry, if not nil, is expressed in the new frame and may be nil.
func (m *Model) AddFrame(f Frame, parentName string, geometry spatialmath.Geometry) error {
	if _, ok := m.frameIdx[f.Name()]; ok {
		return NewDuplicateFrameError(f.Name())
	}
	parent := -1
	if parentName != "" && parentName != "world" {
		p, ok := m.frameIdx[parentName]
		if !ok {
			return NewFrameNotInModelError(parentName)
		}
		parent = p
	}
	idx := len(m.frames)
	m.frames = append(m.frames, treeFrame{frame: f, parent: parent, geometry: geometry})
	m.frameIdx[f.Name()] = idx
	if len(f.DoF()) > 0 {
		m.jointOf[idx] = len(m.joints)
		m.userToTree = append(m.userToTree, len(m.joints))
		m.treeToUser = append(m.treeToUser, len(m.joints))
		m.joints = append(m.joints, idx)
	}
	return nil
}

// ReorderJoints sets the user-facing joint order to the given permutation of
// joint names. All joint inputs and indices exposed by the model follow this
// order afterwards.
func (m *Model) ReorderJoints(names []string) error {
	if len(names) != len(m.joints) {
		return errors.Errorf("joint order for model %q must name all %d joints, got %d", m.name, len(m.joints), len(names))
	}
	userToTree := make([]int, len(names))
	treeToUser := make([]int, len(names))
	seen := map[int]bool{}
	for userPos, name := range names {
		idx, ok := m.frameIdx[name]
		if !ok {
			return NewFrameNotInModelError(name)
		}
		treePos, ok := m.jointOf[idx]
		if !ok {
			return errors.Errorf("frame %q in model %q is not a joint", name, m.name)
		}
		if seen[treePos] {
			return errors.Errorf("joint %q repeated in joint order for model %q", name, m.name)
		}
		seen[treePos] = true
		userToTree[userPos] = treePos
		treeToUser[treePos] = userPos
	}
	m.userToTree = userToTree
	m.treeToUser = treeToUser
	return nil
}

// DoF returns the joint limits of the model in user joint order.
func (m *Model) DoF() []Limit {
	limits := make([]Limit, 0, len(m.joints))
	for _, treePos := range m.userToTree {
		limits = append(limits, m.frames[m.joints[treePos]].frame.DoF()[0])
	}
	return limits
}

// JointNames returns the names of the model's joints in user joint order.
func (m *Model) JointNames() []string {
	names := make([]string, 0, len(m.joints))
	for _, treePos := range m.userToTree {
		names = append(names, m.frames[m.joints[treePos]].frame.Name())
	}
	return names
}

// LinkNames returns the names of all frames in the tree, in tree order.
func (m *Model) LinkNames() []string {
	names := make([]string, 0, len(m.frames))
	for _, tf := range m.frames {
		names = append(names, tf.frame.Name())
	}
	return names
}

// HasFrame returns whether a frame of the given name is in the model.
func (m *Model) HasFrame(name string) bool {
	_, ok := m.frameIdx[name]
	return ok
}

// treeOrderInputs converts user joint order inputs into tree order.
func (m *Model) treeOrderInputs(inputs []Input) ([]Input, error) {
	if len(inputs) != len(m.joints) {
		return nil, NewIncorrectInputLengthError(len(inputs), len(m.joints))
	}
	ordered := make([]Input, len(inputs))
	for userPos, input := range inputs {
		ordered[m.userToTree[userPos]] = input
	}
	return ordered, nil
}

// framePoses computes the world pose of every frame in the tree for the given
// user-order inputs.
func (m *Model) framePoses(inputs []Input) ([]spatialmath.Pose, error) {
	ordered, err := m.treeOrderInputs(inputs)
	if err != nil {
		return nil, err
	}
	poses := make([]spatialmath.Pose, len(m.frames))
	for i, tf := range m.frames {
		var frameInputs []Input
		if treePos, ok := m.jointOf[i]; ok {
			frameInputs = ordered[treePos : treePos+1]
		}
		local, err := tf.frame.Transform(frameInputs)
		if err != nil {
			return nil, err
		}
		if tf.parent == -1 {
			poses[i] = local
		} else {
			poses[i] = spatialmath.Compose(poses[tf.parent], local)
		}
	}
	return poses, nil
}

// Transform computes forward kinematics and returns the world pose of the last
// frame in the tree, the end effector of a serial chain. Tree models with
// multiple leaves should use LinkPose instead.
func (m *Model) Transform(inputs []Input) (spatialmath.Pose, error) {
	if len(m.frames) == 0 {
		return nil, ErrNoModelInformation
	}
	poses, err := m.framePoses(inputs)
	if err != nil {
		return nil, err
	}
	return poses[len(poses)-1], nil
}

// LinkPose computes forward kinematics and returns the world pose of the named frame.
func (m *Model) LinkPose(inputs []Input, linkName string) (spatialmath.Pose, error) {
	idx, ok := m.frameIdx[linkName]
	if !ok {
		return nil, NewFrameNotInModelError(linkName)
	}
	poses, err := m.framePoses(inputs)
	if err != nil {
		return nil, err
	}
	return poses[idx], nil
}

// LinkPoses computes forward kinematics and returns the world pose of every
// frame, keyed by frame name.
func (m *Model) LinkPoses(inputs []Input) (map[string]spatialmath.Pose, error) {
	poses, err := m.framePoses(inputs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]spatialmath.Pose, len(poses))
	for i, tf := range m.frames {
		out[tf.frame.Name()] = poses[i]
	}
	return out, nil
}

// LinkGeometry is a geometry posed in world frame along with the link it belongs to.
type LinkGeometry struct {
	LinkName string
	Geometry spatialmath.Geometry
}

// Geometries returns the model's collision geometries posed in world frame for
// the given inputs, in tree order. Geometry labels are model:link qualified.
func (m *Model) Geometries(inputs []Input) ([]LinkGeometry, error) {
	poses, err := m.framePoses(inputs)
	if err != nil {
		return nil, err
	}
	geometries := make([]LinkGeometry, 0, len(m.frames))
	for i, tf := range m.frames {
		if tf.geometry == nil {
			continue
		}
		posed := tf.geometry.Transform(poses[i])
		posed.SetLabel(m.name + ":" + tf.frame.Name())
		geometries = append(geometries, LinkGeometry{LinkName: tf.frame.Name(), Geometry: posed})
	}
	return geometries, nil
}

// ChainJointIndexes returns the user-order indices of every joint on a path
// from the tree root to any of the named frames, ascending and deduplicated.
// This is the joint set a planner moves when the named frames are the end
// effectors of interest.
func (m *Model) ChainJointIndexes(linkNames ...string) ([]int, error) {
	indexSet := map[int]bool{}
	for _, linkName := range linkNames {
		idx, ok := m.frameIdx[linkName]
		if !ok {
			return nil, NewFrameNotInModelError(linkName)
		}
		for idx != -1 {
			if treePos, ok := m.jointOf[idx]; ok {
				indexSet[m.treeToUser[treePos]] = true
			}
			idx = m.frames[idx].parent
		}
	}
	indexes := make([]int, 0, len(indexSet))
	for i := range indexSet {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes, nil
}

// AreJointPositionsValid returns whether the given user-order inputs are
// within the model's joint limits.
func (m *Model) AreJointPositionsValid(inputs []Input) bool {
	if len(inputs) != len(m.joints) {
		return false
	}
	return InputsAtLimits(inputs, m.DoF()) == -1
}
