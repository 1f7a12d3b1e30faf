package referenceframe

import (
	"encoding/json"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/planworld/planworld/spatialmath"
	"github.com/planworld/planworld/utils"
)

// ModelConfig represents the JSON description of a kinematic model. Kinematic
// parameters may be given either as an explicit frame tree ("frames") or as a
// list of modified Denavit-Hartenberg parameters ("DH").
type ModelConfig struct {
	Name         string        `json:"name"`
	KinParamType string        `json:"kinematic_param_type,omitempty"`
	Links        []LinkConfig  `json:"links,omitempty"`
	Joints       []JointConfig `json:"joints,omitempty"`
	DHParams     []DHParam     `json:"dhParams,omitempty"`
}

// LinkConfig is the JSON description of a fixed link frame.
type LinkConfig struct {
	ID          string                        `json:"id"`
	Parent      string                        `json:"parent"`
	Translation r3.Vector                     `json:"translation"`
	Orientation spatialmath.R4AA              `json:"orientation"`
	Geometry    *spatialmath.GeometryConfig   `json:"geometry,omitempty"`
}

// JointConfig is the JSON description of a single degree of freedom. Limits
// are degrees for revolute joints and mm for prismatic ones.
type JointConfig struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Parent string    `json:"parent"`
	Axis   r3.Vector `json:"axis"`
	Max    float64   `json:"max"`
	Min    float64   `json:"min"`
}

// DHParam is the JSON description of one modified DH parameter set. A joint
// rotating about Z is implied between the parent and the link the parameters
// describe.
type DHParam struct {
	ID     string  `json:"id"`
	Parent string  `json:"parent"`
	A      float64 `json:"a"`
	D      float64 `json:"d"`
	Alpha  float64 `json:"alpha"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
}

// UnmarshalModelJSON will parse the given JSON data into a kinematic model.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*Model, error) {
	config := &ModelConfig{}
	if err := json.Unmarshal(jsonData, config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal model json")
	}
	return config.ParseConfig(modelName)
}

// ParseModelJSONFile will read a given file and parse the contained kinematic model.
func ParseModelJSONFile(filename, modelName string) (*Model, error) {
	jsonData, err := os.ReadFile(filename) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}

// ParseConfig converts the ModelConfig into a Model.
func (config *ModelConfig) ParseConfig(modelName string) (*Model, error) {
	if modelName == "" {
		modelName = config.Name
	}
	switch config.KinParamType {
	case "", "frames":
		return config.parseFrames(modelName)
	case "DH":
		return config.parseDH(modelName)
	default:
		return nil, errors.Errorf("unsupported kinematic_param_type %q", config.KinParamType)
	}
}

// frameSpec is one pending frame during tree assembly.
type frameSpec struct {
	name   string
	parent string
	make   func() (Frame, spatialmath.Geometry, error)
}

func (config *ModelConfig) parseFrames(modelName string) (*Model, error) {
	if len(config.Links) == 0 {
		return nil, ErrNoModelInformation
	}
	specs := make([]frameSpec, 0, len(config.Links)+len(config.Joints))
	for _, link := range config.Links {
		link := link
		specs = append(specs, frameSpec{link.ID, link.Parent, func() (Frame, spatialmath.Geometry, error) {
			pose := spatialmath.NewPose(link.Translation, &link.Orientation)
			frame, err := NewStaticFrame(link.ID, pose)
			if err != nil {
				return nil, nil, err
			}
			var geometry spatialmath.Geometry
			if link.Geometry != nil {
				geometry, err = link.Geometry.ParseConfig()
				if err != nil {
					return nil, nil, err
				}
			}
			return frame, geometry, nil
		}})
	}
	for _, joint := range config.Joints {
		joint := joint
		specs = append(specs, frameSpec{joint.ID, joint.Parent, func() (Frame, spatialmath.Geometry, error) {
			frame, err := joint.toFrame()
			return frame, nil, err
		}})
	}
	return assembleTree(modelName, specs)
}

func (j *JointConfig) toFrame() (Frame, error) {
	switch j.Type {
	case "revolute":
		return NewRotationalFrame(j.ID,
			spatialmath.R4AA{RX: j.Axis.X, RY: j.Axis.Y, RZ: j.Axis.Z},
			Limit{Min: utils.DegToRad(j.Min), Max: utils.DegToRad(j.Max)})
	case "continuous":
		return NewRotationalFrame(j.ID,
			spatialmath.R4AA{RX: j.Axis.X, RY: j.Axis.Y, RZ: j.Axis.Z},
			FreeLimit)
	case "prismatic":
		return NewTranslationalFrame(j.ID, j.Axis, Limit{Min: j.Min, Max: j.Max})
	default:
		return nil, NewUnsupportedJointTypeError(j.Type)
	}
}

// assembleTree adds frames to a model in dependency order, erroring on unknown
// parents and cycles.
func assembleTree(modelName string, specs []frameSpec) (*Model, error) {
	model := NewModel(modelName)
	remaining := specs
	for len(remaining) > 0 {
		next := remaining[:0]
		progress := false
		for _, spec := range remaining {
			if spec.parent != "" && spec.parent != "world" && !model.HasFrame(spec.parent) {
				next = append(next, spec)
				continue
			}
			frame, geometry, err := spec.make()
			if err != nil {
				return nil, err
			}
			if err := model.AddFrame(frame, spec.parent, geometry); err != nil {
				return nil, err
			}
			progress = true
		}
		if !progress {
			return nil, errors.Errorf("model %q has unreachable frames, check for cycles or unknown parents", modelName)
		}
		remaining = next
	}
	return model, nil
}

func (config *ModelConfig) parseDH(modelName string) (*Model, error) {
	if len(config.DHParams) == 0 {
		return nil, ErrNoModelInformation
	}
	model := NewModel(modelName)
	for _, dh := range config.DHParams {
		jointName := dh.ID
		linkName := dh.ID + "_link"

		frame, err := NewRotationalFrame(jointName,
			spatialmath.R4AA{RZ: 1},
			Limit{Min: utils.DegToRad(dh.Min), Max: utils.DegToRad(dh.Max)})
		if err != nil {
			return nil, err
		}
		parent := dh.Parent
		if parent != "" && parent != "world" {
			parent += "_link"
		}
		if err := model.AddFrame(frame, parent, nil); err != nil {
			return nil, err
		}

		linkFrame, err := NewStaticFrame(linkName, dhToPose(dh.A, dh.D, dh.Alpha))
		if err != nil {
			return nil, err
		}
		if err := model.AddFrame(linkFrame, jointName, nil); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// dhToPose computes the fixed link transform Trans_z(d) * Trans_x(a) * Rot_x(alpha)
// of a modified DH parameter set. The joint rotation about Z is handled by the
// rotational frame preceding the link.
func dhToPose(a, d, alpha float64) spatialmath.Pose {
	m := mgl64.Translate3D(a, 0, d).Mul4(mgl64.HomogRotate3DX(alpha))
	rm := spatialmath.NewRotationMatrix([9]float64{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
		m.At(2, 0), m.At(2, 1), m.At(2, 2),
	})
	return spatialmath.NewPose(r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}, rm)
}
