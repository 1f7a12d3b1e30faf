package referenceframe

import (
	"math"
)

// Input wraps the input to a frame, e.g. a joint angle in radians or a prismatic
// displacement in mm. Wrapping prevents bare float slices of different meanings
// from being passed where joint positions are expected.
type Input struct {
	Value float64
}

// Limit defines the minimum and maximum allowed value for an Input.
type Limit struct {
	Min float64
	Max float64
}

// FreeLimit is the limit of a continuous joint, which may take any value.
var FreeLimit = Limit{Min: math.Inf(-1), Max: math.Inf(1)}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps a slice of Inputs to raw floats.
func InputsToFloats(inputs []Input) []float64 {
	floats := make([]float64, len(inputs))
	for i, f := range inputs {
		floats[i] = f.Value
	}
	return floats
}
