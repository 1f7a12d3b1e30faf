// Package utils contains small math helpers shared across the library.
package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual determines if two float64s are within a given epsilon of each other.
func Float64AlmostEqual(v1, v2, epsilon float64) bool {
	return math.Abs(v1-v2) <= epsilon
}

// Clamp returns min if value is lesser than min, max if value is greater than max, and value otherwise.
func Clamp(value, min, max float64) float64 {
	switch {
	case value < min:
		return min
	case value > max:
		return max
	}
	return value
}

// Square is faster than math.Pow(x, 2).
func Square(n float64) float64 {
	return n * n
}
