// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vision provides the geometric primitives consumed by the shape
// agent: points with confidence, line segments, and circular arcs.
package vision

import "math"

// PointPlus is a point in 2-D (optionally 3-D) space carrying a confidence
// value. Arithmetic averages the confidences of the operands.
type PointPlus struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// NewPoint returns a 2-D point with full confidence.
func NewPoint(x, y float64) PointPlus {
	return PointPlus{X: x, Y: y, Confidence: 1.0}
}

// FromPolar converts polar coordinates to a 2-D point.
func FromPolar(radius, angle float64) PointPlus {
	return PointPlus{X: radius * math.Cos(angle), Y: radius * math.Sin(angle), Confidence: 1.0}
}

// Polar returns the radius and angle of the X/Y components.
func (p PointPlus) Polar() (radius, angle float64) {
	return math.Hypot(p.X, p.Y), math.Atan2(p.Y, p.X)
}

// Add returns the component-wise sum.
func (p PointPlus) Add(q PointPlus) PointPlus {
	return PointPlus{
		X:          p.X + q.X,
		Y:          p.Y + q.Y,
		Z:          p.Z + q.Z,
		Confidence: (p.Confidence + q.Confidence) / 2,
	}
}

// Sub returns the component-wise difference.
func (p PointPlus) Sub(q PointPlus) PointPlus {
	return PointPlus{
		X:          p.X - q.X,
		Y:          p.Y - q.Y,
		Z:          p.Z - q.Z,
		Confidence: (p.Confidence + q.Confidence) / 2,
	}
}

// Scale multiplies the coordinates by factor, keeping the confidence.
func (p PointPlus) Scale(factor float64) PointPlus {
	return PointPlus{X: p.X * factor, Y: p.Y * factor, Z: p.Z * factor, Confidence: p.Confidence}
}

// DistanceTo returns the euclidean distance to q.
func (p PointPlus) DistanceTo(q PointPlus) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Rotate rotates the point around the origin in the X/Y plane.
func (p PointPlus) Rotate(angle float64) PointPlus {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return PointPlus{
		X:          p.X*cos - p.Y*sin,
		Y:          p.X*sin + p.Y*cos,
		Z:          p.Z,
		Confidence: p.Confidence,
	}
}

// Segment is a line segment between two points.
type Segment struct {
	Start PointPlus `json:"start"`
	End   PointPlus `json:"end"`
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.Start.DistanceTo(s.End)
}

// Angle returns the direction of the segment in radians.
func (s Segment) Angle() float64 {
	return math.Atan2(s.End.Y-s.Start.Y, s.End.X-s.Start.X)
}

// Arc is a circular arc given by center, radius, and start/end angles.
type Arc struct {
	Center     PointPlus `json:"center"`
	Radius     float64   `json:"radius"`
	StartAngle float64   `json:"start_angle"`
	EndAngle   float64   `json:"end_angle"`
}

// Extent returns the swept angle, normalized to [0, 2π).
func (a Arc) Extent() float64 {
	extent := math.Mod(a.EndAngle-a.StartAngle, 2*math.Pi)
	if extent < 0 {
		extent += 2 * math.Pi
	}
	return extent
}
