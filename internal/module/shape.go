// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"math"

	"github.com/pdiddy/brainsim/internal/vision"
)

// angleTolerance is the slack allowed when classifying corners and
// closed arcs, about five degrees.
var angleTolerance = 5 * math.Pi / 180

// Shape classifies detected primitives each fire: a near-closed arc
// becomes a circle, a closed chain of segments becomes a rectangle or
// polygon.
type Shape struct {
	Base
	segments []vision.Segment
	arcs     []vision.Arc
	shapes   []DetectedShape
}

// DetectedShape is one classified shape.
type DetectedShape struct {
	Type   string           `json:"type"`
	Sides  int              `json:"sides,omitempty"`
	Center vision.PointPlus `json:"center,omitempty"`
	Radius float64          `json:"radius,omitempty"`
}

func NewShape() *Shape {
	return &Shape{Base: NewBase("Shape")}
}

// SetPrimitives replaces the segments and arcs examined on the next fire.
func (s *Shape) SetPrimitives(segments []vision.Segment, arcs []vision.Arc) {
	s.segments = append([]vision.Segment(nil), segments...)
	s.arcs = append([]vision.Arc(nil), arcs...)
}

// Shapes returns the shapes classified by the most recent fire.
func (s *Shape) Shapes() []DetectedShape {
	return append([]DetectedShape(nil), s.shapes...)
}

func (s *Shape) Fire(context.Context) error {
	s.shapes = nil
	s.detectCircle()
	s.detectPolygon()
	return nil
}

func (s *Shape) detectCircle() {
	if len(s.arcs) != 1 {
		return
	}
	arc := s.arcs[0]
	extent := arc.Extent()
	// A full circle normalizes to an extent of zero.
	if extent < angleTolerance || 2*math.Pi-extent < angleTolerance {
		s.shapes = append(s.shapes, DetectedShape{
			Type:   "circle",
			Center: arc.Center,
			Radius: arc.Radius,
		})
	}
}

func (s *Shape) detectPolygon() {
	if len(s.segments) == 0 {
		return
	}
	pts := []vision.PointPlus{s.segments[0].Start}
	for _, seg := range s.segments {
		pts = append(pts, seg.End)
	}
	if pts[0].DistanceTo(pts[len(pts)-1]) > 1e-6 {
		return
	}

	rectangular := true
	for i := 1; i < len(pts)-1; i++ {
		a1 := math.Atan2(pts[i].Y-pts[i-1].Y, pts[i].X-pts[i-1].X)
		a2 := math.Atan2(pts[i+1].Y-pts[i].Y, pts[i+1].X-pts[i].X)
		turn := math.Mod(a2-a1, 2*math.Pi)
		if turn < 0 {
			turn += 2 * math.Pi
		}
		if math.Abs(turn-math.Pi/2) > angleTolerance {
			rectangular = false
			break
		}
	}
	shapeType := "polygon"
	if rectangular {
		shapeType = "rectangle"
	}
	s.shapes = append(s.shapes, DetectedShape{Type: shapeType, Sides: len(s.segments)})
}
