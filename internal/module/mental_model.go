// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pdiddy/brainsim/internal/vision"
)

// spatialConcepts are the relation labels seeded under Spatial.
var spatialConcepts = []string{"above", "below", "left", "right", "near", "far", "inside", "contains"}

// inverseRelations maps each spatial relation to its inverse.
var inverseRelations = map[string]string{
	"above":    "below",
	"below":    "above",
	"left":     "right",
	"right":    "left",
	"near":     "near",
	"far":      "far",
	"inside":   "contains",
	"contains": "inside",
}

// staleAfter is the age past which a tracked object's confidence starts
// to decay. Tests override this to avoid real waits.
var staleAfter = 5 * time.Minute

// ModelObject is one object tracked by the mental model.
type ModelObject struct {
	Name        string
	Kind        string
	Position    vision.PointPlus
	HasPosition bool
	Properties  map[string]string

	confidence  float64
	lastUpdated time.Time
}

// SpatialRelation relates two tracked objects.
type SpatialRelation struct {
	Object1    string
	Object2    string
	Relation   string
	Confidence float64
}

func (r SpatialRelation) String() string {
	return fmt.Sprintf("%s %s %s (conf: %.2f)", r.Object1, r.Relation, r.Object2, r.Confidence)
}

// ModelSummary reports the size of the mental model.
type ModelSummary struct {
	Objects          int
	Relations        int
	Kinds            []string
	ObjectsProcessed int
	RelationsCreated int
}

// MentalModel maintains an internal representation of observed objects:
// positions, properties, and the spatial relations between them. Each
// sweep rederives pairwise relations from current positions, infers
// transitive left-of chains at reduced confidence, decays stale objects,
// and mirrors the model into the knowledge store.
type MentalModel struct {
	Base
	cadence
	NearThreshold   float64
	ConfidenceDecay float64
	MaxObjects      int

	objects   map[string]*ModelObject
	relations []SpatialRelation
	shapeSeq  int

	objectsProcessed int
	relationsCreated int
}

func NewMentalModel() *MentalModel {
	m := &MentalModel{
		Base:            NewBase("MentalModel"),
		NearThreshold:   50.0,
		ConfidenceDecay: 0.95,
		MaxObjects:      100,
		objects:         make(map[string]*ModelObject),
	}
	m.SetEnabled(false)
	return m
}

// Initialize seeds the sensory hierarchy and the spatial relation
// concepts in the knowledge store.
func (m *MentalModel) Initialize() error {
	store := m.Store()
	if store == nil {
		return nil
	}
	sense := store.GetOrAddThing("Sense", store.Labeled("Object"))
	visual := store.GetOrAddThing("Visual", sense)
	spatial := store.GetOrAddThing("Spatial", visual)
	store.GetOrAddThing("Shape", visual)
	for _, concept := range spatialConcepts {
		store.GetOrAddThing(concept, spatial)
	}
	return nil
}

// ObserveObject records or refreshes a tracked object at a position.
func (m *MentalModel) ObserveObject(name, kind string, pos vision.PointPlus) *ModelObject {
	obj := m.objects[name]
	if obj == nil {
		obj = &ModelObject{Name: name, Kind: kind, Properties: make(map[string]string)}
		m.objects[name] = obj
	}
	if kind != "" {
		obj.Kind = kind
	}
	obj.Position = pos
	obj.HasPosition = true
	obj.confidence = 1.0
	obj.lastUpdated = time.Now()
	m.objectsProcessed++
	return obj
}

// ObserveShapes ingests classified shapes from the Shape agent. Each
// shape becomes a tracked object named shape0, shape1, and so on.
func (m *MentalModel) ObserveShapes(shapes []DetectedShape) {
	for _, shape := range shapes {
		name := fmt.Sprintf("shape%d", m.shapeSeq)
		m.shapeSeq++
		obj := m.ObserveObject(name, "shape", shape.Center)
		obj.Properties["shape_type"] = shape.Type
		if shape.Sides > 0 {
			obj.Properties["sides"] = strconv.Itoa(shape.Sides)
		}
	}
}

// ClassifyShape names a shape from its area and perimeter by
// circularity. Degenerate measurements yield an empty string.
func ClassifyShape(area, perimeter float64) string {
	if area <= 0 || perimeter <= 0 {
		return ""
	}
	circularity := 4 * math.Pi * area / (perimeter * perimeter)
	switch {
	case circularity > 0.8:
		return "circle"
	case circularity > 0.6:
		return "ellipse"
	case area/math.Pow(perimeter/4, 2) > 0.8:
		return "square"
	default:
		return "polygon"
	}
}

func (m *MentalModel) Fire(ctx context.Context) error {
	if !m.due() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.deriveRelations()
	m.inferTransitive()
	m.decay()
	m.updateStore()
	fmt.Fprintf(m.Output(), "MentalModel: %d objects, %d relations\n", len(m.objects), len(m.relations))
	return nil
}

// deriveRelations rebuilds the pairwise relations from current positions.
func (m *MentalModel) deriveRelations() {
	m.relations = m.relations[:0]
	names := m.sortedNames()
	for i, n1 := range names {
		obj1 := m.objects[n1]
		if !obj1.HasPosition {
			continue
		}
		for _, n2 := range names[i+1:] {
			obj2 := m.objects[n2]
			if !obj2.HasPosition {
				continue
			}
			m.relations = append(m.relations, m.relate(obj1, obj2))
			m.relationsCreated++
		}
	}
}

// relate classifies the relation from a to b: close pairs are "near",
// distant pairs take the dominant axis direction.
func (m *MentalModel) relate(a, b *ModelObject) SpatialRelation {
	dx := b.Position.X - a.Position.X
	dy := b.Position.Y - a.Position.Y
	relation := "near"
	if math.Hypot(dx, dy) >= m.NearThreshold {
		if math.Abs(dx) > math.Abs(dy) {
			relation = "left"
			if dx > 0 {
				relation = "right"
			}
		} else {
			relation = "above"
			if dy > 0 {
				relation = "below"
			}
		}
	}
	return SpatialRelation{Object1: a.Name, Object2: b.Name, Relation: relation, Confidence: 1.0}
}

// inferTransitive chains left-of relations: a left of b and b left of c
// yields a left of c at reduced confidence.
func (m *MentalModel) inferTransitive() {
	for _, name := range m.sortedNames() {
		for _, mid := range m.QueryRelation(name, "left") {
			for _, far := range m.QueryRelation(mid, "left") {
				if far == name || m.hasRelation(name, far, "left") {
					continue
				}
				m.relations = append(m.relations, SpatialRelation{
					Object1: name, Object2: far, Relation: "left", Confidence: 0.7,
				})
				m.relationsCreated++
			}
		}
	}
}

func (m *MentalModel) hasRelation(obj1, obj2, relation string) bool {
	for _, r := range m.relations {
		if r.Object1 == obj1 && r.Object2 == obj2 && r.Relation == relation {
			return true
		}
	}
	return false
}

// decay ages out stale objects: confidence shrinks once an object has
// not been observed within staleAfter, objects below 0.1 are dropped,
// and the oldest objects are evicted past MaxObjects.
func (m *MentalModel) decay() {
	cutoff := time.Now().Add(-staleAfter)
	for name, obj := range m.objects {
		if obj.lastUpdated.Before(cutoff) {
			obj.confidence *= m.ConfidenceDecay
		}
		if obj.confidence < 0.1 {
			delete(m.objects, name)
		}
	}
	if len(m.objects) <= m.MaxObjects {
		return
	}
	names := m.sortedNames()
	sort.SliceStable(names, func(i, j int) bool {
		return m.objects[names[i]].lastUpdated.Before(m.objects[names[j]].lastUpdated)
	})
	for _, name := range names[:len(names)-m.MaxObjects] {
		delete(m.objects, name)
	}
}

// updateStore mirrors the tracked objects and the most recent relations
// into the knowledge store.
func (m *MentalModel) updateStore() {
	store := m.Store()
	if store == nil {
		return
	}
	visual := store.GetOrAddThing("Visual", store.Labeled("Object"))
	for _, name := range m.sortedNames() {
		obj := m.objects[name]
		kind := obj.Kind
		if kind == "" {
			kind = "unknownObject"
		}
		store.GetOrAddThing(obj.Name, store.GetOrAddThing(kind, visual))
		props := make([]string, 0, len(obj.Properties))
		for key := range obj.Properties {
			props = append(props, key)
		}
		sort.Strings(props)
		for _, key := range props {
			store.AddStatement(obj.Name, key, obj.Properties[key])
		}
	}

	spatial := store.GetOrAddThing("Spatial", visual)
	recent := m.relations
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for _, rel := range recent {
		obj1 := store.Labeled(rel.Object1)
		obj2 := store.Labeled(rel.Object2)
		if obj1 == nil || obj2 == nil {
			continue
		}
		store.AddRelationship(obj1, store.GetOrAddThing(rel.Relation, spatial), obj2, rel.Confidence, 0)
	}
}

// QueryRelation returns the objects standing in relation to name,
// following inverse relations from the other side.
func (m *MentalModel) QueryRelation(name, relation string) []string {
	seen := make(map[string]bool)
	for _, r := range m.relations {
		if r.Object1 == name && r.Relation == relation {
			seen[r.Object2] = true
		} else if r.Object2 == name && inverseRelations[r.Relation] == relation {
			seen[r.Object1] = true
		}
	}
	out := make([]string, 0, len(seen))
	for obj := range seen {
		out = append(out, obj)
	}
	sort.Strings(out)
	return out
}

// Relations returns a snapshot of the current spatial relations.
func (m *MentalModel) Relations() []SpatialRelation {
	return append([]SpatialRelation(nil), m.relations...)
}

// Object returns the tracked object under name, or nil.
func (m *MentalModel) Object(name string) *ModelObject {
	return m.objects[name]
}

// Summary reports the current size and activity of the model.
func (m *MentalModel) Summary() ModelSummary {
	kinds := make(map[string]bool)
	for _, obj := range m.objects {
		kinds[obj.Kind] = true
	}
	names := make([]string, 0, len(kinds))
	for kind := range kinds {
		names = append(names, kind)
	}
	sort.Strings(names)
	return ModelSummary{
		Objects:          len(m.objects),
		Relations:        len(m.relations),
		Kinds:            names,
		ObjectsProcessed: m.objectsProcessed,
		RelationsCreated: m.relationsCreated,
	}
}

// Reset discards the tracked objects and relations.
func (m *MentalModel) Reset() {
	m.objects = make(map[string]*ModelObject)
	m.relations = nil
	m.shapeSeq = 0
	m.objectsProcessed = 0
	m.relationsCreated = 0
}

func (m *MentalModel) sortedNames() []string {
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MentalModel) Parameters() map[string]string {
	return map[string]string{
		"interval":         strconv.Itoa(m.Interval),
		"near_threshold":   strconv.FormatFloat(m.NearThreshold, 'f', -1, 64),
		"confidence_decay": strconv.FormatFloat(m.ConfidenceDecay, 'f', -1, 64),
		"max_objects":      strconv.Itoa(m.MaxObjects),
	}
}

func (m *MentalModel) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		m.Interval = v
	}
	if v, err := strconv.ParseFloat(params["near_threshold"], 64); err == nil && v > 0 {
		m.NearThreshold = v
	}
	if v, err := strconv.ParseFloat(params["confidence_decay"], 64); err == nil && v > 0 && v < 1 {
		m.ConfidenceDecay = v
	}
	if v, err := strconv.Atoi(params["max_objects"]); err == nil && v > 0 {
		m.MaxObjects = v
	}
}
