// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// HasChild is the label of the relationship type that forms the Thing
// hierarchy. It is created by every new Store.
const HasChild = "has-child"

// attributeRelTypes are the relationship type labels GetAttributes collects.
var attributeRelTypes = map[string]bool{
	"hasattribute": true,
	"is":           true,
	"hasproperty":  true,
	"allows":       true,
}

// Thing is a node in the knowledge store: a label, an optional value, and
// three relationship lists (outgoing, incoming, and those typed by this
// Thing). Things are created through a Store so labels stay unique.
type Thing struct {
	mu     sync.Mutex
	labels *labelTable
	label  string

	// V is an arbitrary payload attached to the Thing.
	V any

	relationships       []*Relationship // this Thing is the source
	relationshipsFrom   []*Relationship // this Thing is the target
	relationshipsAsType []*Relationship // this Thing is the reltype
}

func newThing(lt *labelTable, label string, value any) *Thing {
	t := &Thing{labels: lt, V: value}
	t.label = lt.add(label, t)
	return t
}

// Label returns the Thing's assigned label (which may differ from the
// requested one when collisions were auto-numbered).
func (t *Thing) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label
}

// SetLabel reassigns the Thing's label through the owning label table.
func (t *Thing) SetLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if label == t.label {
		return
	}
	t.label = t.labels.add(label, t)
}

func (t *Thing) String() string {
	s := t.Label()
	if t.V != nil {
		s += fmt.Sprintf(" V: %v", t.V)
	}
	return s
}

// Relationships returns a snapshot of the Thing's outgoing relationships.
func (t *Thing) Relationships() []*Relationship {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Relationship, len(t.relationships))
	copy(out, t.relationships)
	return out
}

// RelationshipsFrom returns a snapshot of the incoming relationships.
func (t *Thing) RelationshipsFrom() []*Relationship {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Relationship, len(t.relationshipsFrom))
	copy(out, t.relationshipsFrom)
	return out
}

// addRelationship creates and registers a relationship from this Thing.
// Endpoint lists are locked one at a time, never nested.
func (t *Thing) addRelationship(reltype, target *Thing, weight float64, ttl time.Duration) *Relationship {
	rel := newRelationship(t, reltype, target, weight, ttl)
	t.mu.Lock()
	t.relationships = append(t.relationships, rel)
	t.mu.Unlock()
	if target != nil {
		target.mu.Lock()
		target.relationshipsFrom = append(target.relationshipsFrom, rel)
		target.mu.Unlock()
	}
	reltype.mu.Lock()
	reltype.relationshipsAsType = append(reltype.relationshipsAsType, rel)
	reltype.mu.Unlock()
	return rel
}

// RemoveRelationship detaches rel from all three endpoint lists.
func (t *Thing) RemoveRelationship(rel *Relationship) {
	t.mu.Lock()
	t.relationships = removeRel(t.relationships, rel)
	t.mu.Unlock()
	if rel.Target != nil {
		rel.Target.mu.Lock()
		rel.Target.relationshipsFrom = removeRel(rel.Target.relationshipsFrom, rel)
		rel.Target.mu.Unlock()
	}
	rel.Type.mu.Lock()
	rel.Type.relationshipsAsType = removeRel(rel.Type.relationshipsAsType, rel)
	rel.Type.mu.Unlock()
}

// AddParent attaches this Thing as a child of parent.
func (t *Thing) AddParent(parent *Thing) (*Relationship, error) {
	hasChild := t.labels.get(HasChild)
	if hasChild == nil {
		return nil, errors.Wrap(ErrThingNotFound, HasChild)
	}
	return parent.addRelationship(hasChild, t, 1.0, 0), nil
}

// RemoveParent detaches parent from this Thing if present.
func (t *Thing) RemoveParent(parent *Thing) {
	hasChild := t.labels.get(HasChild)
	if hasChild == nil {
		return
	}
	for _, rel := range parent.Relationships() {
		if rel.Type == hasChild && rel.Target == t {
			parent.RemoveRelationship(rel)
			return
		}
	}
}

// Parents returns the Things that declare this Thing as a child.
func (t *Thing) Parents() []*Thing {
	hasChild := t.labels.get(HasChild)
	var out []*Thing
	for _, r := range t.RelationshipsFrom() {
		if r.Type == hasChild && r.Target == t {
			out = append(out, r.Source)
		}
	}
	return out
}

// Children returns the direct children of this Thing.
func (t *Thing) Children() []*Thing {
	hasChild := t.labels.get(HasChild)
	var out []*Thing
	for _, r := range t.Relationships() {
		if r.Type == hasChild && r.Target != nil {
			out = append(out, r.Target)
		}
	}
	return out
}

// ChildrenWithSubclasses returns direct children, expanding instance
// subclasses: a child whose label has this Thing's label as a prefix is
// replaced by its own children.
func (t *Thing) ChildrenWithSubclasses() []*Thing {
	label := t.Label()
	children := t.Children()
	for i := 0; i < len(children); {
		c := children[i]
		if strings.HasPrefix(c.Label(), label) {
			children = append(children[:i], children[i+1:]...)
			children = append(children, c.Children()...)
			continue
		}
		i++
	}
	return children
}

// AncestorList returns all transitive parents, cycle-safe.
func (t *Thing) AncestorList() []*Thing {
	var result []*Thing
	seen := make(map[*Thing]bool)
	stack := t.Parents()
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
		stack = append(stack, p.Parents()...)
	}
	return result
}

// Descendants returns all transitive children, cycle-safe.
func (t *Thing) Descendants() []*Thing {
	var result []*Thing
	seen := make(map[*Thing]bool)
	stack := t.Children()
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
		stack = append(stack, c.Children()...)
	}
	return result
}

// HasAncestor reports whether any transitive parent carries label.
func (t *Thing) HasAncestor(label string) bool {
	for _, a := range t.AncestorList() {
		if strings.EqualFold(a.Label(), label) {
			return true
		}
	}
	return false
}

// GetAttributes returns the targets of attribute-like relationships
// (hasAttribute, is, hasProperty, allows).
func (t *Thing) GetAttributes() []*Thing {
	var out []*Thing
	for _, r := range t.Relationships() {
		if r.Target != nil && attributeRelTypes[strings.ToLower(r.Type.Label())] {
			out = append(out, r.Target)
		}
	}
	return out
}

// HasProperty reports whether t (or any ancestor) has a hasProperty
// relationship targeting v.
func (t *Thing) HasProperty(v *Thing) bool {
	for _, r := range t.Relationships() {
		if strings.EqualFold(r.Type.Label(), "hasProperty") && r.Target == v {
			return true
		}
	}
	for _, p := range t.Parents() {
		if p.HasProperty(v) {
			return true
		}
	}
	return false
}

// Allows reports whether t (or any ancestor) has an allows relationship
// targeting v.
func (t *Thing) Allows(v *Thing) bool {
	for _, r := range t.Relationships() {
		if strings.EqualFold(r.Type.Label(), "allows") && r.Target == v {
			return true
		}
	}
	for _, p := range t.Parents() {
		if p.Allows(v) {
			return true
		}
	}
	return false
}

func removeRel(rels []*Relationship, rel *Relationship) []*Relationship {
	for i, r := range rels {
		if r == rel {
			return append(rels[:i], rels[i+1:]...)
		}
	}
	return rels
}
