// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrThingNotFound is returned when a label resolves to no Thing.
var ErrThingNotFound = errors.New("thing not found")

// Event identifies a relationship lifecycle notification.
type Event string

const (
	EventAdd    Event = "add"
	EventUpdate Event = "update"
	EventRemove Event = "remove"
)

// expiryInterval is the cadence of the transient-relationship sweeper.
// Tests override this to avoid real waits.
var expiryInterval = time.Second

// Store is the Universal Knowledge Store: the set of all Things plus the
// transient-relationship registry. A background goroutine sweeps expired
// transient relationships until Close is called.
type Store struct {
	mu         sync.RWMutex
	things     []*Thing
	transients []*Relationship
	revision   uint64

	labels *labelTable

	handlerMu sync.RWMutex
	handlers  map[Event][]func(*Relationship)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a Store seeded with the initial structure (Object,
// has-child, unknownObject) and starts the expiry sweeper.
func NewStore() *Store {
	s := &Store{
		labels:   newLabelTable(),
		handlers: make(map[Event][]func(*Relationship)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.createInitialStructure()
	go s.sweepLoop()
	return s
}

func (s *Store) createInitialStructure() {
	root := s.AddThing("Object", nil)
	s.AddThing(HasChild, nil)
	s.AddThing("unknownObject", root)
}

func (s *Store) sweepLoop() {
	defer close(s.done)
	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.RemoveExpired()
		}
	}
}

// Close stops the expiry sweeper and waits for it to exit. The store
// remains usable afterwards but transient relationships no longer expire
// automatically.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Revision increments on every mutation; the archive uses it to detect
// unchanged stores.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) bump() {
	s.revision++
}

// --- Thing management ---

// AddThing creates a new Thing with label, optionally under parent.
// Label collisions are auto-numbered.
func (s *Store) AddThing(label string, parent *Thing) *Thing {
	t := newThing(s.labels, label, nil)
	if parent != nil {
		t.AddParent(parent)
	}
	s.mu.Lock()
	s.things = append(s.things, t)
	s.bump()
	s.mu.Unlock()
	return t
}

// GetOrAddThing returns the Thing carrying label, creating it under
// parent when absent.
func (s *Store) GetOrAddThing(label string, parent *Thing) *Thing {
	if t := s.labels.get(label); t != nil {
		return t
	}
	return s.AddThing(label, parent)
}

// Labeled returns the Thing carrying label, or nil.
func (s *Store) Labeled(label string) *Thing {
	return s.labels.get(label)
}

// Things returns a snapshot of every Thing in the store.
func (s *Store) Things() []*Thing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Thing, len(s.things))
	copy(out, s.things)
	return out
}

// Len returns the number of Things in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.things)
}

// DeleteThing removes t and every relationship touching it.
func (s *Store) DeleteThing(t *Thing) {
	for _, rel := range t.Relationships() {
		s.RemoveRelationship(rel)
	}
	for _, rel := range t.RelationshipsFrom() {
		s.RemoveRelationship(rel)
	}
	s.labels.remove(t.Label())
	s.mu.Lock()
	for i, existing := range s.things {
		if existing == t {
			s.things = append(s.things[:i], s.things[i+1:]...)
			break
		}
	}
	s.bump()
	s.mu.Unlock()
}

// thingFromLabel resolves label to a Thing, creating it under Object when
// absent. Mirrors the lenient lookup used throughout the module agents.
func (s *Store) thingFromLabel(label string) *Thing {
	if t := s.labels.get(label); t != nil {
		return t
	}
	return s.AddThing(label, s.Labeled("Object"))
}

// --- Relationship management ---

// AddRelationship asserts a relationship between three Things. When an
// identical relationship exists its weight is max-merged and its TTL
// refreshed; otherwise a new relationship is created. A non-zero ttl
// makes the relationship transient.
func (s *Store) AddRelationship(source, reltype, target *Thing, weight float64, ttl time.Duration) *Relationship {
	if existing := s.GetRelationship(source, reltype, target); existing != nil {
		existing.merge(weight, ttl)
		s.fire(EventUpdate, existing)
		return existing
	}

	rel := source.addRelationship(reltype, target, weight, ttl)
	s.mu.Lock()
	if ttl != 0 {
		s.transients = append(s.transients, rel)
	}
	s.bump()
	s.mu.Unlock()
	s.fire(EventAdd, rel)
	return rel
}

// AddStatement asserts a relationship by label, creating missing Things
// under Object. An empty target label produces a property-only relation.
func (s *Store) AddStatement(source, reltype, target string) *Relationship {
	var tgt *Thing
	if target != "" {
		tgt = s.thingFromLabel(target)
	}
	return s.AddRelationship(s.thingFromLabel(source), s.thingFromLabel(reltype), tgt, 1.0, 0)
}

// GetRelationship returns the existing relationship joining the three
// Things, or nil. Nil inputs for source or reltype yield nil.
func (s *Store) GetRelationship(source, reltype, target *Thing) *Relationship {
	if source == nil || reltype == nil {
		return nil
	}
	for _, rel := range source.Relationships() {
		if rel.Type == reltype && rel.Target == target {
			return rel
		}
	}
	return nil
}

// GetRelationshipLabels is GetRelationship with label lookup. Unknown
// labels resolve to nil without creating Things.
func (s *Store) GetRelationshipLabels(source, reltype, target string) *Relationship {
	var tgt *Thing
	if target != "" {
		tgt = s.labels.get(target)
		if tgt == nil {
			return nil
		}
	}
	return s.GetRelationship(s.labels.get(source), s.labels.get(reltype), tgt)
}

// RemoveRelationship detaches rel from its endpoints and the transient
// registry, then fires the remove event.
func (s *Store) RemoveRelationship(rel *Relationship) {
	rel.Source.RemoveRelationship(rel)
	s.mu.Lock()
	s.transients = removeRel(s.transients, rel)
	s.bump()
	s.mu.Unlock()
	s.fire(EventRemove, rel)
}

// RemoveStatement removes the relationship identified by labels, if any.
func (s *Store) RemoveStatement(source, reltype, target string) {
	if rel := s.GetRelationshipLabels(source, reltype, target); rel != nil {
		s.RemoveRelationship(rel)
	}
}

// AddClause attaches a typed clause between two relationships.
func (s *Store) AddClause(sourceRel *Relationship, clauseType string, targetRel *Relationship) {
	sourceRel.AddClause(s.thingFromLabel(clauseType), targetRel)
}

// GetAllRelationships returns the relationships of sources, following the
// hierarchy upward (inherited) or downward when reverse is true.
func (s *Store) GetAllRelationships(sources []*Thing, reverse bool) []*Relationship {
	var result []*Relationship
	seen := make(map[*Thing]bool)
	stack := append([]*Thing(nil), sources...)
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t.Relationships()...)
		if reverse {
			stack = append(stack, t.Children()...)
		} else {
			stack = append(stack, t.Parents()...)
		}
	}
	return result
}

// RemoveExpired sweeps transient relationships whose TTL has lapsed.
func (s *Store) RemoveExpired() {
	now := time.Now()
	s.mu.RLock()
	candidates := make([]*Relationship, len(s.transients))
	copy(candidates, s.transients)
	s.mu.RUnlock()

	for _, rel := range candidates {
		if rel.Expired(now) {
			s.RemoveRelationship(rel)
		}
	}
}

// --- Event hooks ---

// On registers a callback fired whenever event occurs.
func (s *Store) On(event Event, cb func(*Relationship)) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handlers[event] = append(s.handlers[event], cb)
}

func (s *Store) fire(event Event, rel *Relationship) {
	s.handlerMu.RLock()
	cbs := s.handlers[event]
	s.handlerMu.RUnlock()
	for _, cb := range cbs {
		cb(rel)
	}
}
