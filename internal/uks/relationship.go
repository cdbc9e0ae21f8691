// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"sync"
	"time"
)

// Clause is a relationship-to-relationship dependency, typed by a Thing.
type Clause struct {
	Type   *Thing
	Target *Relationship
}

// Relationship connects a source Thing to a target Thing via a reltype
// Thing. Target may be nil for property-only relations. A non-zero TTL
// marks the relationship transient: it expires once its last use plus
// the TTL has passed. Hits and misses accumulate during queries and
// feed Value.
//
// The endpoints are fixed at creation. The mutable scalars (weight,
// TTL, usage bookkeeping) are guarded by an internal mutex so queries,
// merges, and the expiry sweeper can run concurrently.
type Relationship struct {
	Source *Thing
	Type   *Thing
	Target *Thing

	Created time.Time

	Clauses     []Clause
	ClausesFrom []*Relationship

	mu       sync.Mutex
	weight   float64
	ttl      time.Duration // 0 means permanent
	lastUsed time.Time
	hits     int
	misses   int
}

func newRelationship(source, reltype, target *Thing, weight float64, ttl time.Duration) *Relationship {
	now := time.Now()
	return &Relationship{
		Source:   source,
		Type:     reltype,
		Target:   target,
		Created:  now,
		weight:   weight,
		ttl:      ttl,
		lastUsed: now,
	}
}

// Weight returns the relationship's current weight.
func (r *Relationship) Weight() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.weight
}

// SetWeight replaces the relationship's weight.
func (r *Relationship) SetWeight(w float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weight = w
}

// TTL returns the transient lifetime, 0 for permanent relationships.
func (r *Relationship) TTL() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl
}

// LastUsed returns the time of the most recent query touch or merge.
func (r *Relationship) LastUsed() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

// Hits returns the number of queries the relationship has matched.
func (r *Relationship) Hits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

// Misses returns the number of queries that examined but rejected the
// relationship.
func (r *Relationship) Misses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.misses
}

// Touch refreshes the last-used timestamp, postponing expiry.
func (r *Relationship) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsed = time.Now()
}

// Expired reports whether a transient relationship's TTL has lapsed.
func (r *Relationship) Expired(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl != 0 && r.lastUsed.Add(r.ttl).Before(now)
}

// Value is the confidence-adjusted weight based on query hits and misses.
func (r *Relationship) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value()
}

// value computes the confidence-adjusted weight; callers hold r.mu.
func (r *Relationship) value() float64 {
	return r.weight * float64(r.hits+1) / float64(r.hits+r.misses+2)
}

// merge folds a duplicate assertion into the relationship: the weight is
// max-merged and a non-zero ttl refreshes the transient lifetime.
func (r *Relationship) merge(weight float64, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if weight > r.weight {
		r.weight = weight
	}
	if ttl != 0 {
		r.ttl = ttl
		r.lastUsed = time.Now()
	}
}

// observe records one query pass over the relationship: the last-used
// timestamp is stamped and the hit or miss counter bumped. labelOK
// carries the label-filter verdict computed by the caller; the scalar
// filters are applied here so the counters and the fields they depend
// on stay consistent under concurrent queries.
func (r *Relationship) observe(now time.Time, labelOK bool, minWeight float64, maxTTL time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsed = now
	ok := labelOK && r.weight >= minWeight
	if ok && maxTTL > 0 {
		if r.ttl == 0 || r.lastUsed.Add(r.ttl).Sub(now) > maxTTL {
			ok = false
		}
	}
	if ok {
		r.hits++
	} else {
		r.misses++
	}
	return ok
}

// snapshot returns a consistent copy of the mutable scalars.
func (r *Relationship) snapshot() (weight, value float64, hits, misses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.weight, r.value(), r.hits, r.misses
}

// AddClause attaches a clause linking this relationship to target.
func (r *Relationship) AddClause(clauseType *Thing, target *Relationship) {
	r.Clauses = append(r.Clauses, Clause{Type: clauseType, Target: target})
	target.ClausesFrom = append(target.ClausesFrom, r)
}

// Matches reports whether the relationship joins the same three endpoints.
func (r *Relationship) Matches(source, reltype, target *Thing) bool {
	return r.Source == source && r.Type == reltype && r.Target == target
}

func (r *Relationship) String() string {
	s := r.Source.Label() + " " + r.Type.Label()
	if r.Target != nil {
		s += " " + r.Target.Label()
	}
	return s
}
