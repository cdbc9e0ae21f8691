// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Statement is the serializable form of a relationship: three labels plus
// weight and an optional TTL in seconds (0 = permanent).
type Statement struct {
	Source  string  `json:"source" yaml:"source" xml:"source"`
	RelType string  `json:"reltype" yaml:"reltype" xml:"reltype"`
	Target  string  `json:"target,omitempty" yaml:"target,omitempty" xml:"target,omitempty"`
	Weight  float64 `json:"weight" yaml:"weight" xml:"weight"`
	TTL     float64 `json:"ttl,omitempty" yaml:"ttl,omitempty" xml:"ttl,omitempty"`
}

// StatementFromRelationship captures rel as a Statement.
func StatementFromRelationship(rel *Relationship) Statement {
	st := Statement{
		Source:  rel.Source.Label(),
		RelType: rel.Type.Label(),
		Weight:  rel.Weight(),
	}
	if rel.Target != nil {
		st.Target = rel.Target.Label()
	}
	if ttl := rel.TTL(); ttl != 0 {
		st.TTL = ttl.Seconds()
	}
	return st
}

// Assert materializes the statement into s, collapsing duplicates.
func (st Statement) Assert(s *Store) *Relationship {
	weight := st.Weight
	if weight == 0 {
		weight = 1.0
	}
	var tgt *Thing
	if st.Target != "" {
		tgt = s.thingFromLabel(st.Target)
	}
	ttl := time.Duration(st.TTL * float64(time.Second))
	return s.AddRelationship(s.thingFromLabel(st.Source), s.thingFromLabel(st.RelType), tgt, weight, ttl)
}

// ThingRecord is the serializable form of a Thing.
type ThingRecord struct {
	Label string `json:"label" yaml:"label" xml:"label"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" xml:"value,omitempty"`
}

// Document is the serializable form of an entire store.
type Document struct {
	Things     []ThingRecord `json:"things" yaml:"things" xml:"Thing"`
	Statements []Statement   `json:"statements" yaml:"statements" xml:"Statement"`
}

// ExportStatements returns every relationship in the store as a Statement.
func (s *Store) ExportStatements() []Statement {
	var stmts []Statement
	for _, t := range s.Things() {
		for _, rel := range t.Relationships() {
			stmts = append(stmts, StatementFromRelationship(rel))
		}
	}
	return stmts
}

// LoadStatements materializes stmts into the store.
func (s *Store) LoadStatements(stmts []Statement) {
	for _, st := range stmts {
		st.Assert(s)
	}
}

// ToDocument captures the whole store for persistence.
func (s *Store) ToDocument() Document {
	doc := Document{}
	for _, t := range s.Things() {
		rec := ThingRecord{Label: t.Label()}
		if t.V != nil {
			if v, ok := t.V.(string); ok {
				rec.Value = v
			}
		}
		doc.Things = append(doc.Things, rec)
	}
	doc.Statements = s.ExportStatements()
	return doc
}

// LoadDocument populates the store from doc. Unless merge is set, the
// existing contents (including the initial structure) are discarded first.
func (s *Store) LoadDocument(doc Document, merge bool) {
	if !merge {
		s.clear()
	}
	for _, rec := range doc.Things {
		if s.labels.get(rec.Label) == nil {
			var value any
			if rec.Value != "" {
				value = rec.Value
			}
			t := newThing(s.labels, rec.Label, value)
			s.mu.Lock()
			s.things = append(s.things, t)
			s.bump()
			s.mu.Unlock()
		}
	}
	s.LoadStatements(doc.Statements)
}

func (s *Store) clear() {
	s.labels.clear()
	s.mu.Lock()
	s.things = nil
	s.transients = nil
	s.bump()
	s.mu.Unlock()
}

// Save serializes the store to path as JSON.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s.ToDocument(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling store")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// Load replaces (or merges into) the store from a JSON file written by Save.
func (s *Store) Load(path string, merge bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	s.LoadDocument(doc, merge)
	return nil
}
