// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package uks

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	t.Cleanup(s.Close)
	return s
}

func TestNewStoreInitialStructure(t *testing.T) {
	s := testStore(t)

	require.NotNil(t, s.Labeled("Object"))
	require.NotNil(t, s.Labeled(HasChild))
	unknown := s.Labeled("unknownObject")
	require.NotNil(t, unknown)
	assert.True(t, unknown.HasAncestor("Object"))
}

func TestLabelCollisionsAutoNumber(t *testing.T) {
	s := testStore(t)

	a := s.AddThing("cat", nil)
	b := s.AddThing("cat", nil)
	c := s.AddThing("Cat", nil)

	assert.Equal(t, "cat", a.Label())
	assert.Equal(t, "cat0", b.Label())
	// Lookup is case-insensitive, so "Cat" collides with "cat".
	assert.Equal(t, "Cat1", c.Label())
	assert.Same(t, a, s.Labeled("CAT"))
}

func TestLabelStarForcesNumbering(t *testing.T) {
	s := testStore(t)

	a := s.AddThing("item*", nil)
	b := s.AddThing("item*", nil)

	assert.Equal(t, "item0", a.Label())
	assert.Equal(t, "item1", b.Label())
}

func TestRelabelReleasesOldLabel(t *testing.T) {
	s := testStore(t)

	a := s.AddThing("old", nil)
	a.SetLabel("new")

	assert.Nil(t, s.Labeled("old"))
	assert.Same(t, a, s.Labeled("new"))
}

func TestHierarchy(t *testing.T) {
	s := testStore(t)

	animal := s.AddThing("animal", s.Labeled("Object"))
	dog := s.AddThing("dog", animal)
	beagle := s.AddThing("beagle", dog)

	assert.Equal(t, []*Thing{dog}, beagle.Parents())
	assert.Equal(t, []*Thing{dog}, animal.Children())
	assert.True(t, beagle.HasAncestor("animal"))
	assert.True(t, beagle.HasAncestor("Object"))
	assert.False(t, animal.HasAncestor("dog"))

	descendants := animal.Descendants()
	assert.Contains(t, descendants, dog)
	assert.Contains(t, descendants, beagle)
}

func TestChildrenWithSubclassesExpandsInstances(t *testing.T) {
	s := testStore(t)

	color := s.AddThing("color", s.Labeled("Object"))
	// "color0" has the parent's label as prefix: treated as a subclass.
	sub := s.AddThing("color*", color)
	red := s.AddThing("red", sub)
	blue := s.AddThing("blue", color)

	expanded := color.ChildrenWithSubclasses()
	assert.Contains(t, expanded, red)
	assert.Contains(t, expanded, blue)
	assert.NotContains(t, expanded, sub)
}

func TestAddRelationshipDeduplicates(t *testing.T) {
	s := testStore(t)

	dog := s.AddThing("dog", nil)
	is := s.AddThing("is", nil)
	friendly := s.AddThing("friendly", nil)

	r1 := s.AddRelationship(dog, is, friendly, 0.6, 0)
	r2 := s.AddRelationship(dog, is, friendly, 0.9, 0)
	r3 := s.AddRelationship(dog, is, friendly, 0.3, 0)

	assert.Same(t, r1, r2)
	assert.Same(t, r1, r3)
	// Weight only ever increases on merge.
	assert.Equal(t, 0.9, r1.Weight())
	assert.Len(t, dog.Relationships(), 1)
}

func TestAddStatementCreatesMissingThings(t *testing.T) {
	s := testStore(t)

	rel := s.AddStatement("sky", "is", "blue")

	require.NotNil(t, rel)
	assert.Equal(t, "sky", rel.Source.Label())
	assert.Equal(t, "blue", rel.Target.Label())
	// Created Things hang under Object.
	assert.True(t, rel.Source.HasAncestor("Object"))
	assert.Same(t, rel, s.GetRelationshipLabels("sky", "is", "blue"))
}

func TestGetRelationshipLabelsUnknownReturnsNil(t *testing.T) {
	s := testStore(t)

	assert.Nil(t, s.GetRelationshipLabels("no", "such", "thing"))
	// Lookup must not create Things as a side effect.
	assert.Nil(t, s.Labeled("no"))
}

func TestRemoveRelationship(t *testing.T) {
	s := testStore(t)

	rel := s.AddStatement("a", "likes", "b")
	s.RemoveRelationship(rel)

	assert.Nil(t, s.GetRelationshipLabels("a", "likes", "b"))
	assert.Empty(t, s.Labeled("a").Relationships())
	assert.Empty(t, s.Labeled("b").RelationshipsFrom())
}

func TestDeleteThing(t *testing.T) {
	s := testStore(t)

	s.AddStatement("cat", "chases", "mouse")
	s.AddStatement("dog", "chases", "cat")
	cat := s.Labeled("cat")

	s.DeleteThing(cat)

	assert.Nil(t, s.Labeled("cat"))
	assert.Empty(t, s.Labeled("dog").Relationships())
	assert.Nil(t, s.GetRelationshipLabels("cat", "chases", "mouse"))
}

func TestTransientRelationshipExpires(t *testing.T) {
	s := testStore(t)

	src := s.AddThing("src", nil)
	rt := s.AddThing("rt", nil)
	tgt := s.AddThing("tgt", nil)
	rel := s.AddRelationship(src, rt, tgt, 1.0, 10*time.Millisecond)

	require.False(t, rel.Expired(time.Now()))
	time.Sleep(20 * time.Millisecond)
	s.RemoveExpired()

	assert.Nil(t, s.GetRelationship(src, rt, tgt))
}

func TestTouchPostponesExpiry(t *testing.T) {
	s := testStore(t)

	rel := s.AddRelationship(s.AddThing("x", nil), s.AddThing("y", nil), nil, 1.0, time.Hour)
	rel.lastUsed = time.Now().Add(-2 * time.Hour)
	require.True(t, rel.Expired(time.Now()))

	rel.Touch()
	assert.False(t, rel.Expired(time.Now()))
}

func TestEvents(t *testing.T) {
	s := testStore(t)

	var added, updated, removed int
	s.On(EventAdd, func(*Relationship) { added++ })
	s.On(EventUpdate, func(*Relationship) { updated++ })
	s.On(EventRemove, func(*Relationship) { removed++ })

	rel := s.AddStatement("a", "r", "b")
	s.AddStatement("a", "r", "b")
	s.RemoveRelationship(rel)

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, removed)
}

func TestRelationshipValue(t *testing.T) {
	r := &Relationship{weight: 1.0}
	assert.InDelta(t, 0.5, r.Value(), 1e-9)

	r.hits = 8
	r.misses = 0
	assert.InDelta(t, 0.9, r.Value(), 1e-9)
}

func TestAttributeHelpers(t *testing.T) {
	s := testStore(t)

	dog := s.AddThing("dog", s.Labeled("Object"))
	beagle := s.AddThing("beagle", dog)
	loyal := s.AddThing("loyal", nil)
	s.AddStatement("dog", "hasProperty", "loyal")

	assert.Contains(t, dog.GetAttributes(), loyal)
	// Properties are inherited through parents.
	assert.True(t, beagle.HasProperty(loyal))
	assert.False(t, beagle.Allows(loyal))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	s.AddStatement("dog", "is", "friendly")
	s.AddStatement("dog", "has", "tail")
	path := filepath.Join(t.TempDir(), "uks.json")

	require.NoError(t, s.Save(path))

	loaded := testStore(t)
	require.NoError(t, loaded.Load(path, false))

	assert.NotNil(t, loaded.GetRelationshipLabels("dog", "is", "friendly"))
	assert.NotNil(t, loaded.GetRelationshipLabels("dog", "has", "tail"))
}

func TestLoadMergeKeepsExisting(t *testing.T) {
	s := testStore(t)
	s.AddStatement("cat", "is", "aloof")
	path := filepath.Join(t.TempDir(), "uks.json")
	require.NoError(t, s.Save(path))

	dst := testStore(t)
	dst.AddStatement("dog", "is", "loyal")
	require.NoError(t, dst.Load(path, true))

	assert.NotNil(t, dst.GetRelationshipLabels("dog", "is", "loyal"))
	assert.NotNil(t, dst.GetRelationshipLabels("cat", "is", "aloof"))
}

func TestCloseJoinsSweeper(t *testing.T) {
	old := expiryInterval
	expiryInterval = time.Millisecond
	defer func() { expiryInterval = old }()

	s := NewStore()
	s.AddRelationship(s.AddThing("x", nil), s.AddThing("y", nil), nil, 1.0, time.Millisecond)
	s.Close()

	// The sweeper has exited by the time Close returns.
	select {
	case <-s.done:
	default:
		t.Fatal("sweeper still running after Close")
	}

	// A second Close is a quiet no-op.
	s.Close()
}

func TestRevisionBumpsOnMutation(t *testing.T) {
	s := testStore(t)

	before := s.Revision()
	s.AddStatement("a", "r", "b")
	assert.Greater(t, s.Revision(), before)
}
