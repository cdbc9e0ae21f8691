// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brainsim/internal/uks"
	"github.com/pdiddy/brainsim/internal/vision"
)

func testStore(t *testing.T) *uks.Store {
	t.Helper()
	s := uks.NewStore()
	t.Cleanup(s.Close)
	return s
}

func TestAddCountsAggregatesSharedAncestors(t *testing.T) {
	s := testStore(t)
	letter := s.AddThing("letter", s.Labeled("unknownObject"))
	a := s.AddThing("a", letter)
	b := s.AddThing("b", letter)
	word := s.AddThing("word", nil)
	has := s.AddThing("has", nil)
	s.AddRelationship(word, has, a, 1.0, 0)
	s.AddRelationship(word, has, b, 1.0, 0)

	agent := NewAddCounts()
	agent.Attach(s)
	agent.SetEnabled(true)
	agent.Interval = 1

	require.NoError(t, agent.Fire(context.Background()))

	assert.NotNil(t, s.GetRelationshipLabels("word", "has.2", "letter"))
}

func TestBalanceTreeSplitsWideNodes(t *testing.T) {
	s := testStore(t)
	animal := s.AddThing("animal", s.Labeled("Object"))
	for i := 0; i < 8; i++ {
		s.AddThing("pet*", animal)
	}

	agent := NewBalanceTree()
	agent.Attach(s)
	agent.SetEnabled(true)
	agent.Interval = 1
	agent.MaxChildren = 3

	require.NoError(t, agent.Fire(context.Background()))

	assert.LessOrEqual(t, len(animal.Children()), 3)
	// No child is lost: all eight pets are still descendants.
	descendants := animal.Descendants()
	pets := 0
	for _, d := range descendants {
		if len(d.Label()) >= 3 && d.Label()[:3] == "pet" {
			pets++
		}
	}
	assert.Equal(t, 8, pets)
}

func TestClassCreateGroupsSharedAttributes(t *testing.T) {
	s := testStore(t)
	animal := s.AddThing("animal", s.Labeled("Object"))
	for _, name := range []string{"dog", "cat", "cow"} {
		child := s.AddThing(name, animal)
		_ = child
		s.AddStatement(name, "eats", "food")
	}

	agent := NewClassCreate()
	agent.Attach(s)
	agent.SetEnabled(true)
	agent.Interval = 1

	require.NoError(t, agent.Fire(context.Background()))

	sub := s.Labeled("animal.eats.food")
	require.NotNil(t, sub)
	assert.NotNil(t, s.GetRelationshipLabels("animal.eats.food", "eats", "food"))

	subChildren := sub.Children()
	assert.Len(t, subChildren, 3)
	for _, c := range animal.Children() {
		assert.NotEqual(t, "dog", c.Label())
	}
}

func TestRemoveRedundancyPrunesInheritedFacts(t *testing.T) {
	s := testStore(t)
	s.AddStatement("dog", "has", "tail")
	beagle := s.AddThing("beagle", s.Labeled("dog"))
	_ = beagle
	rel := s.AddStatement("beagle", "has", "tail")

	agent := NewRemoveRedundancy()
	agent.Attach(s)
	agent.SetEnabled(true)
	agent.Interval = 1

	require.NoError(t, agent.Fire(context.Background()))
	assert.Less(t, rel.Weight(), 1.0)

	for i := 0; i < 8; i++ {
		require.NoError(t, agent.Fire(context.Background()))
	}
	assert.Nil(t, s.GetRelationshipLabels("beagle", "has", "tail"))
	// The parent's copy survives.
	assert.NotNil(t, s.GetRelationshipLabels("dog", "has", "tail"))
}

func TestAttributeBubblePromotesSharedAttributes(t *testing.T) {
	s := testStore(t)
	bird := s.AddThing("bird", s.Labeled("Object"))
	for _, name := range []string{"robin", "sparrow", "crow"} {
		s.AddThing(name, bird)
		s.AddStatement(name, "can", "fly")
	}

	agent := NewAttributeBubble()
	agent.Attach(s)
	agent.SetEnabled(true)
	agent.Interval = 1

	require.NoError(t, agent.Fire(context.Background()))

	rel := s.GetRelationshipLabels("bird", "can", "fly")
	require.NotNil(t, rel)
	assert.InDelta(t, 0.8, rel.Weight(), 1e-9)
}

func TestUKSClauseParsesPhrases(t *testing.T) {
	s := testStore(t)
	agent := NewUKSClause()
	agent.Attach(s)

	rel := agent.AddRelationship("big dogs", "red balls", "chases")
	require.NotNil(t, rel)

	assert.NotNil(t, s.GetRelationshipLabels("dog", "chase", "ball"))
	assert.NotNil(t, s.GetRelationshipLabels("dog", "is", "big"))
	assert.NotNil(t, s.GetRelationshipLabels("ball", "is", "red"))
	assert.Contains(t, agent.RelationshipTypes(), "chase")

	ct := agent.ClauseType("because")
	require.NotNil(t, ct)
	assert.True(t, ct.HasAncestor("ClauseType"))
}

func TestUKSStatementParsesText(t *testing.T) {
	s := testStore(t)
	agent := NewUKSStatement()
	agent.Attach(s)

	require.NotNil(t, agent.AddStatement("sky is deep blue"))
	assert.NotNil(t, s.GetRelationshipLabels("sky", "is", "deep blue"))

	assert.Nil(t, agent.AddStatement("too short"))
}

func TestUKSQuerySearchesRelationships(t *testing.T) {
	s := testStore(t)
	s.AddStatement("dog", "chases", "cat")
	s.AddStatement("cat", "chases", "mouse")

	agent := NewUKSQuery()
	agent.Attach(s)

	matches, err := agent.Query("d.g", "", "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "dog", matches[0].Source)

	// Patterns are case-insensitive substring searches.
	matches, err = agent.Query("CAT", "chase", "")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = agent.Query("(", "", "")
	require.Error(t, err)
}

func TestOnlineInfoStoresSummaries(t *testing.T) {
	s := testStore(t)
	agent := NewOnlineInfo(func(_ context.Context, term string) (string, error) {
		return "all about " + term, nil
	})
	agent.Attach(s)
	agent.AddQuery("cat")

	require.NoError(t, agent.Fire(context.Background()))

	assert.Equal(t, 0, agent.Pending())
	assert.NotNil(t, s.GetRelationshipLabels("cat", "hasSummary", "all about cat"))

	// An empty queue is a quiet no-op.
	require.NoError(t, agent.Fire(context.Background()))
}

type stubChat struct {
	answer string
	system string
	user   string
}

func (c *stubChat) Ask(_ context.Context, system, user string) (string, error) {
	c.system = system
	c.user = user
	return c.answer, nil
}

func TestGPTInfoVerifiesParentChild(t *testing.T) {
	s := testStore(t)
	chat := &stubChat{answer: "Yes"}
	agent := NewGPTInfo(chat)
	agent.Attach(s)
	agent.QueueParentCheck("dog", "animal")

	require.NoError(t, agent.Fire(context.Background()))

	assert.NotNil(t, s.GetRelationshipLabels("dog", "is-a", "animal"))
	assert.Contains(t, chat.user, "dog")
	assert.Contains(t, chat.user, "animal")
}

func TestGPTInfoWithoutClient(t *testing.T) {
	agent := NewGPTInfo(nil)

	_, err := agent.VerifyParentChild(context.Background(), "dog", "animal")
	assert.ErrorIs(t, err, ErrNoChat)
}

func TestStressTestBulkInsert(t *testing.T) {
	s := testStore(t)
	agent := NewStressTest()
	agent.Attach(s)

	before := s.Len()
	require.NoError(t, agent.AddManyTestItems(25))
	assert.Equal(t, before+25, s.Len())

	require.Error(t, agent.AddManyTestItems(0))
	require.Error(t, agent.AddManyTestItems(MaxStressItems+1))
}

func TestShapeDetectsCircle(t *testing.T) {
	agent := NewShape()
	agent.SetPrimitives(nil, []vision.Arc{
		{Center: vision.NewPoint(1, 1), Radius: 2, StartAngle: 0, EndAngle: 2*math.Pi - 0.01},
	})

	require.NoError(t, agent.Fire(context.Background()))

	shapes := agent.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "circle", shapes[0].Type)
	assert.InDelta(t, 2.0, shapes[0].Radius, 1e-9)
}

func TestShapeDetectsRectangleAndPolygon(t *testing.T) {
	agent := NewShape()
	square := []vision.Segment{
		{Start: vision.NewPoint(0, 0), End: vision.NewPoint(1, 0)},
		{Start: vision.NewPoint(1, 0), End: vision.NewPoint(1, 1)},
		{Start: vision.NewPoint(1, 1), End: vision.NewPoint(0, 1)},
		{Start: vision.NewPoint(0, 1), End: vision.NewPoint(0, 0)},
	}
	agent.SetPrimitives(square, nil)
	require.NoError(t, agent.Fire(context.Background()))

	shapes := agent.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "rectangle", shapes[0].Type)
	assert.Equal(t, 4, shapes[0].Sides)

	triangle := []vision.Segment{
		{Start: vision.NewPoint(0, 0), End: vision.NewPoint(1, 0)},
		{Start: vision.NewPoint(1, 0), End: vision.NewPoint(0, 1)},
		{Start: vision.NewPoint(0, 1), End: vision.NewPoint(0, 0)},
	}
	agent.SetPrimitives(triangle, nil)
	require.NoError(t, agent.Fire(context.Background()))

	shapes = agent.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "polygon", shapes[0].Type)
	assert.Equal(t, 3, shapes[0].Sides)

	// An open chain is not a shape.
	agent.SetPrimitives(triangle[:2], nil)
	require.NoError(t, agent.Fire(context.Background()))
	assert.Empty(t, agent.Shapes())
}

func TestMentalModelInitializeSeedsConcepts(t *testing.T) {
	s := testStore(t)
	agent := NewMentalModel()
	agent.Attach(s)
	require.NoError(t, agent.Initialize())

	spatial := s.Labeled("Spatial")
	require.NotNil(t, spatial)
	assert.True(t, spatial.HasAncestor("Visual"))
	near := s.Labeled("near")
	require.NotNil(t, near)
	assert.True(t, near.HasAncestor("Spatial"))
}

func TestMentalModelDerivesSpatialRelations(t *testing.T) {
	s := testStore(t)
	agent := NewMentalModel()
	agent.Attach(s)
	require.NoError(t, agent.Initialize())
	agent.SetEnabled(true)
	agent.Interval = 1

	agent.ObserveObject("a", "obj", vision.NewPoint(0, 0))
	agent.ObserveObject("b", "obj", vision.NewPoint(10, 0))
	agent.ObserveObject("c", "obj", vision.NewPoint(200, 0))

	require.NoError(t, agent.Fire(context.Background()))

	assert.Contains(t, agent.QueryRelation("a", "near"), "b")
	assert.Contains(t, agent.QueryRelation("a", "right"), "c")
	// Inverse relations answer from the other side.
	assert.Contains(t, agent.QueryRelation("c", "left"), "a")

	// The model is mirrored into the knowledge store.
	assert.NotNil(t, s.GetRelationshipLabels("a", "right", "c"))
	assert.True(t, s.Labeled("a").HasAncestor("Visual"))
}

func TestMentalModelInfersTransitiveLeft(t *testing.T) {
	agent := NewMentalModel()
	agent.objects = map[string]*ModelObject{
		"a": {Name: "a"}, "b": {Name: "b"}, "c": {Name: "c"},
	}
	agent.relations = []SpatialRelation{
		{Object1: "a", Object2: "b", Relation: "left", Confidence: 1.0},
		{Object1: "b", Object2: "c", Relation: "left", Confidence: 1.0},
	}

	agent.inferTransitive()

	require.True(t, agent.hasRelation("a", "c", "left"))
	for _, rel := range agent.Relations() {
		if rel.Object1 == "a" && rel.Object2 == "c" {
			assert.InDelta(t, 0.7, rel.Confidence, 1e-9)
		}
	}
}

func TestMentalModelDecayEvictsStale(t *testing.T) {
	agent := NewMentalModel()
	agent.ConfidenceDecay = 0.01

	obj := agent.ObserveObject("old", "obj", vision.NewPoint(0, 0))
	obj.lastUpdated = time.Now().Add(-time.Hour)
	agent.ObserveObject("fresh", "obj", vision.NewPoint(1, 1))

	agent.decay()

	assert.Nil(t, agent.Object("old"))
	assert.NotNil(t, agent.Object("fresh"))
}

func TestMentalModelMaxObjectsEvictsOldest(t *testing.T) {
	agent := NewMentalModel()
	agent.MaxObjects = 2

	agent.ObserveObject("a", "obj", vision.NewPoint(0, 0)).lastUpdated = time.Now().Add(-3 * time.Minute)
	agent.ObserveObject("b", "obj", vision.NewPoint(1, 0)).lastUpdated = time.Now().Add(-2 * time.Minute)
	agent.ObserveObject("c", "obj", vision.NewPoint(2, 0)).lastUpdated = time.Now().Add(-time.Minute)

	agent.decay()

	assert.Nil(t, agent.Object("a"))
	assert.NotNil(t, agent.Object("b"))
	assert.NotNil(t, agent.Object("c"))
}

func TestMentalModelObserveShapes(t *testing.T) {
	agent := NewMentalModel()
	agent.ObserveShapes([]DetectedShape{
		{Type: "circle", Center: vision.NewPoint(1, 1), Radius: 2},
		{Type: "rectangle", Sides: 4},
	})

	circle := agent.Object("shape0")
	require.NotNil(t, circle)
	assert.Equal(t, "circle", circle.Properties["shape_type"])

	rect := agent.Object("shape1")
	require.NotNil(t, rect)
	assert.Equal(t, "4", rect.Properties["sides"])

	summary := agent.Summary()
	assert.Equal(t, 2, summary.Objects)
	assert.Equal(t, []string{"shape"}, summary.Kinds)
}

func TestClassifyShape(t *testing.T) {
	assert.Equal(t, "circle", ClassifyShape(math.Pi, 2*math.Pi))
	// A unit square's circularity lands in the ellipse band.
	assert.Equal(t, "ellipse", ClassifyShape(1, 4))
	assert.Equal(t, "polygon", ClassifyShape(10, 22))
	assert.Equal(t, "", ClassifyShape(0, 5))
}

func TestUKSPersistLoadsOnFirstFire(t *testing.T) {
	src := testStore(t)
	src.AddStatement("dog", "is", "friendly")
	path := filepath.Join(t.TempDir(), "uks.json")
	require.NoError(t, src.Save(path))

	s := testStore(t)
	agent := NewUKSPersist()
	agent.Attach(s)
	agent.SetParameters(map[string]string{"file_name": path})

	require.NoError(t, agent.Fire(context.Background()))
	assert.NotNil(t, s.GetRelationshipLabels("dog", "is", "friendly"))

	// The file is read once; later fires are quiet no-ops.
	s.RemoveStatement("dog", "is", "friendly")
	require.NoError(t, agent.Fire(context.Background()))
	assert.Nil(t, s.GetRelationshipLabels("dog", "is", "friendly"))
}

func TestUKSPersistSavesOnReset(t *testing.T) {
	s := testStore(t)
	s.AddStatement("cat", "is", "aloof")
	path := filepath.Join(t.TempDir(), "uks.json")

	agent := NewUKSPersist()
	agent.Attach(s)
	agent.SetParameters(map[string]string{"file_name": path})

	// A missing file is not an error on fire.
	require.NoError(t, agent.Fire(context.Background()))

	agent.Reset()

	loaded := testStore(t)
	require.NoError(t, loaded.Load(path, false))
	assert.NotNil(t, loaded.GetRelationshipLabels("cat", "is", "aloof"))
}

func TestCadence(t *testing.T) {
	c := cadence{Interval: 3}
	assert.False(t, c.due())
	assert.False(t, c.due())
	assert.True(t, c.due())
	assert.False(t, c.due())
}
