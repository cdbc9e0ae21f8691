// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/pdiddy/brainsim/internal/uks"
)

// UKSClause parses small natural-language phrases into statements: the
// head noun of source and target (singularized) becomes the Thing, and
// any preceding words become attribute modifiers.
type UKSClause struct {
	Base
}

func NewUKSClause() *UKSClause {
	return &UKSClause{Base: NewBase("UKSClause")}
}

// Fire is a no-op; the module only exposes helpers.
func (c *UKSClause) Fire(context.Context) error { return nil }

// singularize reduces a word to singular form, keeping the verbs "has"
// and "is" untouched.
func singularize(word string) string {
	switch strings.ToLower(word) {
	case "has", "is":
		return word
	}
	return inflection.Singular(word)
}

// splitPhrase separates a phrase into its head word plus modifiers. For
// relationship types the head is the first word; otherwise the last.
func splitPhrase(text string, relType bool) (head string, modifiers []string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil
	}
	if relType {
		head = singularize(parts[0])
		parts = parts[1:]
	} else {
		head = singularize(parts[len(parts)-1])
		parts = parts[:len(parts)-1]
	}
	for _, p := range parts {
		modifiers = append(modifiers, singularize(p))
	}
	return head, modifiers
}

// ClauseType returns the Thing for name under the ClauseType parent,
// creating both as needed.
func (c *UKSClause) ClauseType(name string) *uks.Thing {
	store := c.Store()
	if store == nil {
		return nil
	}
	parent := store.GetOrAddThing("ClauseType", nil)
	return store.GetOrAddThing(name, parent)
}

// AddRelationship parses source, target, and relationship phrases and
// asserts the resulting statement. Modifiers attach to the head Things
// via "is" (nouns) or "hasProperty" (relationship types).
func (c *UKSClause) AddRelationship(source, target, relType string) *uks.Relationship {
	store := c.Store()
	if store == nil {
		return nil
	}
	srcLabel, srcMods := splitPhrase(source, false)
	tgtLabel, tgtMods := splitPhrase(target, false)
	relLabel, relMods := splitPhrase(relType, true)

	src := store.GetOrAddThing(srcLabel, nil)
	tgt := store.GetOrAddThing(tgtLabel, nil)
	relParent := store.GetOrAddThing("RelationshipType", nil)
	rel := store.GetOrAddThing(relLabel, relParent)

	for _, m := range srcMods {
		store.AddStatement(src.Label(), "is", m)
	}
	for _, m := range tgtMods {
		store.AddStatement(tgt.Label(), "is", m)
	}
	for _, m := range relMods {
		store.AddStatement(rel.Label(), "hasProperty", m)
	}
	return store.AddRelationship(src, rel, tgt, 1.0, 0)
}

// SearchLabel returns the Thing carrying label, or nil.
func (c *UKSClause) SearchLabel(label string) *uks.Thing {
	store := c.Store()
	if store == nil {
		return nil
	}
	return store.Labeled(label)
}

// RelationshipTypes lists the labels registered under RelationshipType.
func (c *UKSClause) RelationshipTypes() []string {
	store := c.Store()
	if store == nil {
		return nil
	}
	parent := store.GetOrAddThing("RelationshipType", nil)
	var out []string
	for _, child := range parent.Children() {
		out = append(out, child.Label())
	}
	return out
}
