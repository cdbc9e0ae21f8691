// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pdiddy/brainsim/internal/uks"
)

// bubbleExcluded relationship types never bubble to a parent.
var bubbleExcluded = map[string]bool{
	"hasProperty":   true,
	"isTransitive":  true,
	"isCommutative": true,
	"inverseOf":     true,
	"hasAttribute":  true,
	"hasDigit":      true,
}

// AttributeBubble promotes relationships shared by enough of a Thing's
// children onto the Thing itself, weighting the promoted relationship by
// how much of the child population agrees and removing it again when
// conflicting evidence dominates.
type AttributeBubble struct {
	Base
	cadence
}

func NewAttributeBubble() *AttributeBubble {
	a := &AttributeBubble{Base: NewBase("AttributeBubble")}
	a.SetEnabled(false)
	return a
}

func (a *AttributeBubble) Fire(ctx context.Context) error {
	if !a.due() {
		return nil
	}
	store := a.Store()
	if store == nil {
		return nil
	}
	fmt.Fprintln(a.Output(), "AttributeBubble: sweep started")
	for _, t := range store.Things() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.HasAncestor("Object") {
			a.bubbleChildAttributes(store, t)
		}
	}
	fmt.Fprintln(a.Output(), "AttributeBubble: sweep finished")
	return nil
}

func (a *AttributeBubble) bubbleChildAttributes(store *uks.Store, t *uks.Thing) {
	if len(t.Children()) == 0 || t.Label() == "unknownObject" {
		return
	}
	hasChild := store.Labeled(uks.HasChild)
	var groups []*relGroup
	for _, child := range t.ChildrenWithSubclasses() {
		for _, r := range child.Relationships() {
			if r.Type == hasChild {
				continue
			}
			useRelType := instanceType(r.Type)
			var found *relGroup
			for _, g := range groups {
				if g.relType == useRelType && g.target == r.Target {
					found = g
					break
				}
			}
			if found == nil {
				found = &relGroup{relType: useRelType, target: r.Target}
				groups = append(groups, found)
			}
			found.rels = append(found.rels, r)
		}
	}
	if len(groups) == 0 {
		return
	}
	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i].rels) > len(groups[j].rels) })

	for _, rr := range groups {
		if bubbleExcluded[rr.relType.Label()] {
			continue
		}
		r := store.GetRelationship(t, rr.relType, rr.target)
		currentWeight := 0.0
		if r != nil {
			currentWeight = r.Weight()
		}
		totalCount := len(t.Children())
		positiveCount := 0
		positiveWeight := 0.0
		for _, rel := range rr.rels {
			w := rel.Weight()
			if w > 0.5 {
				positiveCount++
			}
			positiveWeight += w
		}
		negativeCount := 0
		negativeWeight := 0.0
		for _, other := range groups {
			if other == rr {
				continue
			}
			if a.conflict(store, rr, other) {
				negativeCount += len(other.rels)
				for _, rel := range other.rels {
					negativeWeight += rel.Weight()
				}
			}
		}
		noInfoCount := totalCount - (positiveCount + negativeCount)
		positiveWeight += currentWeight + float64(noInfoCount)*0.51

		if negativeCount >= positiveCount {
			if r != nil {
				store.RemoveRelationship(r)
				fmt.Fprintf(a.Output(), "AttributeBubble: removed %s\n", r)
			}
			continue
		}

		deltaWeight := positiveWeight - negativeWeight
		var targetWeight float64
		switch {
		case deltaWeight < 0.8:
			targetWeight = -0.1
		case deltaWeight < 1.7:
			targetWeight = 0.01
		case deltaWeight < 2.7:
			targetWeight = 0.2
		default:
			targetWeight = 0.3
		}
		if currentWeight == 0 {
			currentWeight = 0.5
		}
		newWeight := currentWeight + targetWeight
		if newWeight > 0.99 {
			newWeight = 0.99
		}
		if newWeight == currentWeight && r != nil {
			continue
		}
		if newWeight < 0.5 {
			if r != nil {
				store.RemoveRelationship(r)
				fmt.Fprintf(a.Output(), "AttributeBubble: removed %s\n", r)
			}
			continue
		}
		if r == nil {
			r = store.AddRelationship(t, rr.relType, rr.target, newWeight, 0)
		}
		r.SetWeight(newWeight)
		for _, existing := range t.Relationships() {
			if existing == r {
				continue
			}
			tmp := &relGroup{relType: existing.Type, target: existing.Target, rels: []*uks.Relationship{existing}}
			if a.conflict(store, tmp, rr) {
				store.RemoveRelationship(existing)
			}
		}
		fmt.Fprintf(a.Output(), "AttributeBubble: %s (%.2f)\n", r, newWeight)
	}
}

// conflict reports whether two relationship groups contradict each other:
// same type with mutually exclusive targets, or same target reached with
// incompatible attributes (negation, exclusive modifiers, numbers).
func (a *AttributeBubble) conflict(store *uks.Store, r1, r2 *relGroup) bool {
	if r1.relType == r2.relType && r1.target == r2.target {
		return false
	}
	isExclusive := store.Labeled("isExclusive")
	allowMultiple := store.Labeled("allowMultiple")

	if r1.relType == r2.relType {
		for _, parent := range commonParents(r1.target, r2.target) {
			if isExclusive != nil && parent.HasProperty(isExclusive) {
				return true
			}
			if allowMultiple != nil && parent.HasProperty(allowMultiple) {
				return true
			}
		}
	}
	if r1.target == r2.target {
		for _, parent := range commonParents(r1.target, r2.target) {
			if isExclusive != nil && parent.HasProperty(isExclusive) {
				return true
			}
		}
		attrs1 := r1.relType.GetAttributes()
		attrs2 := r2.relType.GetAttributes()
		if hasNegation(attrs1) != hasNegation(attrs2) {
			return true
		}
		for _, a1 := range attrs1 {
			for _, a2 := range attrs2 {
				if a1 == a2 {
					continue
				}
				for _, p := range commonParents(a1, a2) {
					if isExclusive != nil && p.HasProperty(isExclusive) {
						return true
					}
					if allowMultiple != nil && p.HasProperty(allowMultiple) {
						return true
					}
				}
			}
		}
		if hasNumber(attrs1) || hasNumber(attrs2) {
			return true
		}
	}
	return false
}

func commonParents(t1, t2 *uks.Thing) []*uks.Thing {
	if t1 == nil || t2 == nil {
		return nil
	}
	p2 := t2.Parents()
	in2 := make(map[*uks.Thing]bool, len(p2))
	for _, p := range p2 {
		in2[p] = true
	}
	var out []*uks.Thing
	for _, p := range t1.Parents() {
		if in2[p] {
			out = append(out, p)
		}
	}
	return out
}

func hasNegation(attrs []*uks.Thing) bool {
	for _, a := range attrs {
		if label := a.Label(); label == "not" || label == "no" {
			return true
		}
	}
	return false
}

func hasNumber(attrs []*uks.Thing) bool {
	for _, a := range attrs {
		if a.HasAncestor("number") {
			return true
		}
	}
	return false
}

func (a *AttributeBubble) Parameters() map[string]string {
	return map[string]string{"interval": strconv.Itoa(a.Interval)}
}

func (a *AttributeBubble) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		a.Interval = v
	}
}
