// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pdiddy/brainsim/internal/uks"
)

// AddCounts periodically scans every Thing and, where several relationship
// targets share a common ancestor, adds an aggregate relationship whose
// type label encodes the count (for example "has.3").
type AddCounts struct {
	Base
	cadence
}

// NewAddCounts returns a disabled AddCounts agent; it sweeps only after
// being enabled.
func NewAddCounts() *AddCounts {
	a := &AddCounts{Base: NewBase("AddCounts")}
	a.SetEnabled(false)
	return a
}

func (a *AddCounts) Fire(ctx context.Context) error {
	if !a.due() {
		return nil
	}
	store := a.Store()
	if store == nil {
		return nil
	}
	fmt.Fprintln(a.Output(), "AddCounts: sweep started")
	for _, t := range store.Things() {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.addCountRelationships(store, t)
	}
	fmt.Fprintln(a.Output(), "AddCounts: sweep finished")
	return nil
}

func (a *AddCounts) addCountRelationships(store *uks.Store, t *uks.Thing) {
	hasChild := store.Labeled(uks.HasChild)
	rels := t.Relationships()
	for _, r := range rels {
		if r.Type == hasChild {
			continue
		}
		useRelType := instanceType(r.Type)
		var targets []*uks.Thing
		for _, rel := range rels {
			if rel.Target != nil && instanceType(rel.Type) == useRelType {
				targets = append(targets, rel.Target)
			}
		}
		for _, match := range attributeCounts(store, targets) {
			relLabel := fmt.Sprintf("%s.%d", useRelType.Label(), match.count)
			if store.GetRelationshipLabels(t.Label(), relLabel, match.thing.Label()) == nil {
				store.AddStatement(t.Label(), relLabel, match.thing.Label())
				fmt.Fprintf(a.Output(), "AddCounts: added %s %s %s\n", t.Label(), relLabel, match.thing.Label())
			}
		}
	}
}

type thingCount struct {
	thing *uks.Thing
	count int
}

// attributeCounts tallies the ancestors of ts and keeps those descending
// from unknownObject that occur more than once.
func attributeCounts(store *uks.Store, ts []*uks.Thing) []thingCount {
	if len(ts) == 0 {
		return nil
	}
	unknown := store.Labeled("unknownObject")
	counts := make(map[*uks.Thing]int)
	var order []*uks.Thing
	for _, t := range ts {
		for _, anc := range t.AncestorList() {
			if counts[anc] == 0 {
				order = append(order, anc)
			}
			counts[anc]++
		}
	}
	var out []thingCount
	for _, k := range order {
		if k == unknown || counts[k] <= 1 {
			continue
		}
		if unknown != nil && k.HasAncestor("unknownObject") {
			out = append(out, thingCount{thing: k, count: counts[k]})
		}
	}
	return out
}

func (a *AddCounts) Parameters() map[string]string {
	return map[string]string{"interval": strconv.Itoa(a.Interval)}
}

func (a *AddCounts) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		a.Interval = v
	}
}
