// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pdiddy/brainsim/internal/uks"
)

// RemoveRedundancy weakens relationships that restate, with high
// confidence, a relationship already present on a parent; once the weight
// drops below 0.5 the redundant relationship is removed.
type RemoveRedundancy struct {
	Base
	cadence
}

func NewRemoveRedundancy() *RemoveRedundancy {
	r := &RemoveRedundancy{Base: NewBase("RemoveRedundancy")}
	r.SetEnabled(false)
	return r
}

func (r *RemoveRedundancy) Fire(ctx context.Context) error {
	if !r.due() {
		return nil
	}
	store := r.Store()
	if store == nil {
		return nil
	}
	fmt.Fprintln(r.Output(), "RemoveRedundancy: sweep started")
	for _, t := range store.Things() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.pruneRedundant(store, t)
	}
	fmt.Fprintln(r.Output(), "RemoveRedundancy: sweep finished")
	return nil
}

func (r *RemoveRedundancy) pruneRedundant(store *uks.Store, t *uks.Thing) {
	for _, parent := range t.Parents() {
		inherited := store.GetAllRelationships([]*uks.Thing{parent}, false)
		for _, rel := range t.Relationships() {
			var match *uks.Relationship
			for _, x := range inherited {
				if x.Source != rel.Source && x.Type == rel.Type && x.Target == rel.Target {
					match = x
					break
				}
			}
			if match == nil || match.Weight() <= 0.8 {
				continue
			}
			weakened := rel.Weight() - 0.1
			rel.SetWeight(weakened)
			if weakened < 0.5 {
				store.RemoveRelationship(rel)
				fmt.Fprintf(r.Output(), "RemoveRedundancy: removed %s\n", rel)
				// The relationship list changed; resume on the next sweep.
				return
			}
			fmt.Fprintf(r.Output(), "RemoveRedundancy: weakened %s to %.2f\n", rel, weakened)
		}
	}
}

func (r *RemoveRedundancy) Parameters() map[string]string {
	return map[string]string{"interval": strconv.Itoa(r.Interval)}
}

func (r *RemoveRedundancy) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		r.Interval = v
	}
}
