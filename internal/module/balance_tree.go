// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/brainsim/internal/uks"
)

// BalanceTree keeps the hierarchy shallow: when a Thing accumulates more
// than MaxChildren direct children, new sibling classes are created (with
// auto-numbered labels) and children redistributed between them.
type BalanceTree struct {
	Base
	cadence
	MaxChildren int
}

func NewBalanceTree() *BalanceTree {
	b := &BalanceTree{Base: NewBase("BalanceTree"), MaxChildren: 6}
	b.SetEnabled(false)
	return b
}

func (b *BalanceTree) Fire(ctx context.Context) error {
	if !b.due() {
		return nil
	}
	store := b.Store()
	if store == nil {
		return nil
	}
	fmt.Fprintln(b.Output(), "BalanceTree: sweep started")
	for _, t := range store.Things() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.HasAncestor("Object") && !strings.Contains(t.Label(), ".") {
			b.splitExcessiveChildren(store, t)
		}
	}
	fmt.Fprintln(b.Output(), "BalanceTree: sweep finished")
	return nil
}

func (b *BalanceTree) splitExcessiveChildren(store *uks.Store, t *uks.Thing) {
	for len(t.Children()) > b.MaxChildren {
		newParent := store.AddThing(t.Label(), t)
		fmt.Fprintf(b.Output(), "BalanceTree: created class %s\n", newParent.Label())
		for len(newParent.Children()) < b.MaxChildren {
			children := t.Children()
			if len(children) == 0 {
				break
			}
			child := children[0]
			if child == newParent {
				if len(children) < 2 {
					break
				}
				child = children[1]
			}
			child.RemoveParent(t)
			if _, err := child.AddParent(newParent); err != nil {
				return
			}
		}
	}
}

func (b *BalanceTree) Parameters() map[string]string {
	return map[string]string{
		"interval":     strconv.Itoa(b.Interval),
		"max_children": strconv.Itoa(b.MaxChildren),
	}
}

func (b *BalanceTree) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		b.Interval = v
	}
	if v, err := strconv.Atoi(params["max_children"]); err == nil && v > 0 {
		b.MaxChildren = v
	}
}
