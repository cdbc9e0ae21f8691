// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/brainsim/internal/uks"
)

// ClassCreate groups children that share an attribute under a new
// intermediate class named parent.reltype.target.
type ClassCreate struct {
	Base
	cadence
	MinCommonAttributes int
}

func NewClassCreate() *ClassCreate {
	c := &ClassCreate{Base: NewBase("ClassCreate"), MinCommonAttributes: 3}
	c.SetEnabled(false)
	return c
}

func (c *ClassCreate) Fire(ctx context.Context) error {
	if !c.due() {
		return nil
	}
	store := c.Store()
	if store == nil {
		return nil
	}
	fmt.Fprintln(c.Output(), "ClassCreate: sweep started")
	for _, t := range store.Things() {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := t.Label()
		if strings.Contains(label, ".") || strings.Contains(label, "unknown") {
			continue
		}
		if !t.HasAncestor("Object") {
			continue
		}
		c.groupCommonAttributes(store, t)
	}
	fmt.Fprintln(c.Output(), "ClassCreate: sweep finished")
	return nil
}

type relGroup struct {
	relType *uks.Thing
	target  *uks.Thing
	rels    []*uks.Relationship
}

func groupChildRelationships(store *uks.Store, t *uks.Thing) []*relGroup {
	hasChild := store.Labeled(uks.HasChild)
	var groups []*relGroup
	for _, child := range t.Children() {
		for _, r := range child.Relationships() {
			if r.Type == hasChild {
				continue
			}
			var found *relGroup
			for _, g := range groups {
				if g.relType == r.Type && g.target == r.Target {
					found = g
					break
				}
			}
			if found == nil {
				found = &relGroup{relType: r.Type, target: r.Target}
				groups = append(groups, found)
			}
			found.rels = append(found.rels, r)
		}
	}
	return groups
}

func (c *ClassCreate) groupCommonAttributes(store *uks.Store, t *uks.Thing) {
	for _, g := range groupChildRelationships(store, t) {
		if len(g.rels) < c.MinCommonAttributes || g.target == nil {
			continue
		}
		newLabel := fmt.Sprintf("%s.%s.%s", t.Label(), g.relType.Label(), g.target.Label())
		newParent := store.GetOrAddThing(newLabel, t)
		store.AddRelationship(newParent, g.relType, g.target, 1.0, 0)
		fmt.Fprintf(c.Output(), "ClassCreate: created subclass %s\n", newParent.Label())
		hasChild := store.Labeled(uks.HasChild)
		for _, rel := range g.rels {
			child := rel.Source
			if _, err := child.AddParent(newParent); err != nil {
				continue
			}
			for _, pr := range t.Relationships() {
				if pr.Type == hasChild && pr.Target == child {
					store.RemoveRelationship(pr)
				}
			}
		}
	}
}

func (c *ClassCreate) Parameters() map[string]string {
	return map[string]string{
		"interval":              strconv.Itoa(c.Interval),
		"min_common_attributes": strconv.Itoa(c.MinCommonAttributes),
	}
}

func (c *ClassCreate) SetParameters(params map[string]string) {
	if v, err := strconv.Atoi(params["interval"]); err == nil && v > 0 {
		c.Interval = v
	}
	if v, err := strconv.Atoi(params["min_common_attributes"]); err == nil && v > 0 {
		c.MinCommonAttributes = v
	}
}
