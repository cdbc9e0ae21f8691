// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package uks implements the Universal Knowledge Store: a graph of labeled
// Things connected by typed, weighted Relationships. Labels are unique
// case-insensitively; colliding labels are auto-numbered.
package uks

import (
	"strconv"
	"strings"
	"sync"
)

// labelTable maps lowercase labels to Things. Each Store owns one table;
// Things keep a back-pointer so relabeling stays consistent.
type labelTable struct {
	mu     sync.RWMutex
	labels map[string]*Thing
}

func newLabelTable() *labelTable {
	return &labelTable{labels: make(map[string]*Thing)}
}

// add associates label with t and returns the label actually assigned.
// When the label is already taken by another Thing a numeric suffix is
// appended, counting up until a free slot is found. A trailing "*" forces
// numbering to start at 0. Any previous label of t is released first.
func (lt *labelTable) add(label string, t *Thing) string {
	if label == "" {
		return ""
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	if old := t.label; old != "" {
		delete(lt.labels, strings.ToLower(old))
	}

	base := label
	cur := -1
	if strings.HasSuffix(label, "*") {
		base = strings.TrimSuffix(label, "*")
		cur = 0
		label = base + "0"
	}

	for {
		key := strings.ToLower(label)
		existing, ok := lt.labels[key]
		if !ok || existing == t {
			lt.labels[key] = t
			return label
		}
		cur++
		label = base + strconv.Itoa(cur)
	}
}

func (lt *labelTable) get(label string) *Thing {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.labels[strings.ToLower(label)]
}

func (lt *labelTable) remove(label string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	delete(lt.labels, strings.ToLower(label))
}

func (lt *labelTable) clear() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.labels = make(map[string]*Thing)
}

func (lt *labelTable) len() int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return len(lt.labels)
}
