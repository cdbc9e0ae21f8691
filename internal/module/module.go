// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package module implements the agent framework: a registry of named
// modules that share a knowledge store and are fired once per engine tick.
// Agents that sweep the whole store run on a tick cadence rather than on
// every fire.
package module

import (
	"context"
	"io"
	"strings"

	"github.com/pdiddy/brainsim/internal/uks"
)

// Module is the contract every agent satisfies. Fire is called once per
// engine tick while the module is enabled.
type Module interface {
	Name() string
	Label() string
	SetLabel(label string)
	Enabled() bool
	SetEnabled(enabled bool)
	Attach(store *uks.Store)
	Initialize() error
	Fire(ctx context.Context) error
	Reset()
	Parameters() map[string]string
	SetParameters(params map[string]string)
}

// Base carries the state common to all modules. Agents embed it and
// override the lifecycle methods they need.
type Base struct {
	name    string
	label   string
	enabled bool
	store   *uks.Store
	out     io.Writer
}

// NewBase returns a Base for an enabled module named name.
func NewBase(name string) Base {
	return Base{name: name, label: name, enabled: true, out: io.Discard}
}

// Name returns the registry name of the module.
func (b *Base) Name() string { return b.name }

// Label returns the instance label, which defaults to the module name.
func (b *Base) Label() string { return b.label }

// SetLabel assigns an instance label; empty labels are ignored.
func (b *Base) SetLabel(label string) {
	if label != "" {
		b.label = label
	}
}

// Enabled reports whether the module participates in FireModules.
func (b *Base) Enabled() bool { return b.enabled }

// SetEnabled toggles participation in FireModules.
func (b *Base) SetEnabled(enabled bool) { b.enabled = enabled }

// Attach assigns the shared knowledge store.
func (b *Base) Attach(store *uks.Store) { b.store = store }

// Store returns the attached knowledge store, or nil.
func (b *Base) Store() *uks.Store { return b.store }

// SetOutput directs the module's progress lines to w.
func (b *Base) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	b.out = w
}

// Output returns the module's progress writer.
func (b *Base) Output() io.Writer { return b.out }

// Initialize is a no-op by default.
func (b *Base) Initialize() error { return nil }

// Reset is a no-op by default.
func (b *Base) Reset() {}

// Parameters returns nil by default.
func (b *Base) Parameters() map[string]string { return nil }

// SetParameters is a no-op by default.
func (b *Base) SetParameters(map[string]string) {}

// defaultInterval is the tick cadence of store-sweeping agents.
const defaultInterval = 10

// cadence counts engine ticks and reports when a periodic sweep is due.
type cadence struct {
	Interval int
	tick     int
}

func (c *cadence) due() bool {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	c.tick++
	if c.tick < c.Interval {
		return false
	}
	c.tick = 0
	return true
}

// instanceType walks auto-numbered instances (dog0, dog1, ...) up to the
// class Thing they were stamped from. Things whose original label contains
// a dot are class creations and are left alone.
func instanceType(t *uks.Thing) *uks.Thing {
	use := t
	for {
		label := use.Label()
		if label == "" || strings.Contains(t.Label(), ".") {
			return use
		}
		last := label[len(label)-1]
		if last < '0' || last > '9' {
			return use
		}
		parents := use.Parents()
		if len(parents) == 0 || !strings.HasPrefix(label, parents[0].Label()) {
			return use
		}
		use = parents[0]
	}
}
