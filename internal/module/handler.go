// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/pdiddy/brainsim/internal/uks"
)

// ErrUnknownModule is returned when an activation names no registered module.
var ErrUnknownModule = errors.New("unknown module")

// Registration describes an available module type.
type Registration struct {
	Name        string
	Description string
	New         func() Module
}

// Param is a single serialized module parameter.
type Param struct {
	Name  string `json:"name" yaml:"name" xml:"name,attr"`
	Value string `json:"value" yaml:"value" xml:"value,attr"`
}

// Record is the serializable form of an active module instance.
type Record struct {
	Class  string  `json:"class" yaml:"class" xml:"class"`
	Label  string  `json:"label" yaml:"label" xml:"label"`
	Params []Param `json:"params,omitempty" yaml:"params,omitempty" xml:"Param,omitempty"`
}

// Handler owns the module registry and the list of active instances, and
// dispatches Fire across them each engine tick.
type Handler struct {
	mu       sync.Mutex
	registry map[string]Registration
	active   []Module
	store    *uks.Store
}

// NewHandler returns a Handler bound to store with the built-in agents
// registered.
func NewHandler(store *uks.Store) *Handler {
	h := &Handler{
		registry: make(map[string]Registration),
		store:    store,
	}
	registerBuiltins(h)
	return h
}

// Store returns the shared knowledge store.
func (h *Handler) Store() *uks.Store { return h.store }

// Register adds a module type to the registry and records its name as a
// Thing in the knowledge store.
func (h *Handler) Register(reg Registration) {
	h.mu.Lock()
	h.registry[reg.Name] = reg
	h.mu.Unlock()
	h.store.GetOrAddThing(reg.Name, nil)
}

// Registered returns the registry sorted by name.
func (h *Handler) Registered() []Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Registration, 0, len(h.registry))
	for _, reg := range h.registry {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Activate instantiates the named module, attaches the store, initializes
// it, and adds it to the active list.
func (h *Handler) Activate(name string) (Module, error) {
	h.mu.Lock()
	reg, ok := h.registry[name]
	h.mu.Unlock()
	if !ok {
		return nil, errors.Wrap(ErrUnknownModule, name)
	}
	m := reg.New()
	m.Attach(h.store)
	if err := m.Initialize(); err != nil {
		return nil, errors.Wrapf(err, "initializing %s", name)
	}
	h.mu.Lock()
	h.active = append(h.active, m)
	h.mu.Unlock()
	return m, nil
}

// Deactivate removes active instances carrying label.
func (h *Handler) Deactivate(label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.active[:0]
	for _, m := range h.active {
		if m.Label() != label {
			out = append(out, m)
		}
	}
	h.active = out
}

// Active returns a snapshot of the active instances.
func (h *Handler) Active() []Module {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Module, len(h.active))
	copy(out, h.active)
	return out
}

// FireModules fires every enabled active module once. The first error stops
// the pass and is returned.
func (h *Handler) FireModules(ctx context.Context) error {
	for _, m := range h.Active() {
		if !m.Enabled() {
			continue
		}
		if err := m.Fire(ctx); err != nil {
			return errors.Wrapf(err, "firing %s", m.Label())
		}
	}
	return nil
}

// ResetAll resets every active module.
func (h *Handler) ResetAll() {
	for _, m := range h.Active() {
		m.Reset()
	}
}

// SerializeActive captures the active instances for project persistence.
func (h *Handler) SerializeActive() []Record {
	var records []Record
	for _, m := range h.Active() {
		rec := Record{Class: m.Name(), Label: m.Label()}
		params := m.Parameters()
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec.Params = append(rec.Params, Param{Name: name, Value: params[name]})
		}
		records = append(records, rec)
	}
	return records
}

// LoadActive replaces the active list from records produced by
// SerializeActive. Records naming unregistered modules are skipped.
func (h *Handler) LoadActive(records []Record) error {
	h.mu.Lock()
	h.active = nil
	h.mu.Unlock()
	for _, rec := range records {
		h.mu.Lock()
		_, ok := h.registry[rec.Class]
		h.mu.Unlock()
		if !ok {
			continue
		}
		m, err := h.Activate(rec.Class)
		if err != nil {
			return err
		}
		m.SetLabel(rec.Label)
		if len(rec.Params) > 0 {
			params := make(map[string]string, len(rec.Params))
			for _, p := range rec.Params {
				params[p.Name] = p.Value
			}
			m.SetParameters(params)
		}
	}
	return nil
}

func registerBuiltins(h *Handler) {
	h.Register(Registration{Name: "AddCounts", Description: "aggregate shared-ancestor counts onto relationship types", New: func() Module { return NewAddCounts() }})
	h.Register(Registration{Name: "AttributeBubble", Description: "bubble attributes shared by children up to their parent", New: func() Module { return NewAttributeBubble() }})
	h.Register(Registration{Name: "BalanceTree", Description: "split Things with too many direct children", New: func() Module { return NewBalanceTree() }})
	h.Register(Registration{Name: "ClassCreate", Description: "create subclasses from shared child attributes", New: func() Module { return NewClassCreate() }})
	h.Register(Registration{Name: "GPTInfo", Description: "verify and expand knowledge with a language model", New: func() Module { return NewGPTInfo(nil) }})
	h.Register(Registration{Name: "MentalModel", Description: "track observed objects and their spatial relations", New: func() Module { return NewMentalModel() }})
	h.Register(Registration{Name: "Mine", Description: "template module with no behavior", New: func() Module { return NewMine() }})
	h.Register(Registration{Name: "OnlineInfo", Description: "fetch encyclopedia summaries for queued terms", New: func() Module { return NewOnlineInfo(nil) }})
	h.Register(Registration{Name: "RemoveRedundancy", Description: "prune relationships duplicated on a parent", New: func() Module { return NewRemoveRedundancy() }})
	h.Register(Registration{Name: "Shape", Description: "detect shapes from segments and arcs", New: func() Module { return NewShape() }})
	h.Register(Registration{Name: "StressTest", Description: "bulk-insert test hierarchies", New: func() Module { return NewStressTest() }})
	h.Register(Registration{Name: "UKSClause", Description: "phrase-aware statement and clause helpers", New: func() Module { return NewUKSClause() }})
	h.Register(Registration{Name: "UKSPersist", Description: "load and save the knowledge store as JSON", New: func() Module { return NewUKSPersist() }})
	h.Register(Registration{Name: "UKSQuery", Description: "regex search across all relationships", New: func() Module { return NewUKSQuery() }})
	h.Register(Registration{Name: "UKSStatement", Description: "parse plain statements into the store", New: func() Module { return NewUKSStatement() }})
}
