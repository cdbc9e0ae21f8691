// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sim implements the neural simulation engine: neurons connected
// by weighted synapses, advanced by a synchronous layer-ordered step. An
// optional background loop drives the step at a configurable tick rate.
package sim

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNeuronExists   = errors.New("neuron already exists")
	ErrNeuronNotFound = errors.New("neuron not found")
)

// Activation names a built-in activation function.
type Activation string

const (
	ActivationLinear  Activation = "linear"
	ActivationRelu    Activation = "relu"
	ActivationSigmoid Activation = "sigmoid"
)

func (a Activation) apply(x float64) float64 {
	switch a {
	case ActivationRelu:
		if x > 0 {
			return x
		}
		return 0
	case ActivationSigmoid:
		return 1.0 / (1.0 + math.Exp(-x))
	default:
		return x
	}
}

// Kind classifies a neuron's signaling behavior. Inhibitory neurons invert
// the sign of their outgoing signals; spiking neurons emit 1 or 0 against
// their threshold and honor a refractory period.
type Kind string

const (
	KindExcitatory Kind = "excitatory"
	KindInhibitory Kind = "inhibitory"
	KindSpiking    Kind = "spiking"
)

// Neuron is a node in the network. Fields may be adjusted directly while
// the network is not running.
type Neuron struct {
	ID             string
	Value          float64
	Bias           float64
	Activation     Activation
	Layer          int
	Kind           Kind
	SpikeThreshold float64
	Refractory     float64

	lastSpike float64
	spiked    bool
}

// LastSpike reports the simulation time of the most recent firing.
func (n *Neuron) LastSpike() (float64, bool) {
	return n.lastSpike, n.spiked
}

// NeuronConfig carries optional settings for AddNeuron. Zero values pick
// the defaults: linear activation, excitatory kind, threshold 1.0.
type NeuronConfig struct {
	Bias           float64
	Activation     Activation
	Layer          int
	Kind           Kind
	SpikeThreshold float64
	Refractory     float64
}

// Synapse is a weighted connection between two neurons. A non-zero
// LearningRate enables Hebbian updates after each step; a non-zero
// STDPRate enables spike-timing dependent plasticity within STDPTau
// simulated seconds.
type Synapse struct {
	Pre          string
	Post         string
	Weight       float64
	LearningRate float64
	STDPRate     float64
	STDPTau      float64
}

// Network holds neurons and synapses and advances them synchronously.
// Each step evaluates layers in ascending order, committing a layer's
// values before the next layer reads them; a single-layer network behaves
// as a classic synchronous update.
type Network struct {
	mu       sync.Mutex
	neurons  map[string]*Neuron
	incoming map[string][]*Synapse
	layers   map[int][]string
	synapses []*Synapse
	time     float64

	tickRate float64
	running  bool
	paused   bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	profiler func(time.Duration)
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{
		neurons:  make(map[string]*Neuron),
		incoming: make(map[string][]*Synapse),
		layers:   make(map[int][]string),
		tickRate: 1.0,
	}
}

// AddNeuron creates a neuron under id.
func (nw *Network) AddNeuron(id string, cfg NeuronConfig) (*Neuron, error) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	if _, ok := nw.neurons[id]; ok {
		return nil, errors.Wrap(ErrNeuronExists, id)
	}
	if cfg.Activation == "" {
		cfg.Activation = ActivationLinear
	}
	if cfg.Kind == "" {
		cfg.Kind = KindExcitatory
	}
	if cfg.SpikeThreshold == 0 {
		cfg.SpikeThreshold = 1.0
	}
	n := &Neuron{
		ID:             id,
		Bias:           cfg.Bias,
		Activation:     cfg.Activation,
		Layer:          cfg.Layer,
		Kind:           cfg.Kind,
		SpikeThreshold: cfg.SpikeThreshold,
		Refractory:     cfg.Refractory,
	}
	nw.neurons[id] = n
	nw.incoming[id] = nil
	nw.layers[cfg.Layer] = append(nw.layers[cfg.Layer], id)
	return n, nil
}

// Connect creates a synapse from pre to post. Learning parameters are set
// on the returned Synapse; STDPTau defaults to 1 simulated second.
func (nw *Network) Connect(pre, post string, weight float64) (*Synapse, error) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	if _, ok := nw.neurons[pre]; !ok {
		return nil, errors.Wrap(ErrNeuronNotFound, pre)
	}
	if _, ok := nw.neurons[post]; !ok {
		return nil, errors.Wrap(ErrNeuronNotFound, post)
	}
	syn := &Synapse{Pre: pre, Post: post, Weight: weight, STDPTau: 1.0}
	nw.incoming[post] = append(nw.incoming[post], syn)
	nw.synapses = append(nw.synapses, syn)
	return syn, nil
}

// Disconnect removes the synapse joining pre to post, if present.
func (nw *Network) Disconnect(pre, post string) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	keep := func(list []*Synapse) []*Synapse {
		out := list[:0]
		for _, s := range list {
			if !(s.Pre == pre && s.Post == post) {
				out = append(out, s)
			}
		}
		return out
	}
	nw.incoming[post] = keep(nw.incoming[post])
	nw.synapses = keep(nw.synapses)
}

// RemoveNeuron deletes id and every synapse touching it.
func (nw *Network) RemoveNeuron(id string) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	n, ok := nw.neurons[id]
	if !ok {
		return
	}
	delete(nw.neurons, id)
	delete(nw.incoming, id)
	for post, list := range nw.incoming {
		out := list[:0]
		for _, s := range list {
			if s.Pre != id {
				out = append(out, s)
			}
		}
		nw.incoming[post] = out
	}
	out := nw.synapses[:0]
	for _, s := range nw.synapses {
		if s.Pre != id && s.Post != id {
			out = append(out, s)
		}
	}
	nw.synapses = out
	ids := nw.layers[n.Layer]
	for i, nid := range ids {
		if nid == id {
			nw.layers[n.Layer] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// Clear removes all neurons and synapses and resets simulated time.
func (nw *Network) Clear() {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.neurons = make(map[string]*Neuron)
	nw.incoming = make(map[string][]*Synapse)
	nw.layers = make(map[int][]string)
	nw.synapses = nil
	nw.time = 0
}

// Len returns the number of neurons.
func (nw *Network) Len() int {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return len(nw.neurons)
}

// Time returns the simulated time accumulated by Step.
func (nw *Network) Time() float64 {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return nw.time
}

// Neuron returns the neuron under id, or nil.
func (nw *Network) Neuron(id string) *Neuron {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return nw.neurons[id]
}

// Synapses returns a snapshot of every synapse.
func (nw *Network) Synapses() []*Synapse {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	out := make([]*Synapse, len(nw.synapses))
	copy(out, nw.synapses)
	return out
}

// SetInput forces the output value of id.
func (nw *Network) SetInput(id string, value float64) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	n, ok := nw.neurons[id]
	if !ok {
		return errors.Wrap(ErrNeuronNotFound, id)
	}
	n.Value = value
	return nil
}

// Value returns the current output of id.
func (nw *Network) Value(id string) (float64, error) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	n, ok := nw.neurons[id]
	if !ok {
		return 0, errors.Wrap(ErrNeuronNotFound, id)
	}
	return n.Value, nil
}

// SetProfiler installs a hook invoked after every step with the
// wall-clock duration the step took. A nil hook disables profiling.
func (nw *Network) SetProfiler(fn func(time.Duration)) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.profiler = fn
}

// Step advances the simulation by one cycle of dt simulated seconds.
func (nw *Network) Step(dt float64) {
	start := time.Now()
	nw.mu.Lock()
	nw.stepLocked(dt)
	fn := nw.profiler
	nw.mu.Unlock()
	if fn != nil {
		fn(time.Since(start))
	}
}

func (nw *Network) stepLocked(dt float64) {
	nw.time += dt

	order := make([]int, 0, len(nw.layers))
	for layer := range nw.layers {
		order = append(order, layer)
	}
	sort.Ints(order)

	for _, layer := range order {
		next := make(map[string]float64, len(nw.layers[layer]))
		for _, id := range nw.layers[layer] {
			n := nw.neurons[id]
			syns := nw.incoming[id]
			if len(syns) == 0 {
				next[id] = n.Value
				continue
			}
			if n.Kind == KindSpiking && n.spiked && nw.time-n.lastSpike < n.Refractory {
				next[id] = 0
				continue
			}
			total := n.Bias
			for _, syn := range syns {
				pre := nw.neurons[syn.Pre]
				sign := 1.0
				if pre.Kind == KindInhibitory {
					sign = -1.0
				}
				total += pre.Value * syn.Weight * sign
			}
			value := n.Activation.apply(total)
			if n.Kind == KindSpiking {
				if value >= n.SpikeThreshold {
					next[id] = 1.0
				} else {
					next[id] = 0
				}
			} else {
				next[id] = value
			}
		}
		for id, value := range next {
			n := nw.neurons[id]
			n.Value = value
			if value >= n.SpikeThreshold {
				n.lastSpike = nw.time
				n.spiked = true
			}
		}
	}

	for _, syn := range nw.synapses {
		pre := nw.neurons[syn.Pre]
		post := nw.neurons[syn.Post]
		if syn.LearningRate != 0 {
			syn.Weight += syn.LearningRate * pre.Value * post.Value
		}
		if syn.STDPRate != 0 && pre.spiked && post.spiked {
			gap := post.lastSpike - pre.lastSpike
			if math.Abs(gap) <= syn.STDPTau {
				delta := syn.STDPRate * math.Exp(-math.Abs(gap)/syn.STDPTau)
				switch {
				case gap > 0:
					syn.Weight += delta
				case gap < 0:
					syn.Weight -= delta
				}
			}
		}
	}
}

// Run starts a background loop stepping the network tickRate times per
// simulated second; the inverse of tickRate is used as dt. A second Run
// while already running is a no-op.
func (nw *Network) Run(tickRate float64) {
	nw.mu.Lock()
	if nw.running {
		nw.mu.Unlock()
		return
	}
	if tickRate <= 0 {
		tickRate = 10
	}
	nw.tickRate = tickRate
	nw.running = true
	nw.paused = false
	nw.stopCh = make(chan struct{})
	nw.doneCh = make(chan struct{})
	stop, done := nw.stopCh, nw.doneCh
	nw.mu.Unlock()

	go nw.loop(stop, done)
}

func (nw *Network) loop(stop, done chan struct{}) {
	defer close(done)
	for {
		start := time.Now()
		nw.mu.Lock()
		dt := 1.0 / nw.tickRate
		stepped := !nw.paused
		if stepped {
			nw.stepLocked(dt)
		}
		fn := nw.profiler
		nw.mu.Unlock()
		if stepped && fn != nil {
			fn(time.Since(start))
		}

		select {
		case <-stop:
			return
		case <-time.After(time.Duration(dt * float64(time.Second))):
		}
	}
}

// Pause suspends the background loop without stopping it.
func (nw *Network) Pause() {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.paused = true
}

// Resume continues a paused background loop.
func (nw *Network) Resume() {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.paused = false
}

// Running reports whether the background loop is active.
func (nw *Network) Running() bool {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return nw.running
}

// Stop halts the background loop and waits for it to exit.
func (nw *Network) Stop() {
	nw.mu.Lock()
	if !nw.running {
		nw.mu.Unlock()
		return
	}
	nw.running = false
	stop, done := nw.stopCh, nw.doneCh
	nw.mu.Unlock()

	close(stop)
	<-done
}

// SetTickRate changes the cadence of a running loop.
func (nw *Network) SetTickRate(tickRate float64) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	if tickRate > 0 {
		nw.tickRate = tickRate
	}
}
