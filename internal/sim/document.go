// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sim

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// NeuronRecord is the serializable form of a neuron.
type NeuronRecord struct {
	ID             string     `json:"id" yaml:"id" xml:"id"`
	Value          float64    `json:"value" yaml:"value" xml:"value"`
	Bias           float64    `json:"bias,omitempty" yaml:"bias,omitempty" xml:"bias,omitempty"`
	Activation     Activation `json:"activation" yaml:"activation" xml:"activation"`
	Layer          int        `json:"layer" yaml:"layer" xml:"layer"`
	Kind           Kind       `json:"kind" yaml:"kind" xml:"kind"`
	SpikeThreshold float64    `json:"spike_threshold" yaml:"spike_threshold" xml:"spikeThreshold"`
	Refractory     float64    `json:"refractory,omitempty" yaml:"refractory,omitempty" xml:"refractory,omitempty"`
	LastSpike      *float64   `json:"last_spike,omitempty" yaml:"last_spike,omitempty" xml:"lastSpike,omitempty"`
}

// SynapseRecord is the serializable form of a synapse.
type SynapseRecord struct {
	Pre          string  `json:"pre" yaml:"pre" xml:"pre"`
	Post         string  `json:"post" yaml:"post" xml:"post"`
	Weight       float64 `json:"weight" yaml:"weight" xml:"weight"`
	LearningRate float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty" xml:"learningRate,omitempty"`
	STDPRate     float64 `json:"stdp_rate,omitempty" yaml:"stdp_rate,omitempty" xml:"stdpRate,omitempty"`
	STDPTau      float64 `json:"stdp_tau,omitempty" yaml:"stdp_tau,omitempty" xml:"stdpTau,omitempty"`
}

// Document is the serializable form of an entire network.
type Document struct {
	Time     float64         `json:"time" yaml:"time" xml:"time"`
	Neurons  []NeuronRecord  `json:"neurons" yaml:"neurons" xml:"Neuron"`
	Synapses []SynapseRecord `json:"synapses" yaml:"synapses" xml:"Synapse"`
}

// ToDocument captures the network for persistence.
func (nw *Network) ToDocument() Document {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	doc := Document{Time: nw.time}
	for _, ids := range nw.layers {
		for _, id := range ids {
			n := nw.neurons[id]
			rec := NeuronRecord{
				ID:             n.ID,
				Value:          n.Value,
				Bias:           n.Bias,
				Activation:     n.Activation,
				Layer:          n.Layer,
				Kind:           n.Kind,
				SpikeThreshold: n.SpikeThreshold,
				Refractory:     n.Refractory,
			}
			if n.spiked {
				last := n.lastSpike
				rec.LastSpike = &last
			}
			doc.Neurons = append(doc.Neurons, rec)
		}
	}
	for _, s := range nw.synapses {
		doc.Synapses = append(doc.Synapses, SynapseRecord{
			Pre:          s.Pre,
			Post:         s.Post,
			Weight:       s.Weight,
			LearningRate: s.LearningRate,
			STDPRate:     s.STDPRate,
			STDPTau:      s.STDPTau,
		})
	}
	return doc
}

// FromDocument replaces the network contents with doc.
func (nw *Network) FromDocument(doc Document) error {
	nw.Clear()
	nw.mu.Lock()
	nw.time = doc.Time
	nw.mu.Unlock()

	for _, rec := range doc.Neurons {
		n, err := nw.AddNeuron(rec.ID, NeuronConfig{
			Bias:           rec.Bias,
			Activation:     rec.Activation,
			Layer:          rec.Layer,
			Kind:           rec.Kind,
			SpikeThreshold: rec.SpikeThreshold,
			Refractory:     rec.Refractory,
		})
		if err != nil {
			return err
		}
		n.Value = rec.Value
		if rec.LastSpike != nil {
			n.lastSpike = *rec.LastSpike
			n.spiked = true
		}
	}
	for _, rec := range doc.Synapses {
		syn, err := nw.Connect(rec.Pre, rec.Post, rec.Weight)
		if err != nil {
			return err
		}
		syn.LearningRate = rec.LearningRate
		syn.STDPRate = rec.STDPRate
		if rec.STDPTau != 0 {
			syn.STDPTau = rec.STDPTau
		}
	}
	return nil
}

// Save serializes the network to path as JSON.
func (nw *Network) Save(path string) error {
	data, err := json.MarshalIndent(nw.ToDocument(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling network")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// Load replaces the network from a JSON file written by Save.
func (nw *Network) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nw.FromDocument(doc)
}
