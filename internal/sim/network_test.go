// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sim

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNeuronDuplicate(t *testing.T) {
	nw := NewNetwork()

	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)

	_, err = nw.AddNeuron("a", NeuronConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNeuronExists))
}

func TestConnectUnknownNeuron(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)

	_, err = nw.Connect("a", "missing", 1.0)
	assert.True(t, errors.Is(err, ErrNeuronNotFound))
}

func TestSynchronousPropagation(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("in", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.AddNeuron("out", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.Connect("in", "out", 0.5)
	require.NoError(t, err)

	require.NoError(t, nw.SetInput("in", 2.0))
	nw.Step(1.0)

	v, err := nw.Value("out")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
	assert.InDelta(t, 1.0, nw.Time(), 1e-9)
}

func TestLayeredStepCommitsLowerLayersFirst(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("in", NeuronConfig{Layer: 0})
	require.NoError(t, err)
	_, err = nw.AddNeuron("mid", NeuronConfig{Layer: 1})
	require.NoError(t, err)
	_, err = nw.AddNeuron("out", NeuronConfig{Layer: 2})
	require.NoError(t, err)
	_, err = nw.Connect("in", "mid", 1.0)
	require.NoError(t, err)
	_, err = nw.Connect("mid", "out", 1.0)
	require.NoError(t, err)

	require.NoError(t, nw.SetInput("in", 3.0))
	nw.Step(1.0)

	// One step is enough to reach the top layer because lower layers
	// commit their values before higher layers read them.
	v, err := nw.Value("out")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)
}

func TestActivations(t *testing.T) {
	assert.InDelta(t, -2.0, ActivationLinear.apply(-2.0), 1e-9)
	assert.InDelta(t, 0.0, ActivationRelu.apply(-2.0), 1e-9)
	assert.InDelta(t, 2.0, ActivationRelu.apply(2.0), 1e-9)
	assert.InDelta(t, 0.5, ActivationSigmoid.apply(0.0), 1e-9)
}

func TestInhibitorySignInversion(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("inhib", NeuronConfig{Kind: KindInhibitory})
	require.NoError(t, err)
	_, err = nw.AddNeuron("out", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.Connect("inhib", "out", 1.0)
	require.NoError(t, err)

	require.NoError(t, nw.SetInput("inhib", 2.0))
	nw.Step(1.0)

	v, err := nw.Value("out")
	require.NoError(t, err)
	assert.InDelta(t, -2.0, v, 1e-9)
}

func TestSpikingThresholdAndRefractory(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("in", NeuronConfig{})
	require.NoError(t, err)
	spiker, err := nw.AddNeuron("spike", NeuronConfig{Kind: KindSpiking, SpikeThreshold: 1.5, Refractory: 10})
	require.NoError(t, err)
	_, err = nw.Connect("in", "spike", 1.0)
	require.NoError(t, err)

	require.NoError(t, nw.SetInput("in", 2.0))
	nw.Step(1.0)

	v, err := nw.Value("spike")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
	last, ok := spiker.LastSpike()
	require.True(t, ok)
	assert.InDelta(t, 1.0, last, 1e-9)

	// Inside the refractory window the neuron stays silent even though
	// its input is still above threshold.
	nw.Step(1.0)
	v, err = nw.Value("spike")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestSpikingBelowThreshold(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("in", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.AddNeuron("spike", NeuronConfig{Kind: KindSpiking, SpikeThreshold: 5.0})
	require.NoError(t, err)
	_, err = nw.Connect("in", "spike", 1.0)
	require.NoError(t, err)

	require.NoError(t, nw.SetInput("in", 2.0))
	nw.Step(1.0)

	v, err := nw.Value("spike")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestHebbianLearning(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.AddNeuron("b", NeuronConfig{})
	require.NoError(t, err)
	syn, err := nw.Connect("a", "b", 1.0)
	require.NoError(t, err)
	syn.LearningRate = 0.1

	require.NoError(t, nw.SetInput("a", 2.0))
	nw.Step(1.0)

	// b becomes 2.0, then w += 0.1 * 2.0 * 2.0.
	assert.InDelta(t, 1.4, syn.Weight, 1e-9)
}

func TestSTDPStrengthensCausalOrder(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("pre", NeuronConfig{Layer: 0, SpikeThreshold: 0.5})
	require.NoError(t, err)
	// The bias keeps post firing after pre falls silent, so the post
	// spike lands one step after the pre spike.
	_, err = nw.AddNeuron("post", NeuronConfig{Layer: 1, SpikeThreshold: 0.5, Bias: 1.0})
	require.NoError(t, err)
	syn, err := nw.Connect("pre", "post", 1.0)
	require.NoError(t, err)
	syn.STDPRate = 0.2
	syn.STDPTau = 5.0

	require.NoError(t, nw.SetInput("pre", 1.0))
	nw.Step(1.0)

	// Both fired in the same step, so the spike gap is zero and the
	// weight is unchanged.
	assert.InDelta(t, 1.0, syn.Weight, 1e-9)

	require.NoError(t, nw.SetInput("pre", 0.0))
	nw.Step(1.0)

	assert.Greater(t, syn.Weight, 1.0)
}

func TestDisconnectAndRemoveNeuron(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.AddNeuron("b", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.AddNeuron("c", NeuronConfig{})
	require.NoError(t, err)
	_, err = nw.Connect("a", "b", 1.0)
	require.NoError(t, err)
	_, err = nw.Connect("b", "c", 1.0)
	require.NoError(t, err)

	nw.Disconnect("a", "b")
	assert.Len(t, nw.Synapses(), 1)

	nw.RemoveNeuron("b")
	assert.Equal(t, 2, nw.Len())
	assert.Empty(t, nw.Synapses())
	assert.Nil(t, nw.Neuron("b"))
}

func TestRunPauseResumeStop(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)

	nw.Run(200)
	require.True(t, nw.Running())
	require.Eventually(t, func() bool { return nw.Time() > 0 }, time.Second, 5*time.Millisecond)

	nw.Pause()
	paused := nw.Time()
	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, paused, nw.Time(), 1e-9)

	nw.Resume()
	require.Eventually(t, func() bool { return nw.Time() > paused }, time.Second, 5*time.Millisecond)

	nw.Stop()
	assert.False(t, nw.Running())
	stopped := nw.Time()
	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, stopped, nw.Time(), 1e-9)
}

func TestStepInvokesProfiler(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)

	var calls int
	var elapsed time.Duration
	nw.SetProfiler(func(d time.Duration) {
		calls++
		elapsed = d
	})

	nw.Step(1.0)
	nw.Step(1.0)

	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))

	// Removing the hook silences profiling.
	nw.SetProfiler(nil)
	nw.Step(1.0)
	assert.Equal(t, 2, calls)
}

func TestRunInvokesProfiler(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("a", NeuronConfig{})
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	nw.SetProfiler(func(time.Duration) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	nw.Run(200)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	}, time.Second, 5*time.Millisecond)
	nw.Stop()
}

func TestDocumentRoundTrip(t *testing.T) {
	nw := NewNetwork()
	_, err := nw.AddNeuron("in", NeuronConfig{Layer: 0, Bias: 0.5})
	require.NoError(t, err)
	_, err = nw.AddNeuron("out", NeuronConfig{Layer: 1, Activation: ActivationSigmoid, Kind: KindSpiking})
	require.NoError(t, err)
	syn, err := nw.Connect("in", "out", 0.7)
	require.NoError(t, err)
	syn.LearningRate = 0.01
	require.NoError(t, nw.SetInput("in", 1.0))
	nw.Step(1.0)

	path := filepath.Join(t.TempDir(), "network.json")
	require.NoError(t, nw.Save(path))

	loaded := NewNetwork()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, nw.Len(), loaded.Len())
	assert.InDelta(t, nw.Time(), loaded.Time(), 1e-9)

	out := loaded.Neuron("out")
	require.NotNil(t, out)
	assert.Equal(t, ActivationSigmoid, out.Activation)
	assert.Equal(t, KindSpiking, out.Kind)

	syns := loaded.Synapses()
	require.Len(t, syns, 1)
	assert.InDelta(t, syn.Weight, syns[0].Weight, 1e-9)
	assert.InDelta(t, 0.01, syns[0].LearningRate, 1e-9)
}
