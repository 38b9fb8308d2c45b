package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/defect"
)

func scalarParam(name string, value, grad float64) *defect.Param {
	return &defect.Param{
		Name:  name,
		Value: mat.NewDense(1, 1, []float64{value}),
		Grad:  mat.NewDense(1, 1, []float64{grad}),
	}
}

func TestAdam_Step(t *testing.T) {
	// With a constant gradient the bias-corrected moments give mhat=g and
	// vhat=g*g, so every step moves the value by about lr.
	p := scalarParam("w", 1.0, 0.5)
	a := NewAdam([]*defect.Param{p}, AdamOptions{LR: 0.1})

	a.Step()
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-6)

	a.Step()
	assert.InDelta(t, 0.8, p.Value.At(0, 0), 1e-6)
}

func TestAdam_BiasCorrection(t *testing.T) {
	// A tiny first gradient still moves the value by about lr; uncorrected
	// moments would barely move it at all.
	p := scalarParam("w", 1.0, 1e-3)
	a := NewAdam([]*defect.Param{p}, AdamOptions{LR: 0.1})

	a.Step()
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-4)
}

func TestAdam_WeightDecay(t *testing.T) {
	// Zero gradient but nonzero decay still shrinks the value.
	p := scalarParam("w", 1.0, 0)
	a := NewAdam([]*defect.Param{p}, AdamOptions{LR: 0.1, WeightDecay: 0.1})

	a.Step()
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-6)

	// Without decay a zero gradient leaves the value alone.
	q := scalarParam("w", 1.0, 0)
	NewAdam([]*defect.Param{q}, AdamOptions{LR: 0.1}).Step()
	assert.Equal(t, 1.0, q.Value.At(0, 0))
}

func TestAdam_ZeroGrad(t *testing.T) {
	p := scalarParam("w", 1.0, 0.5)
	a := NewAdam([]*defect.Param{p}, AdamOptions{LR: 0.1})

	a.ZeroGrad()
	assert.Equal(t, 0.0, p.Grad.At(0, 0))
}

func TestAdam_StateRoundTrip(t *testing.T) {
	p := scalarParam("w", 1.0, 0.5)
	a := NewAdam([]*defect.Param{p}, AdamOptions{LR: 0.1})
	a.Step()

	snap := a.State()
	assert.Equal(t, 1, snap.Step)

	fresh := NewAdam([]*defect.Param{scalarParam("w", 1.0, 0)}, AdamOptions{LR: 0.1})
	require.NoError(t, fresh.SetState(snap))
	assert.Equal(t, snap, fresh.State())
}

func TestAdam_SetStateValidates(t *testing.T) {
	a := NewAdam([]*defect.Param{scalarParam("w", 1.0, 0)}, AdamOptions{LR: 0.1})

	other := NewAdam([]*defect.Param{scalarParam("b", 1.0, 0)}, AdamOptions{LR: 0.1})
	assert.Error(t, a.SetState(other.State()))

	wide := &defect.Param{
		Name:  "w",
		Value: mat.NewDense(1, 2, nil),
		Grad:  mat.NewDense(1, 2, nil),
	}
	assert.Error(t, a.SetState(NewAdam([]*defect.Param{wide}, AdamOptions{LR: 0.1}).State()))
}

func TestClipGradNorm(t *testing.T) {
	params := []*defect.Param{scalarParam("a", 0, 3), scalarParam("b", 0, 4)}

	// Below the cap the gradients stay put.
	norm := ClipGradNorm(params, 10)
	assert.Equal(t, 5.0, norm)
	assert.Equal(t, 3.0, params[0].Grad.At(0, 0))
	assert.Equal(t, 4.0, params[1].Grad.At(0, 0))

	// Above the cap they rescale to the cap, and the pre-clip norm comes
	// back.
	norm = ClipGradNorm(params, 1)
	assert.Equal(t, 5.0, norm)
	assert.InDelta(t, 0.6, params[0].Grad.At(0, 0), 1e-6)
	assert.InDelta(t, 0.8, params[1].Grad.At(0, 0), 1e-6)
}

func TestClipGradNorm_ZeroGradients(t *testing.T) {
	params := []*defect.Param{scalarParam("a", 0, 0)}
	assert.Equal(t, 0.0, ClipGradNorm(params, 1))
	assert.Equal(t, 0.0, params[0].Grad.At(0, 0))
}
