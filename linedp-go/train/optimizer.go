package train

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/defect"
)

// AdamOptions configures the optimizer. Zero-valued moments and epsilon fall
// back to the usual 0.9/0.999/1e-8.
type AdamOptions struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
}

func (o AdamOptions) withDefaults() AdamOptions {
	if o.Beta1 == 0 {
		o.Beta1 = 0.9
	}
	if o.Beta2 == 0 {
		o.Beta2 = 0.999
	}
	if o.Eps == 0 {
		o.Eps = 1e-8
	}
	return o
}

// Adam updates a fixed parameter set from its accumulated gradients, with
// bias-corrected moment estimates and L2 weight decay folded into the
// gradient.
type Adam struct {
	opts   AdamOptions
	params []*defect.Param
	step   int
	m, v   defect.State
}

// OptimizerState is the serializable snapshot of an Adam run.
type OptimizerState struct {
	Step int
	M, V defect.TensorState
}

// NewAdam builds an optimizer over params with zeroed moments.
func NewAdam(params []*defect.Param, opts AdamOptions) *Adam {
	a := &Adam{
		opts:   opts.withDefaults(),
		params: params,
		m:      make(defect.State, len(params)),
		v:      make(defect.State, len(params)),
	}
	for _, p := range params {
		r, c := p.Value.Dims()
		a.m[p.Name] = mat.NewDense(r, c, nil)
		a.v[p.Name] = mat.NewDense(r, c, nil)
	}
	return a
}

// Step applies one update from the accumulated gradients.
func (a *Adam) Step() {
	a.step++
	c1 := 1 / (1 - math.Pow(a.opts.Beta1, float64(a.step)))
	c2 := 1 / (1 - math.Pow(a.opts.Beta2, float64(a.step)))

	for _, p := range a.params {
		m, v := a.m[p.Name], a.v[p.Name]
		rows, cols := p.Value.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j)
				if a.opts.WeightDecay != 0 {
					g += a.opts.WeightDecay * p.Value.At(i, j)
				}
				mij := a.opts.Beta1*m.At(i, j) + (1-a.opts.Beta1)*g
				vij := a.opts.Beta2*v.At(i, j) + (1-a.opts.Beta2)*g*g
				m.Set(i, j, mij)
				v.Set(i, j, vij)
				p.Value.Set(i, j,
					p.Value.At(i, j)-a.opts.LR*mij*c1/(math.Sqrt(vij*c2)+a.opts.Eps))
			}
		}
	}
}

// ZeroGrad clears every parameter's accumulated gradient.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// State snapshots the optimizer for checkpointing.
func (a *Adam) State() OptimizerState {
	return OptimizerState{Step: a.step, M: a.m.Tensors(), V: a.v.Tensors()}
}

// SetState restores a snapshot taken with State. The snapshot must cover
// exactly this optimizer's parameters.
func (a *Adam) SetState(s OptimizerState) error {
	m, err := s.M.State()
	if err != nil {
		return err
	}
	v, err := s.V.State()
	if err != nil {
		return err
	}
	for _, p := range a.params {
		pr, pc := p.Value.Dims()
		for _, moments := range []defect.State{m, v} {
			got, ok := moments[p.Name]
			if !ok {
				return errors.Errorf("optimizer state is missing %s", p.Name)
			}
			gr, gc := got.Dims()
			if gr != pr || gc != pc {
				return errors.Errorf("optimizer state %s has shape %dx%d, want %dx%d",
					p.Name, gr, gc, pr, pc)
			}
		}
	}
	a.step = s.Step
	a.m = m
	a.v = v
	return nil
}

// ClipGradNorm rescales the gradients in place so their global L2 norm does
// not exceed maxNorm, returning the pre-clip norm.
func ClipGradNorm(params []*defect.Param, maxNorm float64) float64 {
	var total float64
	for _, p := range params {
		rows, cols := p.Grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j)
				total += g * g
			}
		}
	}
	total = math.Sqrt(total)

	if total > maxNorm {
		scale := maxNorm / (total + 1e-6)
		for _, p := range params {
			p.Grad.Scale(scale, p.Grad)
		}
	}
	return total
}
