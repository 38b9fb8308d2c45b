package defect

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a flat, serialization-friendly matrix. Data is row-major.
type Tensor struct {
	Rows, Cols int
	Data       []float64
}

// TensorState is the serializable form of a State.
type TensorState map[string]Tensor

// Tensors flattens the state for serialization.
func (s State) Tensors() TensorState {
	out := make(TensorState, len(s))
	for name, m := range s {
		r, c := m.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, m.RawRowView(i)...)
		}
		out[name] = Tensor{Rows: r, Cols: c, Data: data}
	}
	return out
}

// State rebuilds the matrix form of a flattened snapshot.
func (ts TensorState) State() (State, error) {
	out := make(State, len(ts))
	for name, t := range ts {
		if t.Rows <= 0 || t.Cols <= 0 || len(t.Data) != t.Rows*t.Cols {
			return nil, errors.Errorf("tensor %s has %d values for shape %dx%d",
				name, len(t.Data), t.Rows, t.Cols)
		}
		out[name] = mat.NewDense(t.Rows, t.Cols, append([]float64(nil), t.Data...))
	}
	return out, nil
}
