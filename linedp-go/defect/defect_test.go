package defect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFileHelpers(t *testing.T) {
	f := File{
		Name:  "src/Main.java",
		Label: 1,
		Lines: []Line{
			{Number: 1, Text: "public class main {", Label: 0},
			{Number: 2, Text: "int x = 0;", Label: 1},
			{Number: 3, Text: "}", Label: 0},
		},
	}

	assert.Equal(t, []float64{0, 1, 0}, f.LineLabels())
	assert.True(t, f.HasDefectiveLine())
	assert.Equal(t, []string{"public class main {", "int x = 0;", "}"}, f.LineTexts())

	clean := File{Label: 0, Lines: []Line{{Number: 1, Text: "}", Label: 0}}}
	assert.False(t, clean.HasDefectiveLine())
}

func TestStateClone(t *testing.T) {
	s := State{
		"w": mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
	}
	c := s.Clone()
	require.Contains(t, c, "w")

	c["w"].Set(0, 0, 100)
	assert.Equal(t, 1.0, s["w"].At(0, 0), "clone must not alias the original")
}

func TestTensorStateRoundTrip(t *testing.T) {
	s := State{
		"w": mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
		"b": mat.NewDense(1, 1, []float64{-0.5}),
	}

	restored, err := s.Tensors().State()
	require.NoError(t, err)
	assert.True(t, mat.Equal(s["w"], restored["w"]))
	assert.True(t, mat.Equal(s["b"], restored["b"]))
}

func TestTensorState_RejectsBadShape(t *testing.T) {
	ts := TensorState{"w": {Rows: 2, Cols: 2, Data: []float64{1, 2, 3}}}
	_, err := ts.State()
	require.Error(t, err)

	ts = TensorState{"w": {Rows: 0, Cols: 0, Data: nil}}
	_, err = ts.State()
	require.Error(t, err)
}
