package codebert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// countingEncoder maps each id block to a small deterministic vector and
// counts how many lines actually reach it.
type countingEncoder struct {
	calls int
	lines int
}

func (e *countingEncoder) EncodeFile(ids, mask [][]int32) (*mat.Dense, error) {
	e.calls++
	e.lines += len(ids)
	out := mat.NewDense(len(ids), 4, nil)
	for i, row := range ids {
		var sum float64
		for _, id := range row {
			sum += float64(id)
		}
		out.Set(i, 0, sum)
		out.Set(i, 1, float64(row[0]))
		out.Set(i, 2, float64(len(row)))
		out.Set(i, 3, 1)
	}
	return out, nil
}

func TestCachedEncoder_ReusesRows(t *testing.T) {
	inner := &countingEncoder{}
	enc, err := NewCachedEncoder(inner, 16)
	require.NoError(t, err)

	r1 := []int32{0, 10, 2, 1}
	r2 := []int32{0, 20, 2, 1}
	r3 := []int32{0, 30, 2, 1}
	m := []int32{1, 1, 1, 0}

	first, err := enc.EncodeFile([][]int32{r1, r2}, [][]int32{m, m})
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 2, inner.lines)
	assert.Equal(t, 13.0, first.At(0, 0))
	assert.Equal(t, 23.0, first.At(1, 0))

	// r2 is cached, only r3 reaches the inner encoder.
	second, err := enc.EncodeFile([][]int32{r2, r3}, [][]int32{m, m})
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, 3, inner.lines)
	assert.Equal(t, 23.0, second.At(0, 0))
	assert.Equal(t, 33.0, second.At(1, 0))

	// Fully cached file, no inner call at all.
	third, err := enc.EncodeFile([][]int32{r3, r1}, [][]int32{m, m})
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	assert.Equal(t, 33.0, third.At(0, 0))
	assert.Equal(t, 13.0, third.At(1, 0))
}

func TestCachedEncoder_CachedRowsAreDetached(t *testing.T) {
	inner := &countingEncoder{}
	enc, err := NewCachedEncoder(inner, 16)
	require.NoError(t, err)

	row := []int32{0, 40, 2, 1}
	m := []int32{1, 1, 1, 0}

	first, err := enc.EncodeFile([][]int32{row}, [][]int32{m})
	require.NoError(t, err)
	first.Set(0, 0, -99)

	second, err := enc.EncodeFile([][]int32{row}, [][]int32{m})
	require.NoError(t, err)
	assert.Equal(t, 43.0, second.At(0, 0))
}

func TestCachedEncoder_Purge(t *testing.T) {
	inner := &countingEncoder{}
	enc, err := NewCachedEncoder(inner, 16)
	require.NoError(t, err)

	row := []int32{0, 50, 2, 1}
	m := []int32{1, 1, 1, 0}

	_, err = enc.EncodeFile([][]int32{row}, [][]int32{m})
	require.NoError(t, err)
	enc.Purge()

	_, err = enc.EncodeFile([][]int32{row}, [][]int32{m})
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestRowKey(t *testing.T) {
	a := rowKey([]int32{0, 10, 2, 1})
	b := rowKey([]int32{0, 10, 2, 1})
	c := rowKey([]int32{0, 11, 2, 1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
