package dataset

import (
	"testing"

	"github.com/linedp/linedp/linedp-go/defect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []defect.Tokenized {
	examples := make([]defect.Tokenized, 0, n)
	for i := 0; i < n; i++ {
		examples = append(examples, defect.Tokenized{File: defect.File{Name: string(rune('a' + i))}})
	}
	return examples
}

func names(batch []defect.Tokenized) []string {
	var out []string
	for _, ex := range batch {
		out = append(out, ex.File.Name)
	}
	return out
}

func TestTrainBatchesDropLast(t *testing.T) {
	b := NewBatcher(4, 1)
	batches := b.Train(numbered(10))

	require.Len(t, batches, 2, "trailing partial batch is dropped")
	for _, batch := range batches {
		assert.Len(t, batch, 4)
	}
}

func TestTrainBatchesShuffleDeterministic(t *testing.T) {
	flat := func(batches [][]defect.Tokenized) []string {
		var out []string
		for _, batch := range batches {
			out = append(out, names(batch)...)
		}
		return out
	}

	first := NewBatcher(5, 7).Train(numbered(20))
	second := NewBatcher(5, 7).Train(numbered(20))
	assert.Equal(t, flat(first), flat(second), "same seed produces the same order")

	b := NewBatcher(5, 7)
	epoch1 := b.Train(numbered(20))
	epoch2 := b.Train(numbered(20))
	assert.NotEqual(t, flat(epoch1), flat(epoch2), "successive epochs reshuffle")
	assert.ElementsMatch(t, flat(epoch1), flat(epoch2), "reshuffling permutes, never drops or duplicates")
}

func TestTrainBatchesDoNotMutateInput(t *testing.T) {
	examples := numbered(6)
	NewBatcher(2, 3).Train(examples)
	assert.Equal(t, "a", examples[0].File.Name)
	assert.Equal(t, "f", examples[5].File.Name)
}

func TestValidBatchesKeepPartial(t *testing.T) {
	b := NewBatcher(4, 1)
	batches := b.Valid(numbered(10))

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 4)
	assert.Len(t, batches[2], 2, "trailing partial batch is kept")
	assert.Equal(t, []string{"a", "b", "c", "d"}, names(batches[0]), "validation order is fixed")
}
