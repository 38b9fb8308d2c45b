package codebert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Short(t *testing.T) {
	framed, mask := frame([]int32{100, 200, 300}, 8)

	assert.Equal(t, []int32{0, 100, 200, 300, 2, 1, 1, 1}, framed)
	assert.Equal(t, []int32{1, 1, 1, 1, 1, 0, 0, 0}, mask)
}

func TestFrame_Empty(t *testing.T) {
	framed, mask := frame(nil, 5)

	assert.Equal(t, []int32{0, 2, 1, 1, 1}, framed)
	assert.Equal(t, []int32{1, 1, 0, 0, 0}, mask)
}

func TestFrame_Exact(t *testing.T) {
	framed, mask := frame([]int32{10, 20, 30}, 5)

	require.Len(t, framed, 5)
	assert.Equal(t, []int32{0, 10, 20, 30, 2}, framed)
	assert.Equal(t, []int32{1, 1, 1, 1, 1}, mask)
}

func TestFrame_Truncates(t *testing.T) {
	ids := make([]int32, 50)
	for i := range ids {
		ids[i] = int32(100 + i)
	}

	framed, mask := frame(ids, 10)

	require.Len(t, framed, 10)
	assert.Equal(t, []int32{0, 100, 101, 102, 103, 104, 105, 106, 107, 2}, framed)
	for _, m := range mask {
		assert.EqualValues(t, 1, m)
	}
}

func TestTokenizerOptions_Validate(t *testing.T) {
	err := TokenizerOptions{}.validate()
	require.Equal(t, errNoTokenizerPath, err)

	err = TokenizerOptions{Path: "tokenizer.json", BlockSize: 2}.validate()
	require.Error(t, err)

	err = TokenizerOptions{Path: "tokenizer.json"}.validate()
	require.NoError(t, err)
}
