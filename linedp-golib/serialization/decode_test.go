package serialization

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apple struct {
	Variety string
	Redness int
}

func gzipString(x string) []byte {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	w.Write([]byte(x))
	w.Close()
	return b.Bytes()
}

func TestJSON(t *testing.T) {
	var apples []*apple
	d := []byte(`{"Variety": "x", "Redness": 2}{"Variety": "y", "Redness": 3}`)
	err := decodeAs(bytes.NewBuffer(d), "foo.json", func(a *apple) {
		apples = append(apples, a)
	})
	require.NoError(t, err)
	assert.Len(t, apples, 2)
}

func TestGzippedJSON(t *testing.T) {
	var apples []*apple
	d := gzipString(`{"Variety": "x", "Redness": 2}{"Variety": "y", "Redness": 3}`)
	err := decodeAs(bytes.NewBuffer(d), "s3://linedp-data/bar.json.gz", func(a *apple) {
		apples = append(apples, a)
	})
	require.NoError(t, err)
	assert.Len(t, apples, 2)
}

func TestDecodeOneJSON(t *testing.T) {
	var apple apple
	d := []byte(`{"Variety": "x", "Redness": 2}`)
	err := decodeAs(bytes.NewBuffer(d), "foo.json", &apple)
	require.NoError(t, err)
	assert.EqualValues(t, "x", apple.Variety)
	assert.EqualValues(t, 2, apple.Redness)
}

func TestGzippedGob(t *testing.T) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	require.NoError(t, gob.NewEncoder(w).Encode(apple{Variety: "z", Redness: 5}))
	require.NoError(t, w.Close())

	var got apple
	err := decodeAs(&b, "foo.gob.gz", &got)
	require.NoError(t, err)
	assert.EqualValues(t, "z", got.Variety)
	assert.EqualValues(t, 5, got.Redness)
}
