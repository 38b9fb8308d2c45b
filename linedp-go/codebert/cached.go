package codebert

import (
	"encoding/binary"

	spooky "github.com/dgryski/go-spooky"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/defect"
)

// DefaultCacheSize bounds the number of cached line vectors.
const DefaultCacheSize = 200000

// CachedEncoder memoizes line vectors by their id block. Lines repeat heavily
// across files and releases (imports, braces, common statements), so only
// cache misses reach the wrapped encoder.
type CachedEncoder struct {
	enc   defect.Encoder
	cache *lru.Cache
}

// NewCachedEncoder wraps enc with an LRU of the given size,
// DefaultCacheSize if size is zero.
func NewCachedEncoder(enc defect.Encoder, size int) (*CachedEncoder, error) {
	if size == 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedEncoder{enc: enc, cache: cache}, nil
}

// EncodeFile embeds one file's id blocks, reusing cached vectors and encoding
// only the lines the cache has not seen.
func (c *CachedEncoder) EncodeFile(ids, mask [][]int32) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, errors.Errorf("no lines to encode")
	}
	if len(ids) != len(mask) {
		return nil, errors.Errorf("ids and mask disagree, %d != %d", len(ids), len(mask))
	}

	rows := make([][]float64, len(ids))
	keys := make([]uint64, len(ids))

	var missIdx []int
	var missIds, missMask [][]int32
	for i := range ids {
		keys[i] = rowKey(ids[i])
		if v, ok := c.cache.Get(keys[i]); ok {
			rows[i] = v.([]float64)
			continue
		}
		missIdx = append(missIdx, i)
		missIds = append(missIds, ids[i])
		missMask = append(missMask, mask[i])
	}

	if len(missIdx) > 0 {
		embs, err := c.enc.EncodeFile(missIds, missMask)
		if err != nil {
			return nil, err
		}
		r, width := embs.Dims()
		if r != len(missIdx) {
			return nil, errors.Errorf("encoder returned %d vectors for %d lines", r, len(missIdx))
		}
		for j, i := range missIdx {
			row := make([]float64, width)
			mat.Row(row, j, embs)
			rows[i] = row
			c.cache.Add(keys[i], row)
		}
	}

	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		out.SetRow(i, row)
	}
	return out, nil
}

// Purge drops every cached vector.
func (c *CachedEncoder) Purge() {
	c.cache.Purge()
}

func rowKey(ids []int32) uint64 {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(id))
	}
	return spooky.Hash64(buf)
}
