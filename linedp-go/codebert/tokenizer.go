// Package codebert turns source lines into CodeBERT line embeddings: a BPE
// tokenizer frames each line into a fixed-size id block, and a frozen
// Tensorflow export of the pretrained model maps the blocks to pooled vectors.
package codebert

import (
	"log"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	tk "github.com/sugarme/tokenizer"

	"github.com/linedp/linedp/linedp-go/defect"
	"github.com/linedp/linedp/linedp-golib/fileutil"
	"github.com/linedp/linedp/linedp-golib/workerpool"
)

// RoBERTa vocabulary ids for the special tokens.
const (
	clsID int32 = 0
	padID int32 = 1
	sepID int32 = 2
)

// DefaultBlockSize is the per-line id block length, special tokens included.
const DefaultBlockSize = 100

var errNoTokenizerPath = errors.Errorf("tokenizer path required")

// TokenizerOptions configures line tokenization.
type TokenizerOptions struct {
	// Path points at the pretrained tokenizer.json, local or s3://.
	Path string
	// BlockSize is the framed length of each line, DefaultBlockSize if zero.
	BlockSize int
}

func (o TokenizerOptions) validate() error {
	if o.Path == "" {
		return errNoTokenizerPath
	}
	if o.BlockSize != 0 && o.BlockSize < 3 {
		return errors.Errorf("block size %d leaves no room for tokens", o.BlockSize)
	}
	return nil
}

// Tokenizer frames source lines into fixed-size RoBERTa id blocks.
type Tokenizer struct {
	tok       *tk.Tokenizer
	blockSize int
}

// NewTokenizer loads the pretrained tokenizer named by opts.
func NewTokenizer(opts TokenizerOptions) (*Tokenizer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}

	local, err := fileutil.DownloadedFile(opts.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching tokenizer %s", opts.Path)
	}

	tok, err := tk.FromFile(local)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading tokenizer %s", opts.Path)
	}

	return &Tokenizer{tok: tok, blockSize: opts.BlockSize}, nil
}

// BlockSize returns the framed length of each tokenized line.
func (t *Tokenizer) BlockSize() int {
	return t.blockSize
}

// TokenizeFile tokenizes every line of f. Row i of the result holds line i's
// framed ids and attention mask.
func (t *Tokenizer) TokenizeFile(f defect.File) (defect.Tokenized, error) {
	ids := make([][]int32, 0, len(f.Lines))
	mask := make([][]int32, 0, len(f.Lines))
	for _, line := range f.Lines {
		enc, err := t.tok.EncodeSingle(line.Text)
		if err != nil {
			return defect.Tokenized{}, errors.Wrapf(err, "error tokenizing %s:%d", f.Name, line.Number)
		}
		raw := make([]int32, 0, len(enc.Ids))
		for _, id := range enc.Ids {
			raw = append(raw, int32(id))
		}
		framed, m := frame(raw, t.blockSize)
		ids = append(ids, framed)
		mask = append(mask, m)
	}
	return defect.Tokenized{File: f, Ids: ids, Mask: mask}, nil
}

// TokenizeAll tokenizes files in parallel. Results keep input order.
func (t *Tokenizer) TokenizeAll(files []defect.File) ([]defect.Tokenized, error) {
	var completed int64
	out := make([]defect.Tokenized, len(files))

	var jobs []workerpool.Job
	for i, f := range files {
		i, f := i, f
		jobs = append(jobs, workerpool.Job(func() error {
			defer func() {
				v := atomic.AddInt64(&completed, 1)
				if v%100 == 0 {
					log.Printf("tokenized %d/%d files", v, len(files))
				}
			}()

			tokenized, err := t.TokenizeFile(f)
			if err != nil {
				return err
			}
			out[i] = tokenized
			return nil
		}))
	}

	pool := workerpool.New(runtime.NumCPU() / 2)
	pool.AddBlocking(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// frame truncates ids to blockSize-2, wraps them in the classifier and
// separator tokens, and pads to exactly blockSize. The mask marks every
// non-padding position, special tokens included.
func frame(ids []int32, blockSize int) (framed, mask []int32) {
	if len(ids) > blockSize-2 {
		ids = ids[:blockSize-2]
	}

	framed = make([]int32, 0, blockSize)
	framed = append(framed, clsID)
	framed = append(framed, ids...)
	framed = append(framed, sepID)

	mask = make([]int32, blockSize)
	for i := range framed {
		mask[i] = 1
	}

	for len(framed) < blockSize {
		framed = append(framed, padID)
	}
	return framed, mask
}
