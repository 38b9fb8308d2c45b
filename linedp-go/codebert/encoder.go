package codebert

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pkg/errors"

	"github.com/linedp/linedp/linedp-golib/tensorflow"
)

// Graph op names of the frozen CodeBERT export.
const (
	defaultInputOp  = "input_ids"
	defaultMaskOp   = "attention_mask"
	defaultOutputOp = "pooler_output"
)

// EmbeddingDim is the width of a pooled CodeBERT line vector.
const EmbeddingDim = 768

var errNoModelPath = errors.Errorf("model path required")

// EncoderOptions configures the frozen-model encoder.
type EncoderOptions struct {
	// ModelPath points at the frozen GraphDef, local or s3://.
	ModelPath string
	// InputOp, MaskOp and OutputOp override the graph op names, usually left
	// empty to use the conventional names of the export.
	InputOp  string
	MaskOp   string
	OutputOp string
}

func (o EncoderOptions) validate() error {
	if o.ModelPath == "" {
		return errNoModelPath
	}
	return nil
}

// TFEncoder embeds tokenized lines with a frozen Tensorflow CodeBERT model.
// Each id block maps to the model's pooled output vector.
type TFEncoder struct {
	model    *tensorflow.Model
	inputOp  string
	maskOp   string
	outputOp string
}

// NewTFEncoder loads the frozen model named by opts. The graph itself loads
// lazily on first use.
func NewTFEncoder(opts EncoderOptions) (*TFEncoder, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.InputOp == "" {
		opts.InputOp = defaultInputOp
	}
	if opts.MaskOp == "" {
		opts.MaskOp = defaultMaskOp
	}
	if opts.OutputOp == "" {
		opts.OutputOp = defaultOutputOp
	}

	model, err := tensorflow.NewModel(opts.ModelPath)
	if err != nil {
		return nil, err
	}

	return &TFEncoder{
		model:    model,
		inputOp:  opts.InputOp,
		maskOp:   opts.MaskOp,
		outputOp: opts.OutputOp,
	}, nil
}

// EncodeFile embeds one file's id blocks. Row i of the result is the pooled
// vector for line i.
func (e *TFEncoder) EncodeFile(ids, mask [][]int32) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, errors.Errorf("no lines to encode")
	}
	if len(ids) != len(mask) {
		return nil, errors.Errorf("ids and mask disagree, %d != %d", len(ids), len(mask))
	}

	feed := make(map[string]interface{})
	feed[e.inputOp] = ids
	feed[e.maskOp] = mask

	res, err := e.model.Run(feed, []string{e.outputOp})
	if err != nil {
		return nil, err
	}

	pooled, ok := res[e.outputOp].([][]float32)
	if !ok {
		return nil, errors.Errorf("unexpected output type %T", res[e.outputOp])
	}
	if len(pooled) != len(ids) {
		return nil, errors.Errorf("model returned %d vectors for %d lines", len(pooled), len(ids))
	}

	out := mat.NewDense(len(pooled), EmbeddingDim, nil)
	for i, vec := range pooled {
		if len(vec) != EmbeddingDim {
			return nil, errors.Errorf("vector %d has width %d, want %d", i, len(vec), EmbeddingDim)
		}
		for j, v := range vec {
			out.Set(i, j, float64(v))
		}
	}
	return out, nil
}

// Unload releases the underlying Tensorflow session.
func (e *TFEncoder) Unload() {
	e.model.Unload()
}
