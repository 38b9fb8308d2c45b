// Package model implements the attention network that scores files and lines:
// a bidirectional recurrent encoder over CodeBERT line embeddings, additive
// attention across lines, and a single file-level logit. The attention scores
// double as the per-line defect signal.
package model

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/defect"
)

// Default dimensions, matching the pretrained line-embedding width.
const (
	DefaultEmbedDim  = 768
	DefaultHiddenDim = 64
	DefaultAttnDim   = 256
	DefaultDropout   = 0.2
)

// Options configures the network dimensions.
type Options struct {
	// EmbedDim is the width of the input line embeddings.
	EmbedDim int
	// HiddenDim is the recurrent state size per direction.
	HiddenDim int
	// AttnDim is the width of the additive-attention projection.
	AttnDim int
	// Dropout is the input dropout rate, applied only during training.
	Dropout float64
	// Seed drives parameter init and the dropout masks.
	Seed int64
}

func (o Options) validate() error {
	if o.EmbedDim <= 0 || o.HiddenDim <= 0 || o.AttnDim <= 0 {
		return errors.Errorf("dimensions must be positive, got %d/%d/%d",
			o.EmbedDim, o.HiddenDim, o.AttnDim)
	}
	if o.Dropout < 0 || o.Dropout >= 1 {
		return errors.Errorf("dropout %f outside [0, 1)", o.Dropout)
	}
	return nil
}

// Network is a bidirectional tanh RNN over line embeddings with additive
// attention. Forward stashes the activations it needs for Backward, so the
// two must be called in pairs during training.
type Network struct {
	opts Options
	rng  *rand.Rand

	wf, uf, bf *defect.Param // forward recurrence
	wb, ub, bb *defect.Param // backward recurrence
	wa, ba, av *defect.Param // additive attention
	wo, bo     *defect.Param // file logit

	params []*defect.Param
	caches []fileCache
}

// fileCache holds one file's forward activations for the backward pass.
type fileCache struct {
	x     *mat.Dense // input after dropout, L×D
	h     *mat.Dense // forward hidden states, L×H
	g     *mat.Dense // backward hidden states, L×H
	s     *mat.Dense // concatenated states, L×2H
	a     *mat.Dense // tanh attention activations, L×A
	alpha []float64  // softmax attention weights
	ctx   []float64  // attention-weighted state, 2H
}

// NewNetwork builds a network with Xavier-initialized weights drawn from the
// seeded RNG. Biases start at zero.
func NewNetwork(opts Options) (*Network, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	n := &Network{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}

	d, h, a := opts.EmbedDim, opts.HiddenDim, opts.AttnDim
	n.wf = n.xavier("rnn_fwd_w", h, d)
	n.uf = n.xavier("rnn_fwd_u", h, h)
	n.bf = n.zeros("rnn_fwd_b", h, 1)
	n.wb = n.xavier("rnn_bwd_w", h, d)
	n.ub = n.xavier("rnn_bwd_u", h, h)
	n.bb = n.zeros("rnn_bwd_b", h, 1)
	n.wa = n.xavier("attn_w", a, 2*h)
	n.ba = n.zeros("attn_b", a, 1)
	n.av = n.xavier("attn_v", a, 1)
	n.wo = n.xavier("out_w", 2*h, 1)
	n.bo = n.zeros("out_b", 1, 1)

	n.params = []*defect.Param{
		n.wf, n.uf, n.bf,
		n.wb, n.ub, n.bb,
		n.wa, n.ba, n.av,
		n.wo, n.bo,
	}
	return n, nil
}

func (n *Network) xavier(name string, rows, cols int) *defect.Param {
	limit := math.Sqrt(6 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (n.rng.Float64()*2 - 1) * limit
	}
	return &defect.Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, data),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func (n *Network) zeros(name string, rows, cols int) *defect.Param {
	return &defect.Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// Params returns the learnable parameters in a stable order.
func (n *Network) Params() []*defect.Param {
	return n.params
}

// Forward scores a batch of files. files[i] is the L_i×D embedding matrix of
// file i; the result has one Output per file, with one raw line score per
// line. With train set, input dropout is applied and activations are kept
// for Backward.
func (n *Network) Forward(files []*mat.Dense, train bool) []defect.Output {
	n.caches = n.caches[:0]

	out := make([]defect.Output, 0, len(files))
	for _, f := range files {
		o, cache := n.forwardFile(f, train)
		out = append(out, o)
		n.caches = append(n.caches, cache)
	}
	return out
}

func (n *Network) forwardFile(f *mat.Dense, train bool) (defect.Output, fileCache) {
	l, d := f.Dims()
	if d != n.opts.EmbedDim {
		panic(errors.Errorf("embedding width %d, want %d", d, n.opts.EmbedDim))
	}
	h, a := n.opts.HiddenDim, n.opts.AttnDim

	x := mat.DenseCopyOf(f)
	if train && n.opts.Dropout > 0 {
		keep := 1 - n.opts.Dropout
		for i := 0; i < l; i++ {
			row := x.RawRowView(i)
			for j := range row {
				if n.rng.Float64() < n.opts.Dropout {
					row[j] = 0
				} else {
					row[j] /= keep
				}
			}
		}
	}

	// Input projections for both directions in one multiply each.
	pf := mat.NewDense(l, h, nil)
	pb := mat.NewDense(l, h, nil)
	pf.Mul(x, n.wf.Value.T())
	pb.Mul(x, n.wb.Value.T())

	hs := mat.NewDense(l, h, nil)
	for t := 0; t < l; t++ {
		var prev []float64
		if t > 0 {
			prev = hs.RawRowView(t - 1)
		}
		step(hs.RawRowView(t), pf.RawRowView(t), n.uf.Value, prev, n.bf.Value)
	}

	gs := mat.NewDense(l, h, nil)
	for t := l - 1; t >= 0; t-- {
		var next []float64
		if t < l-1 {
			next = gs.RawRowView(t + 1)
		}
		step(gs.RawRowView(t), pb.RawRowView(t), n.ub.Value, next, n.bb.Value)
	}

	s := mat.NewDense(l, 2*h, nil)
	for t := 0; t < l; t++ {
		row := s.RawRowView(t)
		copy(row[:h], hs.RawRowView(t))
		copy(row[h:], gs.RawRowView(t))
	}

	at := mat.NewDense(l, a, nil)
	at.Mul(s, n.wa.Value.T())
	scores := make([]float64, l)
	for t := 0; t < l; t++ {
		row := at.RawRowView(t)
		for i := range row {
			row[i] = math.Tanh(row[i] + n.ba.Value.At(i, 0))
			scores[t] += n.av.Value.At(i, 0) * row[i]
		}
	}

	alpha := softmax(scores)
	ctx := make([]float64, 2*h)
	for t := 0; t < l; t++ {
		row := s.RawRowView(t)
		for j := range ctx {
			ctx[j] += alpha[t] * row[j]
		}
	}

	logit := n.bo.Value.At(0, 0)
	for j := range ctx {
		logit += n.wo.Value.At(j, 0) * ctx[j]
	}

	cache := fileCache{x: x, h: hs, g: gs, s: s, a: at, alpha: alpha, ctx: ctx}
	return defect.Output{Logit: logit, LineScores: scores}, cache
}

// Backward propagates the loss gradients of the most recent Forward batch,
// accumulating into each parameter's Grad. grads[i] corresponds to files[i]
// of that Forward call.
func (n *Network) Backward(grads []defect.OutputGrad) {
	if len(grads) != len(n.caches) {
		panic(errors.Errorf("got %d gradients for %d forward files", len(grads), len(n.caches)))
	}
	for i, g := range grads {
		n.backwardFile(g, &n.caches[i])
	}
}

func (n *Network) backwardFile(grad defect.OutputGrad, c *fileCache) {
	l, _ := c.s.Dims()
	h, a := n.opts.HiddenDim, n.opts.AttnDim
	if len(grad.DLineScores) != l {
		panic(errors.Errorf("got %d line gradients for %d lines", len(grad.DLineScores), l))
	}

	dz := grad.DLogit

	// Logit layer.
	n.bo.Grad.Set(0, 0, n.bo.Grad.At(0, 0)+dz)
	dctx := make([]float64, 2*h)
	for j := range dctx {
		n.wo.Grad.Set(j, 0, n.wo.Grad.At(j, 0)+dz*c.ctx[j])
		dctx[j] = dz * n.wo.Value.At(j, 0)
	}

	// Attention-weighted sum.
	dalpha := make([]float64, l)
	ds := mat.NewDense(l, 2*h, nil)
	for t := 0; t < l; t++ {
		srow := c.s.RawRowView(t)
		drow := ds.RawRowView(t)
		for j := range dctx {
			dalpha[t] += dctx[j] * srow[j]
			drow[j] = c.alpha[t] * dctx[j]
		}
	}

	// Softmax, then add the external gradient on the raw scores.
	var inner float64
	for t := 0; t < l; t++ {
		inner += c.alpha[t] * dalpha[t]
	}
	de := make([]float64, l)
	for t := 0; t < l; t++ {
		de[t] = grad.DLineScores[t] + c.alpha[t]*(dalpha[t]-inner)
	}

	// Additive attention.
	du := mat.NewDense(l, a, nil)
	for t := 0; t < l; t++ {
		arow := c.a.RawRowView(t)
		urow := du.RawRowView(t)
		for i := 0; i < a; i++ {
			n.av.Grad.Set(i, 0, n.av.Grad.At(i, 0)+de[t]*arow[i])
			urow[i] = de[t] * n.av.Value.At(i, 0) * (1 - arow[i]*arow[i])
			n.ba.Grad.Set(i, 0, n.ba.Grad.At(i, 0)+urow[i])
		}
	}
	dwa := mat.NewDense(a, 2*h, nil)
	dwa.Mul(du.T(), c.s)
	n.wa.Grad.Add(n.wa.Grad, dwa)

	dsAttn := mat.NewDense(l, 2*h, nil)
	dsAttn.Mul(du, n.wa.Value)
	ds.Add(ds, dsAttn)

	// Backprop through time, forward direction.
	carry := make([]float64, h)
	dp := make([]float64, h)
	for t := l - 1; t >= 0; t-- {
		hrow := c.h.RawRowView(t)
		srow := ds.RawRowView(t)
		for i := 0; i < h; i++ {
			dp[i] = (srow[i] + carry[i]) * (1 - hrow[i]*hrow[i])
			n.bf.Grad.Set(i, 0, n.bf.Grad.At(i, 0)+dp[i])
		}
		addOuter(n.wf.Grad, dp, c.x.RawRowView(t))
		if t > 0 {
			addOuter(n.uf.Grad, dp, c.h.RawRowView(t-1))
		}
		mulVecT(carry, n.uf.Value, dp)
	}

	// Backprop through time, backward direction.
	for i := range carry {
		carry[i] = 0
	}
	for t := 0; t < l; t++ {
		grow := c.g.RawRowView(t)
		srow := ds.RawRowView(t)
		for i := 0; i < h; i++ {
			dp[i] = (srow[h+i] + carry[i]) * (1 - grow[i]*grow[i])
			n.bb.Grad.Set(i, 0, n.bb.Grad.At(i, 0)+dp[i])
		}
		addOuter(n.wb.Grad, dp, c.x.RawRowView(t))
		if t < l-1 {
			addOuter(n.ub.Grad, dp, c.g.RawRowView(t+1))
		}
		mulVecT(carry, n.ub.Value, dp)
	}
}

// State returns a deep copy of the parameter values.
func (n *Network) State() defect.State {
	out := make(defect.State, len(n.params))
	for _, p := range n.params {
		out[p.Name] = mat.DenseCopyOf(p.Value)
	}
	return out
}

// SetState restores parameter values from a snapshot taken with State.
func (n *Network) SetState(s defect.State) error {
	for _, p := range n.params {
		v, ok := s[p.Name]
		if !ok {
			return errors.Errorf("state is missing %s", p.Name)
		}
		pr, pc := p.Value.Dims()
		vr, vc := v.Dims()
		if pr != vr || pc != vc {
			return errors.Errorf("state %s has shape %dx%d, want %dx%d", p.Name, vr, vc, pr, pc)
		}
	}
	for _, p := range n.params {
		p.Value.Copy(s[p.Name])
	}
	return nil
}

// step writes dst = tanh(proj + U prev + b). prev may be nil at the sequence
// boundary.
func step(dst, proj []float64, u *mat.Dense, prev []float64, b *mat.Dense) {
	for i := range dst {
		sum := proj[i] + b.At(i, 0)
		if prev != nil {
			for j := range prev {
				sum += u.At(i, j) * prev[j]
			}
		}
		dst[i] = math.Tanh(sum)
	}
}

// addOuter accumulates dst += a bᵀ.
func addOuter(dst *mat.Dense, a, b []float64) {
	for i := range a {
		if a[i] == 0 {
			continue
		}
		row := dst.RawRowView(i)
		for j := range b {
			row[j] += a[i] * b[j]
		}
	}
}

// mulVecT writes dst = Mᵀ x.
func mulVecT(dst []float64, m *mat.Dense, x []float64) {
	for j := range dst {
		var sum float64
		for i := range x {
			sum += m.At(i, j) * x[i]
		}
		dst[j] = sum
	}
}

func softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
