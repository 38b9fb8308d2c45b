package defect

import (
	"gonum.org/v1/gonum/mat"
)

// Output is the network's prediction for one file.
type Output struct {
	// Logit is the file-level defect logit.
	Logit float64
	// LineScores are the raw per-line attention scores, one per line.
	LineScores []float64
}

// OutputGrad carries the loss gradient with respect to one file's Output.
type OutputGrad struct {
	DLogit      float64
	DLineScores []float64
}

// Param is a named parameter matrix together with its accumulated gradient.
// Grad always has the same shape as Value.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// State is a snapshot of named parameter matrices. The matrices are copies,
// detached from whatever produced them.
type State map[string]*mat.Dense

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for name, m := range s {
		out[name] = mat.DenseCopyOf(m)
	}
	return out
}

// Network scores a batch of embedded files.
type Network interface {
	// Forward runs the network over a batch of files, each an L x D matrix
	// holding one embedding row per line. In train mode dropout is active.
	Forward(files []*mat.Dense, train bool) []Output
	// Backward propagates gradients for the outputs of the most recent
	// Forward call into the parameter gradients. One OutputGrad per file, in
	// the same order as the Forward batch.
	Backward(grads []OutputGrad)
	// Params returns the trainable parameters. Callers may mutate the values
	// in place; the network sees the updates on the next Forward.
	Params() []*Param
	// State snapshots the current parameter values.
	State() State
	// SetState restores parameter values from a snapshot.
	SetState(State) error
}

// Encoder embeds the lines of a tokenized file, producing one row per line.
// ids and mask have one row per line, padded to a common length.
type Encoder interface {
	EncodeFile(ids, mask [][]int32) (*mat.Dense, error)
}

// Tokenized pairs a labeled file with the token ids and attention mask for
// each of its lines, ready to hand to an Encoder.
type Tokenized struct {
	File File
	Ids  [][]int32
	Mask [][]int32
}
