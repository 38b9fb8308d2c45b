package train

import (
	"math"

	"github.com/pkg/errors"

	"github.com/linedp/linedp/linedp-go/defect"
)

// BatchResult is one batch's blended loss together with the gradients for
// the backward pass and the defect probabilities for AUC.
type BatchResult struct {
	Loss     float64
	FileLoss float64
	LineLoss float64
	KEff     float64
	Eligible int
	Grads    []defect.OutputGrad
	Probs    []float64
}

// ScoreBatch blends the file-level cross entropy with the line-level rank
// divergence for one batch. outs[i] is the network's output for files[i];
// k is the balance hyperparameter; applyWeights switches the class
// weighting on (training) or off (validation).
//
// The line loss averages over the eligible files only: label-1 files with at
// least one defective line. Eligible files too short for a top fifth still
// count toward the average, contributing zero. The blend k*(eligible/batch)
// shifts weight to the line loss as the eligible share grows.
func ScoreBatch(outs []defect.Output, files []defect.File, k float64, weights ClassWeights, applyWeights bool) BatchResult {
	n := len(outs)
	if n == 0 {
		return BatchResult{}
	}
	if n != len(files) {
		panic(errors.Errorf("got %d outputs for %d files", n, len(files)))
	}

	res := BatchResult{
		Grads: make([]defect.OutputGrad, n),
		Probs: make([]float64, n),
	}

	dlogits := make([]float64, n)
	for i, o := range outs {
		if len(o.LineScores) != len(files[i].Lines) {
			panic(errors.Errorf("%s: %d line scores for %d lines",
				files[i].Name, len(o.LineScores), len(files[i].Lines)))
		}
		w := 1.0
		if applyWeights {
			w = weights.ForLabel(files[i].Label)
		}
		l, dz := bceWithLogits(o.Logit, files[i].Label)
		res.FileLoss += w * l
		dlogits[i] = w * dz
		res.Probs[i] = sigmoid(o.Logit)
	}
	fn := float64(n)
	res.FileLoss /= fn

	lineGrads := make([][]float64, n)
	var lineSum float64
	for i, o := range outs {
		res.Grads[i].DLineScores = make([]float64, len(o.LineScores))
		if files[i].Label == 0 || !files[i].HasDefectiveLine() {
			continue
		}
		res.Eligible++
		normed, tr := minMaxNormalize(o.LineScores)
		div, dnormed := Divergence(normed, files[i].LineLabels())
		lineSum += div
		lineGrads[i] = tr.backward(normed, dnormed)
	}
	if res.Eligible > 0 {
		res.LineLoss = lineSum / float64(res.Eligible)
	}

	res.KEff = k * float64(res.Eligible) / fn
	res.Loss = (1-res.KEff)*res.FileLoss + res.KEff*res.LineLoss

	for i := range res.Grads {
		res.Grads[i].DLogit = (1 - res.KEff) * dlogits[i] / fn
		if lineGrads[i] == nil {
			continue
		}
		scale := res.KEff / float64(res.Eligible)
		for j, g := range lineGrads[i] {
			res.Grads[i].DLineScores[j] = scale * g
		}
	}
	return res
}

// minMaxTrace remembers what the normalization did, for the backward pass.
type minMaxTrace struct {
	lo, hi     int
	scale      float64
	degenerate bool
}

// minMaxNormalize rescales a file's scores to [0, 1], the first occurrence
// winning ties for the extremes. When every score is equal the lines all map
// to 0.5 and the backward pass is zero.
func minMaxNormalize(scores []float64) ([]float64, minMaxTrace) {
	normed := make([]float64, len(scores))
	if len(scores) == 0 {
		return normed, minMaxTrace{degenerate: true}
	}

	lo, hi := 0, 0
	for i, v := range scores {
		if v < scores[lo] {
			lo = i
		}
		if v > scores[hi] {
			hi = i
		}
	}
	if scores[lo] == scores[hi] {
		for i := range normed {
			normed[i] = 0.5
		}
		return normed, minMaxTrace{degenerate: true}
	}

	scale := 1 / (scores[hi] - scores[lo])
	for i, v := range scores {
		normed[i] = (v - scores[lo]) * scale
	}
	return normed, minMaxTrace{lo: lo, hi: hi, scale: scale}
}

// backward maps a gradient on the normalized scores back to the raw scores.
// The extremes collect the rescaling terms; a degenerate trace is zero
// everywhere.
func (tr minMaxTrace) backward(normed, dnormed []float64) []float64 {
	out := make([]float64, len(dnormed))
	if tr.degenerate {
		return out
	}

	var s0, s1 float64
	for i, d := range dnormed {
		s0 += d
		s1 += d * normed[i]
	}
	for i, d := range dnormed {
		out[i] = d * tr.scale
	}
	out[tr.lo] -= (s0 - s1) * tr.scale
	out[tr.hi] -= s1 * tr.scale
	return out
}

// bceWithLogits is the numerically stable binary cross entropy on a raw
// logit, with its derivative.
func bceWithLogits(logit, label float64) (loss, dlogit float64) {
	loss = math.Max(logit, 0) - logit*label + math.Log1p(math.Exp(-math.Abs(logit)))
	return loss, sigmoid(logit) - label
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
