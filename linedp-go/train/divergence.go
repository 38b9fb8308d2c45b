package train

import (
	"math"
	"sort"
)

// topFraction of a file's lines, by score, enter the divergence.
const topFraction = 0.2

// divergenceEpsilon stabilizes the midpoint distribution.
const divergenceEpsilon = 1e-8

// TopK returns how many of a file's lines the divergence scores.
func TopK(lines int) int {
	return int(topFraction * float64(lines))
}

// Divergence scores how well a file's highest-ranked lines line up with its
// defective ones. scores are the normalized line scores, labels the 0/1 line
// labels. Only the top fifth of lines by score enter the comparison; the
// returned gradient, with respect to scores, is zero everywhere else. Files
// too short for a top fifth score zero.
func Divergence(scores, labels []float64) (float64, []float64) {
	dscores := make([]float64, len(scores))
	k := TopK(len(labels))
	if k == 0 {
		return 0, dscores
	}

	order := argsortDesc(scores)[:k]
	pred := make([]float64, k)
	gt := make([]float64, k)
	for j, idx := range order {
		pred[j] = scores[idx]
		gt[j] = labels[idx]
	}

	div, dpred := jsdRanked(pred, gt)
	for j, idx := range order {
		dscores[idx] = dpred[j]
	}
	return div, dscores
}

// jsdRanked computes the rank-discounted Jensen-Shannon divergence between
// the softmax of pred and the softmax of gt, with each position discounted
// by gt's rank. The returned gradient is with respect to pred; gt is a
// constant.
func jsdRanked(pred, gt []float64) (float64, []float64) {
	n := len(pred)
	dpred := make([]float64, n)
	if n == 0 {
		return 0, dpred
	}

	p := softmax(pred)
	q := softmax(gt)
	d := rankDiscounts(gt)

	var div float64
	dp := make([]float64, n)
	for i := 0; i < n; i++ {
		m := 0.5 * (p[i] + q[i] + divergenceEpsilon)
		div += 0.5 * d[i] * (p[i]*math.Log2(p[i]/m) + q[i]*math.Log2(q[i]/m))
		dp[i] = 0.5 * d[i] * (math.Log2(p[i]/m) + (1-(p[i]+q[i])/(2*m))/math.Ln2)
	}

	var inner float64
	for i := range p {
		inner += p[i] * dp[i]
	}
	for i := range p {
		dpred[i] = p[i] * (dp[i] - inner)
	}
	return div, dpred
}

// rankDiscounts maps position i to 1/log2(rank_i + 1), where rank_i is the
// 1-based rank of gt[i] under a descending sort. Ties rank in input order.
func rankDiscounts(gt []float64) []float64 {
	d := make([]float64, len(gt))
	for rank, idx := range argsortDesc(gt) {
		d[idx] = 1 / math.Log2(float64(rank)+2)
	}
	return d
}

// argsortDesc returns the indices of x sorted by value descending, ties
// keeping their input order.
func argsortDesc(x []float64) []int {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] > x[idx[b]] })
	return idx
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
