package train

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrSingleClass means AUC is undefined because the validation labels were
// all positive or all negative. The run cannot be scored and must stop.
var ErrSingleClass = errors.New("auc needs both a positive and a negative example")

// AUC computes the area under the ROC curve from file probabilities and 0/1
// labels via the rank-sum statistic, with ties sharing their average rank.
func AUC(probs, labels []float64) (float64, error) {
	if len(probs) != len(labels) {
		return 0, errors.Errorf("got %d probabilities for %d labels", len(probs), len(labels))
	}

	var pos, neg float64
	for _, l := range labels {
		if l == 0 {
			neg++
		} else {
			pos++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrSingleClass
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, len(probs))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && probs[order[j]] == probs[order[i]] {
			j++
		}
		avg := float64(i+1+j) / 2
		for t := i; t < j; t++ {
			ranks[order[t]] = avg
		}
		i = j
	}

	var sumPos float64
	for i, l := range labels {
		if l != 0 {
			sumPos += ranks[i]
		}
	}
	return (sumPos - pos*(pos+1)/2) / (pos * neg), nil
}
