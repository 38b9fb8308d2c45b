// Package train implements the hierarchical training loop: a class-weighted
// file loss blended with a rank-discounted line divergence, an epoch
// orchestrator around them, and the selection and persistence of the best
// model by validation AUC.
package train

// ClassWeights holds the file-loss weight per class. Defect files are the
// minority in every release, so their weight is the larger one.
type ClassWeights struct {
	Clean  float64
	Defect float64
}

// BalancedWeights computes inverse-frequency class weights from the training
// file labels: total/(2*count) per class. With only one class present both
// weights are 1.
func BalancedWeights(labels []float64) ClassWeights {
	var defect, clean float64
	for _, l := range labels {
		if l == 0 {
			clean++
		} else {
			defect++
		}
	}
	if clean == 0 || defect == 0 {
		return ClassWeights{Clean: 1, Defect: 1}
	}

	total := clean + defect
	w := ClassWeights{
		Clean:  total / (2 * clean),
		Defect: total / (2 * defect),
	}
	// Defect always takes the larger of the two weights.
	if w.Clean > w.Defect {
		w.Clean, w.Defect = w.Defect, w.Clean
	}
	return w
}

// ForLabel returns the weight of a 0/1 file label.
func (w ClassWeights) ForLabel(label float64) float64 {
	if label == 0 {
		return w.Clean
	}
	return w.Defect
}
