package train

import (
	"github.com/linedp/linedp/linedp-go/defect"
)

// TrainingState tracks the best validation epoch seen so far. The zero value
// is ready to use: any observed AUC replaces it.
type TrainingState struct {
	BestAUC   float64
	BestEpoch int
	BestState defect.State
}

// Observe records one epoch's validation AUC. The epoch becomes the best one
// when its AUC ties or beats the best so far, so later epochs win ties.
// state must already be detached from the live network.
func (s *TrainingState) Observe(epoch int, auc float64, state defect.State) bool {
	if auc < s.BestAUC {
		return false
	}
	s.BestAUC = auc
	s.BestEpoch = epoch
	s.BestState = state
	return true
}
