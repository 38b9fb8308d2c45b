package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/defect"
)

func stateWith(v float64) defect.State {
	return defect.State{"w": mat.NewDense(1, 1, []float64{v})}
}

func TestTrainingState_TiesGoToLaterEpoch(t *testing.T) {
	var s TrainingState

	assert.True(t, s.Observe(1, 0.6, stateWith(1)))
	assert.Equal(t, 1, s.BestEpoch)

	// An exact tie replaces the earlier epoch.
	assert.True(t, s.Observe(2, 0.6, stateWith(2)))
	assert.Equal(t, 2, s.BestEpoch)
	assert.Equal(t, 0.6, s.BestAUC)

	assert.False(t, s.Observe(3, 0.55, stateWith(3)))
	assert.Equal(t, 2, s.BestEpoch)
	assert.Equal(t, 0.6, s.BestAUC)

	assert.True(t, s.Observe(4, 0.7, stateWith(4)))
	assert.Equal(t, 4, s.BestEpoch)
	assert.Equal(t, 0.7, s.BestAUC)
	assert.Equal(t, 4.0, s.BestState["w"].At(0, 0))
}

func TestTrainingState_KeepsObservedState(t *testing.T) {
	var s TrainingState
	snap := stateWith(7)
	s.Observe(1, 0.5, snap)

	assert.Equal(t, 7.0, s.BestState["w"].At(0, 0))

	s.Observe(2, 0.4, stateWith(8))
	assert.Equal(t, 7.0, s.BestState["w"].At(0, 0))
}
