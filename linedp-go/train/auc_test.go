package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAUC(t *testing.T) {
	auc, err := AUC([]float64{0.1, 0.4, 0.35, 0.8}, []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-12)
}

func TestAUC_PerfectAndReversed(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.8, 0.9}

	auc, err := AUC(probs, []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, auc)

	auc, err = AUC(probs, []float64{1, 1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, auc)
}

func TestAUC_TiesShareAverageRank(t *testing.T) {
	// A constant classifier scores exactly chance.
	auc, err := AUC([]float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, auc)

	// Partial tie across the class boundary.
	auc, err = AUC([]float64{0.2, 0.6, 0.6, 0.9}, []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.875, auc, 1e-12)
}

func TestAUC_SingleClass(t *testing.T) {
	_, err := AUC([]float64{0.1, 0.9}, []float64{1, 1})
	assert.Equal(t, ErrSingleClass, err)

	_, err = AUC([]float64{0.1, 0.9}, []float64{0, 0})
	assert.Equal(t, ErrSingleClass, err)
}

func TestAUC_LengthMismatch(t *testing.T) {
	_, err := AUC([]float64{0.1}, []float64{0, 1})
	assert.Error(t, err)
}
