package train

import (
	"github.com/pkg/errors"

	"github.com/linedp/linedp/linedp-go/defect"
	"github.com/linedp/linedp/linedp-golib/fileutil"
	"github.com/linedp/linedp/linedp-golib/serialization"
)

// checkpointName is the artifact written once at the end of a run.
const checkpointName = "best_model.gob.gz"

// Checkpoint is the persisted result of a training run: the best epoch's
// network parameters and the optimizer as it stood at the end of the run.
type Checkpoint struct {
	Epoch     int
	Model     defect.TensorState
	Optimizer OptimizerState
}

// CheckpointPath returns where a project's checkpoint lives under dir.
func CheckpointPath(dir, project string) string {
	return fileutil.Join(dir, project, checkpointName)
}

// SaveCheckpoint writes the checkpoint for a project, creating the project
// directory if needed.
func SaveCheckpoint(dir, project string, cp Checkpoint) error {
	path := CheckpointPath(dir, project)
	if err := serialization.Encode(path, cp); err != nil {
		return errors.Wrapf(err, "error writing checkpoint %s", path)
	}
	return nil
}

// LoadCheckpoint reads a previously saved checkpoint.
func LoadCheckpoint(dir, project string) (Checkpoint, error) {
	var cp Checkpoint
	if err := serialization.Decode(CheckpointPath(dir, project), &cp); err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}
