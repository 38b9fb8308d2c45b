package train

import (
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/linedp/linedp/linedp-golib/fileutil"
)

// EpochMetrics is one row of a project's loss record.
type EpochMetrics struct {
	Epoch     int     `csv:"epoch"`
	TrainLoss float64 `csv:"train_loss"`
	ValidLoss float64 `csv:"valid_loss"`
	ValidAUC  float64 `csv:"valid_auc"`
}

// LossRecordPath returns where a project's loss record lives under dir.
func LossRecordPath(dir, project string) string {
	return fileutil.Join(dir, project+"-loss_record.csv")
}

// WriteLossRecord rewrites a project's full loss record. It runs after every
// epoch, so a crashed run still leaves the rows completed so far.
func WriteLossRecord(dir, project string, rows []EpochMetrics) error {
	path := LossRecordPath(dir, project)
	w, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return errors.Wrapf(err, "error opening loss record %s", path)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		w.Close()
		return errors.Wrapf(err, "error writing loss record %s", path)
	}
	return w.Close()
}

// ReadLossRecord loads a previously written loss record.
func ReadLossRecord(dir, project string) ([]EpochMetrics, error) {
	path := LossRecordPath(dir, project)
	r, err := fileutil.NewReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening loss record %s", path)
	}
	defer r.Close()

	var rows []EpochMetrics
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrapf(err, "error parsing loss record %s", path)
	}
	return rows, nil
}
