package train

import (
	"log"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"gonum.org/v1/gonum/mat"

	"github.com/linedp/linedp/linedp-go/dataset"
	"github.com/linedp/linedp/linedp-go/defect"
)

// Options configures one training run.
type Options struct {
	// Project names the run; the loss record and checkpoint are keyed by it.
	Project string
	// K is the balance hyperparameter blending the file and line losses.
	K float64
	// Epochs and BatchSize shape the loop. Training drops the final partial
	// batch, so BatchSize must not exceed the number of training files.
	Epochs    int
	BatchSize int
	// LR, WeightDecay and MaxGradNorm feed the optimizer.
	LR          float64
	WeightDecay float64
	MaxGradNorm float64
	// Seed drives the per-epoch batch shuffle.
	Seed int64
	// SaveDir receives the checkpoint, LossDir the loss record.
	SaveDir string
	LossDir string
}

func (o Options) validate() error {
	if o.Project == "" {
		return errors.Errorf("project required")
	}
	if o.K < 0 || o.K > 1 {
		return errors.Errorf("balance k %f outside [0, 1]", o.K)
	}
	if o.Epochs <= 0 {
		return errors.Errorf("epochs must be positive, got %d", o.Epochs)
	}
	if o.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", o.BatchSize)
	}
	if o.LR <= 0 {
		return errors.Errorf("learning rate must be positive, got %f", o.LR)
	}
	if o.MaxGradNorm <= 0 {
		return errors.Errorf("max grad norm must be positive, got %f", o.MaxGradNorm)
	}
	if o.SaveDir == "" {
		return errors.Errorf("save dir required")
	}
	if o.LossDir == "" {
		return errors.Errorf("loss dir required")
	}
	return nil
}

// Trainer runs the hierarchical training loop for one project: class-weighted
// file loss blended with the line divergence on the training split, an
// unweighted pass over the validation split, and best-epoch selection by
// validation AUC.
type Trainer struct {
	opts    Options
	net     defect.Network
	enc     defect.Encoder
	train   []defect.Tokenized
	valid   []defect.Tokenized
	weights ClassWeights
	batcher *dataset.Batcher
}

// NewTrainer validates the options and fixes the class weights from the
// training labels.
func NewTrainer(net defect.Network, enc defect.Encoder, train, valid []defect.Tokenized, opts Options) (*Trainer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, errors.Errorf("no training files")
	}
	if len(valid) == 0 {
		return nil, errors.Errorf("no validation files")
	}

	labels := make([]float64, 0, len(train))
	for _, item := range train {
		labels = append(labels, item.File.Label)
	}

	return &Trainer{
		opts:    opts,
		net:     net,
		enc:     enc,
		train:   train,
		valid:   valid,
		weights: BalancedWeights(labels),
		batcher: dataset.NewBatcher(opts.BatchSize, opts.Seed),
	}, nil
}

// Run trains for the configured number of epochs, rewriting the loss record
// after every epoch and persisting the best epoch's checkpoint once at the
// end. The returned state names the best epoch even when Run fails partway.
func (t *Trainer) Run() (TrainingState, error) {
	opt := NewAdam(t.net.Params(), AdamOptions{
		LR:          t.opts.LR,
		WeightDecay: t.opts.WeightDecay,
	})

	var state TrainingState
	var record []EpochMetrics

	for epoch := 1; epoch <= t.opts.Epochs; epoch++ {
		trainLoss, err := t.trainEpoch(opt)
		if err != nil {
			return state, err
		}

		validLoss, auc, err := t.validEpoch()
		if err != nil {
			return state, err
		}

		state.Observe(epoch, auc, t.net.State())

		log.Printf("%s epoch %d: train loss %f", t.opts.Project, epoch, trainLoss)
		log.Printf("%s epoch %d: valid loss %f auc %f", t.opts.Project, epoch, validLoss, auc)

		record = append(record, EpochMetrics{
			Epoch:     epoch,
			TrainLoss: trainLoss,
			ValidLoss: validLoss,
			ValidAUC:  auc,
		})
		if err := WriteLossRecord(t.opts.LossDir, t.opts.Project, record); err != nil {
			return state, err
		}
	}

	cp := Checkpoint{
		Epoch:     state.BestEpoch,
		Model:     state.BestState.Tensors(),
		Optimizer: opt.State(),
	}
	if err := SaveCheckpoint(t.opts.SaveDir, t.opts.Project, cp); err != nil {
		return state, err
	}
	return state, nil
}

func (t *Trainer) trainEpoch(opt *Adam) (float64, error) {
	batches := t.batcher.Train(t.train)
	if len(batches) == 0 {
		return 0, errors.Errorf("no full training batch: %d files for batch size %d",
			len(t.train), t.opts.BatchSize)
	}

	var losses []float64
	var loopErr error
	err := tqdm.With(iterators.Interval(0, len(batches)), "Train Loop", func(c interface{}) (brk bool) {
		batch := batches[c.(int)]
		embs, err := t.embed(batch)
		if err != nil {
			loopErr = err
			return true
		}

		outs := t.net.Forward(embs, true)
		res := ScoreBatch(outs, filesOf(batch), t.opts.K, t.weights, true)
		losses = append(losses, res.Loss)

		t.net.Backward(res.Grads)
		ClipGradNorm(t.net.Params(), t.opts.MaxGradNorm)
		opt.Step()
		opt.ZeroGrad()
		return
	})
	if loopErr != nil {
		return 0, loopErr
	}
	if err != nil {
		return 0, err
	}

	return stats.Mean(losses)
}

func (t *Trainer) validEpoch() (float64, float64, error) {
	batches := t.batcher.Valid(t.valid)

	var losses, probs, labels []float64
	var loopErr error
	err := tqdm.With(iterators.Interval(0, len(batches)), "Valid Loop", func(c interface{}) (brk bool) {
		batch := batches[c.(int)]
		embs, err := t.embed(batch)
		if err != nil {
			loopErr = err
			return true
		}

		outs := t.net.Forward(embs, false)
		res := ScoreBatch(outs, filesOf(batch), t.opts.K, t.weights, false)
		losses = append(losses, res.Loss)
		probs = append(probs, res.Probs...)
		for _, item := range batch {
			labels = append(labels, item.File.Label)
		}
		return
	})
	if loopErr != nil {
		return 0, 0, loopErr
	}
	if err != nil {
		return 0, 0, err
	}

	loss, err := stats.Mean(losses)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "error averaging validation losses")
	}
	auc, err := AUC(probs, labels)
	if err != nil {
		return 0, 0, err
	}
	return loss, auc, nil
}

func (t *Trainer) embed(batch []defect.Tokenized) ([]*mat.Dense, error) {
	embs := make([]*mat.Dense, 0, len(batch))
	for _, item := range batch {
		e, err := t.enc.EncodeFile(item.Ids, item.Mask)
		if err != nil {
			return nil, errors.Wrapf(err, "error embedding %s", item.File.Name)
		}
		embs = append(embs, e)
	}
	return embs, nil
}

func filesOf(batch []defect.Tokenized) []defect.File {
	files := make([]defect.File, 0, len(batch))
	for _, item := range batch {
		files = append(files, item.File)
	}
	return files
}
