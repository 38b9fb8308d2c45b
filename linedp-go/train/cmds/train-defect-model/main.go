package main

import (
	"fmt"
	"log"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/linedp/linedp/linedp-go/codebert"
	"github.com/linedp/linedp/linedp-go/dataset"
	"github.com/linedp/linedp/linedp-go/model"
	"github.com/linedp/linedp/linedp-go/train"
)

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	args := struct {
		DataDir       string `arg:"required" help:"directory holding the preprocessed <release>.csv files, local or s3://"`
		SaveDir       string `arg:"required" help:"directory receiving per-project model checkpoints"`
		LossDir       string `arg:"required" help:"directory receiving per-project loss records"`
		TokenizerPath string `arg:"required" help:"CodeBERT tokenizer.json, local or s3://"`
		ModelPath     string `arg:"required" help:"frozen CodeBERT frozen-graph model file"`
		Project       string `help:"train a single project instead of all of them"`
		BatchSize     int
		Epochs        int
		LR            float64
		WeightDecay   float64
		K             float64 `help:"balance between the file loss and the line loss"`
		EmbedDim      int
		HiddenDim     int
		AttnDim       int
		Dropout       float64
		MaxGradNorm   float64
		MaxLOC        int  `help:"truncate each file to this many lines"`
		DoLowerCase   bool `help:"lowercase line text, for uncased encoder models"`
		BlockSize     int  `help:"token budget per line, including CLS and SEP"`
		CacheSize     int  `help:"line embedding LRU cache entries"`
		Seed          int64
	}{
		BatchSize:   16,
		Epochs:      10,
		LR:          0.001,
		K:           0.2,
		EmbedDim:    codebert.EmbeddingDim,
		HiddenDim:   model.DefaultHiddenDim,
		AttnDim:     model.DefaultAttnDim,
		Dropout:     model.DefaultDropout,
		MaxGradNorm: 5,
		MaxLOC:      1000,
		BlockSize:   codebert.DefaultBlockSize,
		CacheSize:   codebert.DefaultCacheSize,
	}
	arg.MustParse(&args)

	projects := dataset.Projects
	if args.Project != "" {
		if _, ok := dataset.TrainReleases[args.Project]; !ok {
			log.Fatalf("unknown project %s", args.Project)
		}
		projects = []string{args.Project}
	}

	tok, err := codebert.NewTokenizer(codebert.TokenizerOptions{
		Path:      args.TokenizerPath,
		BlockSize: args.BlockSize,
	})
	fail(err)

	enc, err := codebert.NewTFEncoder(codebert.EncoderOptions{ModelPath: args.ModelPath})
	fail(err)
	defer enc.Unload()

	cached, err := codebert.NewCachedEncoder(enc, args.CacheSize)
	fail(err)

	loadOpts := dataset.Options{DataDir: args.DataDir, MaxLOC: args.MaxLOC, Lowercase: args.DoLowerCase}
	for _, project := range projects {
		start := time.Now()

		trainFiles, err := dataset.Load(dataset.TrainReleases[project], loadOpts)
		fail(err)
		validFiles, err := dataset.Load(dataset.ValidRelease(project), loadOpts)
		fail(err)
		fmt.Printf("%s: %d train files, %d valid files\n", project, len(trainFiles), len(validFiles))

		trainSet, err := tok.TokenizeAll(trainFiles)
		fail(err)
		validSet, err := tok.TokenizeAll(validFiles)
		fail(err)

		net, err := model.NewNetwork(model.Options{
			EmbedDim:  args.EmbedDim,
			HiddenDim: args.HiddenDim,
			AttnDim:   args.AttnDim,
			Dropout:   args.Dropout,
			Seed:      args.Seed,
		})
		fail(err)

		trainer, err := train.NewTrainer(net, cached, trainSet, validSet, train.Options{
			Project:     project,
			K:           args.K,
			Epochs:      args.Epochs,
			BatchSize:   args.BatchSize,
			LR:          args.LR,
			WeightDecay: args.WeightDecay,
			MaxGradNorm: args.MaxGradNorm,
			Seed:        args.Seed,
			SaveDir:     args.SaveDir,
			LossDir:     args.LossDir,
		})
		fail(err)

		state, err := trainer.Run()
		fail(err)

		cached.Purge()
		fmt.Printf("%s: best epoch %d (auc %.4f), took %v\n",
			project, state.BestEpoch, state.BestAUC, time.Since(start))
	}
}
