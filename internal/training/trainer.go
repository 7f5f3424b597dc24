package training

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/dataset"
	"github.com/varta-systems/varta-go/internal/nn"
)

// Config holds the training loop's knobs. Patience windows and the LR
// schedule mirror the reference pipeline.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	OutputDir    string
	Seed         int64

	// EarlyStopPatience stops fitting after this many epochs without a
	// validation loss improvement and restores the best-seen weights.
	EarlyStopPatience int
	// LRPatience halves the learning rate after this many epochs without a
	// validation loss improvement, floored at MinLR.
	LRPatience int
	LRFactor   float64
	MinLR      float64
}

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() Config {
	return Config{
		Epochs:            100,
		BatchSize:         32,
		LearningRate:      0.001,
		Seed:              42,
		EarlyStopPatience: 15,
		LRPatience:        5,
		LRFactor:          0.5,
		MinLR:             1e-6,
	}
}

// Result reports where the artifacts landed and how the run went. The best
// checkpoint (highest validation accuracy) and the final model (weights at
// end of fitting) are distinct, both meaningful outputs.
type Result struct {
	Test            *Evaluation
	BestValAccuracy float64
	EpochsRun       int
	CheckpointPath  string
	FinalModelPath  string
}

// Train splits the dataset (20% test, then 20% of the remainder validation,
// both stratified with the same seed), fits the model under the three
// monitors, evaluates once on the held-out test split and persists both the
// best checkpoint and the final model.
func Train(ds *dataset.Dataset, cfg Config) (*Result, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("cannot train on an empty dataset")
	}

	testIdx, poolIdx := dataset.StratifiedSplit(ds.Y, 0.2, cfg.Seed)
	test := ds.Subset(testIdx)
	pool := ds.Subset(poolIdx)
	valIdx, trainIdx := dataset.StratifiedSplit(pool.Y, 0.2, cfg.Seed)
	val := pool.Subset(valIdx)
	train := pool.Subset(trainIdx)

	if train.Len() == 0 || val.Len() == 0 || test.Len() == 0 {
		return nil, fmt.Errorf("dataset too small to split: train=%d val=%d test=%d",
			train.Len(), val.Len(), test.Len())
	}
	slog.Info("dataset split", "train", train.Len(), "val", val.Len(), "test", test.Len())

	model := nn.New(cfg.Seed)
	opt := nn.NewAdam(cfg.LearningRate)
	slog.Info("model constructed", "trainable_parameters", model.NumParams())

	checkpointPath := filepath.Join(cfg.OutputDir, "checkpoints", "best.gob")
	finalPath := filepath.Join(cfg.OutputDir, "final_model.gob")

	rng := rand.New(rand.NewSource(cfg.Seed))
	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}

	// Starts below any reachable accuracy so the first epoch always writes a
	// checkpoint and CheckpointPath never points at a missing file.
	bestValAcc := -1.0
	bestValLoss := math.Inf(1)
	var bestWeights map[string][]float64
	stopWait := 0
	lrWait := 0
	epochsRun := 0
	earlyStopped := false

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochsRun = epoch
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var trainLoss float64
		var trainCorrect int
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch, labels := makeBatch(train, order[start:end])

			probs := model.Forward(batch, true)
			loss, dLogits := nn.SparseCrossEntropy(probs, labels)
			model.ZeroGrad()
			model.Backward(dLogits)
			opt.Step(model.Params())

			trainLoss += loss * float64(end-start)
			for i, pred := range nn.Argmax(probs) {
				if pred == labels[i] {
					trainCorrect++
				}
			}
		}
		trainLoss /= float64(train.Len())
		trainAcc := float64(trainCorrect) / float64(train.Len())

		valEv := evaluate(model, val, cfg.BatchSize)
		slog.Info("epoch complete",
			"epoch", epoch,
			"loss", fmt.Sprintf("%.4f", trainLoss),
			"accuracy", fmt.Sprintf("%.4f", trainAcc),
			"val_loss", fmt.Sprintf("%.4f", valEv.Loss),
			"val_accuracy", fmt.Sprintf("%.4f", valEv.Accuracy),
			"lr", opt.LR)

		// Monitor 1: checkpoint on validation accuracy improvement.
		if valEv.Accuracy > bestValAcc {
			bestValAcc = valEv.Accuracy
			if err := model.Save(checkpointPath); err != nil {
				return nil, fmt.Errorf("failed to write checkpoint: %w", err)
			}
			slog.Info("validation accuracy improved, checkpoint saved",
				"val_accuracy", fmt.Sprintf("%.4f", bestValAcc), "path", checkpointPath)
		}

		// Monitors 2 and 3 watch validation loss with independent patience.
		if valEv.Loss < bestValLoss {
			bestValLoss = valEv.Loss
			bestWeights = model.Snapshot()
			stopWait = 0
			lrWait = 0
		} else {
			stopWait++
			lrWait++
			if lrWait >= cfg.LRPatience && opt.LR > cfg.MinLR {
				opt.LR = math.Max(opt.LR*cfg.LRFactor, cfg.MinLR)
				lrWait = 0
				slog.Info("validation loss plateaued, reducing learning rate", "lr", opt.LR)
			}
			if stopWait >= cfg.EarlyStopPatience {
				slog.Info("early stopping", "epoch", epoch, "best_val_loss", bestValLoss)
				earlyStopped = true
				break
			}
		}
	}

	if earlyStopped && bestWeights != nil {
		if err := model.Restore(bestWeights); err != nil {
			return nil, fmt.Errorf("failed to restore best weights: %w", err)
		}
	}

	testEv := evaluate(model, test, cfg.BatchSize)
	slog.Info("test evaluation",
		"accuracy", fmt.Sprintf("%.4f", testEv.Accuracy),
		"loss", fmt.Sprintf("%.4f", testEv.Loss))

	if err := model.Save(finalPath); err != nil {
		return nil, fmt.Errorf("failed to save final model: %w", err)
	}

	return &Result{
		Test:            testEv,
		BestValAccuracy: bestValAcc,
		EpochsRun:       epochsRun,
		CheckpointPath:  checkpointPath,
		FinalModelPath:  finalPath,
	}, nil
}

// makeBatch assembles a (N, 1, TimeFrames, MelBins) input tensor and label
// slice from dataset rows.
func makeBatch(ds *dataset.Dataset, indices []int) (*nn.Tensor, []int) {
	batch := nn.NewTensor(len(indices), 1, conf.TimeFrames, conf.MelBins)
	labels := make([]int, len(indices))
	size := conf.TimeFrames * conf.MelBins
	for i, idx := range indices {
		copy(batch.Data[i*size:(i+1)*size], ds.X[idx])
		labels[i] = ds.Y[idx]
	}
	return batch, labels
}
