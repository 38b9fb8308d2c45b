package dataset

import (
	"math/rand"

	"github.com/linedp/linedp/linedp-go/defect"
)

// Batcher partitions tokenized files into batches. Training batches are
// reshuffled on every call and drop a trailing partial batch so every batch
// has exactly the configured size; validation batches keep the input order
// and the trailing partial.
type Batcher struct {
	size int
	rand *rand.Rand
}

// NewBatcher returns a batcher producing batches of the given size. The seed
// fixes the training shuffle order.
func NewBatcher(size int, seed int64) *Batcher {
	return &Batcher{
		size: size,
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Train shuffles the examples and partitions them into full batches,
// dropping the trailing partial batch.
func (b *Batcher) Train(examples []defect.Tokenized) [][]defect.Tokenized {
	shuffled := make([]defect.Tokenized, len(examples))
	copy(shuffled, examples)
	b.rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var batches [][]defect.Tokenized
	for i := 0; i+b.size <= len(shuffled); i += b.size {
		batches = append(batches, shuffled[i:i+b.size])
	}
	return batches
}

// Valid partitions the examples in their given order, keeping the trailing
// partial batch.
func (b *Batcher) Valid(examples []defect.Tokenized) [][]defect.Tokenized {
	var batches [][]defect.Tokenized
	for i := 0; i < len(examples); i += b.size {
		end := i + b.size
		if end > len(examples) {
			end = len(examples)
		}
		batches = append(batches, examples[i:end])
	}
	return batches
}
