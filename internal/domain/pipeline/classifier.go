package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mediavault/internal/domain/media"
)

// Classifier decides the terminal safety status for a fully analyzed upload.
// The record carries the storage key and mime type, so a real analyzer can
// open the payload through BlobStorage without the pipeline changing.
type Classifier interface {
	Classify(ctx context.Context, record *media.MediaRecord) (media.Status, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, record *media.MediaRecord) (media.Status, error)

func (f ClassifierFunc) Classify(ctx context.Context, record *media.MediaRecord) (media.Status, error) {
	return f(ctx, record)
}

// WeightedRandomClassifier is the placeholder decision function: it flags
// content at random with a configurable bias toward safe. It stands in for a
// real analysis engine and exists only so the pipeline mechanics are exercised
// end to end.
type WeightedRandomClassifier struct {
	safeBias float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedRandomClassifier creates a classifier returning safe with
// probability safeBias.
func NewWeightedRandomClassifier(safeBias float64) *WeightedRandomClassifier {
	return &WeightedRandomClassifier{
		safeBias: safeBias,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *WeightedRandomClassifier) Classify(_ context.Context, _ *media.MediaRecord) (media.Status, error) {
	c.mu.Lock()
	v := c.rng.Float64()
	c.mu.Unlock()

	if v < c.safeBias {
		return media.StatusSafe, nil
	}
	return media.StatusFlagged, nil
}
