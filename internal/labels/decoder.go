// Package labels decodes classifier scores into class labels.
package labels

import (
	"math"

	"github.com/andresmejia3/signspell/internal/types"
)

// Argmax returns the index of the highest score. Ties go to the lowest index.
// It returns -1 for an empty vector or one holding only NaNs.
func Argmax(scores types.ScoreVector) int {
	best := -1
	var bestVal float32
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			continue
		}
		if best == -1 || v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best
}

// Decode maps the winning score index to its label: 0..25 are A..Z, then delete, empty, space.
// Anything else is LabelUndefined.
func Decode(scores types.ScoreVector) types.ClassLabel {
	return types.LabelFromIndex(Argmax(scores))
}
