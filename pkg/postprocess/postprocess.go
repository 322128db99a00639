package postprocess

import (
	"gonum.org/v1/gonum/floats"
)

// ToLabeled zips output with labels by position. Labels without a matching
// output value get 0. Output values beyond the label list are ignored.
func ToLabeled(output []float32, labels []string) map[string]float32 {
	res := make(map[string]float32, len(labels))
	for i, label := range labels {
		if i < len(output) {
			res[label] = output[i]
			continue
		}
		res[label] = 0
	}
	return res
}

// ArgMax returns the index of the largest value, the first one on ties,
// or -1 for an empty vector.
func ArgMax(output []float32) int {
	if len(output) == 0 {
		return -1
	}
	return floats.MaxIdx(toFloat64(output))
}

// Top returns the label and score at ArgMax. Empty output gives "", 0.
func Top(output []float32, labels []string) (string, float32) {
	idx := ArgMax(output)
	if idx < 0 {
		return "", 0
	}
	if idx >= len(labels) {
		return "", output[idx]
	}
	return labels[idx], output[idx]
}

// Flagged lists, in label order, every label scoring at or above threshold.
func Flagged(preds map[string]float32, labels []string, threshold float32) []string {
	flagged := make([]string, 0)
	for _, label := range labels {
		if score, ok := preds[label]; ok && score >= threshold {
			flagged = append(flagged, label)
		}
	}
	return flagged
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
