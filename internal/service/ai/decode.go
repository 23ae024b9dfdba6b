package ai

import (
	"fmt"
	"math"
	"sort"
)

// candidate is one raw prediction already mapped to bitmap pixel space.
type candidate struct {
	class int
	score float64
	box   BoxF
}

// decodeOutput picks the decoder matching the detector head's output shape.
func decodeOutput(out Tensor, classes, inputW, inputH, imgW, imgH int, threshold float64) ([]candidate, bool, error) {
	if err := out.Validate(); err != nil {
		return nil, false, err
	}
	switch {
	case len(out.Shape) == 4 && out.Shape[len(out.Shape)-1] == 7:
		c, err := decodeSSD(out, classes, imgW, imgH, threshold)
		return c, false, err
	case len(out.Shape) == 3 && out.Shape[0] == 1:
		c, err := decodeYOLO(out, classes, inputW, inputH, imgW, imgH, threshold)
		return c, true, err
	default:
		return nil, false, fmt.Errorf("unsupported detector output shape %v", out.Shape)
	}
}

// decodeYOLO reads a [1, 4+nc, N] head (or its [1, N, 4+nc] transpose) whose
// boxes are center/size in network-input pixels. classes is the vocabulary
// size; a head with a different class count is rejected.
func decodeYOLO(out Tensor, classes, inputW, inputH, imgW, imgH int, threshold float64) ([]candidate, error) {
	if classes < 1 {
		return nil, fmt.Errorf("detector has an empty vocabulary")
	}
	attrs, n := out.Shape[1], out.Shape[2]
	transposed := false
	switch {
	case attrs == 4+classes:
	case n == 4+classes:
		attrs, n = n, attrs
		transposed = true
	default:
		return nil, fmt.Errorf("detector output shape %v does not match a vocabulary of %d classes", out.Shape, classes)
	}

	at := func(attr, i int) float64 {
		if transposed {
			return float64(out.Data[i*attrs+attr])
		}
		return float64(out.Data[attr*n+i])
	}

	var cands []candidate
	for i := 0; i < n; i++ {
		best, score := 0, math.Inf(-1)
		for c := 0; c < classes; c++ {
			s := at(4+c, i)
			if !finite(s) {
				return nil, fmt.Errorf("candidate %d has a non-finite score for class %d", i, c)
			}
			if s > score {
				best, score = c, s
			}
		}
		if !(score >= threshold) {
			continue
		}
		if !finite(at(0, i), at(1, i), at(2, i), at(3, i)) {
			return nil, fmt.Errorf("candidate %d has a non-finite box", i)
		}
		box := FromCenter(at(0, i), at(1, i), at(2, i), at(3, i))
		box = Rescale(box, float64(inputW), float64(inputH), float64(imgW), float64(imgH))
		cands = append(cands, candidate{class: best, score: score, box: box})
	}
	return cands, nil
}

// decodeSSD reads a [1,1,N,7] head of [batch, class, score, x1, y1, x2, y2]
// rows with normalized coordinates. Class ids index the vocabulary.
func decodeSSD(out Tensor, classes, imgW, imgH int, threshold float64) ([]candidate, error) {
	rows := len(out.Data) / 7
	var cands []candidate
	for i := 0; i < rows; i++ {
		row := out.Data[i*7 : i*7+7]
		score := float64(row[2])
		if !finite(score) {
			return nil, fmt.Errorf("row %d has a non-finite score", i)
		}
		if score < threshold {
			continue
		}
		class := float64(row[1])
		if !finite(class) || class < 0 || class >= float64(classes) || class != math.Trunc(class) {
			return nil, fmt.Errorf("row %d has class id %v outside a vocabulary of %d classes", i, row[1], classes)
		}
		if !finite(float64(row[3]), float64(row[4]), float64(row[5]), float64(row[6])) {
			return nil, fmt.Errorf("row %d has a non-finite box", i)
		}
		box := Rescale(BoxF{
			X1: float64(row[3]),
			Y1: float64(row[4]),
			X2: float64(row[5]),
			Y2: float64(row[6]),
		}, 1, 1, float64(imgW), float64(imgH))
		cands = append(cands, candidate{class: int(class), score: score, box: box})
	}
	return cands, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// suppress drops candidates overlapping a higher-scoring candidate of the same
// class by more than iouThreshold. Survivors keep their original order.
func suppress(cands []candidate, iouThreshold float64) []candidate {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].score > cands[order[b]].score
	})

	removed := make([]bool, len(cands))
	for a, i := range order {
		if removed[i] {
			continue
		}
		for _, j := range order[a+1:] {
			if removed[j] || cands[j].class != cands[i].class {
				continue
			}
			if IoU(cands[i].box, cands[j].box) > iouThreshold {
				removed[j] = true
			}
		}
	}

	kept := make([]candidate, 0, len(cands))
	for i, c := range cands {
		if !removed[i] {
			kept = append(kept, c)
		}
	}
	return kept
}
